package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attest/internal/credential/models"
	"attest/internal/platform/database"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

const activeUniqueIndex = "credentials_active_template_recipient"

const selectColumns = `id, template_id, issuer_id, recipient_id, recipient_email, recipient_name,
	issued_at, expires_at, evidence, status, document, signature, verification_url`

// PostgresStore persists credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a credential. A second active credential for the same
// template and recipient trips the partial unique index.
func (s *PostgresStore) Create(ctx context.Context, cred *models.IssuedCredential) error {
	evidence, err := json.Marshal(evidenceOrEmpty(cred.Evidence))
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	query := `
		INSERT INTO credentials (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(cred.ID),
		uuid.UUID(cred.TemplateID),
		uuid.UUID(cred.IssuerID),
		uuid.UUID(cred.Recipient.ID),
		cred.Recipient.Email,
		cred.Recipient.Name,
		cred.IssuedAt,
		cred.ExpiresAt,
		evidence,
		string(cred.Status),
		cred.Document,
		cred.Signature,
		cred.VerificationURL,
	)
	if err != nil {
		if database.IsUniqueViolation(err, activeUniqueIndex) {
			return ErrActiveDuplicate
		}
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("credential %s exists: %w", cred.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.IssuedCredential, error) {
	query := `SELECT ` + selectColumns + ` FROM credentials WHERE id = $1`
	cred, err := scanCredential(s.db.QueryRowContext(ctx, query, uuid.UUID(credentialID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find credential by id: %w", err)
	}
	return cred, nil
}

// ListExpired returns up to limit active credentials whose expiry is at or
// before now, soonest expiry first.
func (s *PostgresStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.IssuedCredential, error) {
	query := `SELECT ` + selectColumns + ` FROM credentials
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`
	return s.query(ctx, "list expired credentials", query, now, limit)
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, userID id.UserID) ([]*models.IssuedCredential, error) {
	query := `SELECT ` + selectColumns + ` FROM credentials WHERE recipient_id = $1 ORDER BY issued_at`
	return s.query(ctx, "list credentials by recipient", query, uuid.UUID(userID))
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]*models.IssuedCredential, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]*models.IssuedCredential, 0)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

// UpdateStatus locks the row, checks the lifecycle and writes the new status
// in one transaction.
func (s *PostgresStore) UpdateStatus(ctx context.Context, credentialID id.CredentialID, next models.Status) (models.Status, error) {
	var prev models.Status
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM credentials WHERE id = $1 FOR UPDATE`,
			uuid.UUID(credentialID),
		).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("lock credential: %w", err)
		}
		prev = models.Status(current)
		if !prev.CanTransitionTo(next) {
			return ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE credentials SET status = $2 WHERE id = $1`,
			uuid.UUID(credentialID), string(next),
		); err != nil {
			return fmt.Errorf("update credential status: %w", err)
		}
		return nil
	})
	return prev, err
}

type row interface {
	Scan(dest ...any) error
}

func scanCredential(r row) (*models.IssuedCredential, error) {
	var (
		cred                                 models.IssuedCredential
		credID, templateID, issuerID, userID uuid.UUID
		expiresAt                            sql.NullTime
		evidence                             []byte
		status                               string
	)
	err := r.Scan(
		&credID, &templateID, &issuerID, &userID,
		&cred.Recipient.Email, &cred.Recipient.Name,
		&cred.IssuedAt, &expiresAt, &evidence, &status,
		&cred.Document, &cred.Signature, &cred.VerificationURL,
	)
	if err != nil {
		return nil, err
	}
	cred.ID = id.CredentialID(credID)
	cred.TemplateID = id.TemplateID(templateID)
	cred.IssuerID = id.IssuerID(issuerID)
	cred.Recipient.ID = id.UserID(userID)
	cred.Status = models.Status(status)
	cred.IssuedAt = cred.IssuedAt.UTC()
	if expiresAt.Valid {
		exp := expiresAt.Time.UTC()
		cred.ExpiresAt = &exp
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &cred.Evidence); err != nil {
			return nil, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}
	if len(cred.Evidence) == 0 {
		cred.Evidence = nil
	}
	return &cred, nil
}

func evidenceOrEmpty(ev []models.Evidence) []models.Evidence {
	if ev == nil {
		return []models.Evidence{}
	}
	return ev
}

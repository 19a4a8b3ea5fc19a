package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"attest/internal/platform/database"
	"attest/internal/revocation/models"
	id "attest/pkg/domain"
)

const credentialUniqueConstraint = "revocations_credential_unique"

// PostgresStore persists the ledger in PostgreSQL. The table has a unique
// constraint on credential_id, so concurrent appends have one winner.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO revocations (id, credential_id, revoked_by, reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.CredentialID),
		uuid.UUID(entry.RevokedBy),
		string(entry.Reason),
		entry.Notes,
		entry.RevokedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, credentialUniqueConstraint) {
			return ErrAlreadyRecorded
		}
		return fmt.Errorf("insert revocation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, credentialID id.CredentialID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revocations WHERE credential_id = $1)`,
		uuid.UUID(credentialID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, revoked_by, reason, notes, created_at
		FROM revocations
		WHERE credential_id = $1
		ORDER BY created_at DESC
	`, uuid.UUID(credentialID))
	if err != nil {
		return nil, fmt.Errorf("list revocations: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		var (
			entryID, credID, revokedBy uuid.UUID
			reason                     string
			e                          models.Entry
		)
		if err := rows.Scan(&entryID, &credID, &revokedBy, &reason, &e.Notes, &e.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan revocation: %w", err)
		}
		e.ID = id.RevocationID(entryID)
		e.CredentialID = id.CredentialID(credID)
		e.RevokedBy = id.UserID(revokedBy)
		e.Reason = models.Reason(reason)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revocations: %w", err)
	}
	return out, nil
}

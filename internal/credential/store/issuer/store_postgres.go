package issuer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"attest/internal/credential/models"
	"attest/internal/platform/database"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

const selectColumns = `id, name, url, email, image_url, public_key, encrypted_private_key, is_default, created_at`

// PostgresStore persists issuers in PostgreSQL. At most one row carries
// is_default; the partial unique index enforces it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed issuer store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, iss *models.Issuer) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if iss.IsDefault {
			if err := clearDefault(ctx, tx, iss.ID); err != nil {
				return err
			}
		}
		query := `
			INSERT INTO issuers (` + selectColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				url = EXCLUDED.url,
				email = EXCLUDED.email,
				image_url = EXCLUDED.image_url,
				public_key = EXCLUDED.public_key,
				encrypted_private_key = EXCLUDED.encrypted_private_key,
				is_default = EXCLUDED.is_default
		`
		_, err := tx.ExecContext(ctx, query,
			uuid.UUID(iss.ID),
			iss.Name,
			iss.URL,
			iss.Email,
			iss.ImageURL,
			iss.PublicKey,
			iss.EncryptedPrivateKey,
			iss.IsDefault,
			iss.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save issuer: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM issuers WHERE id = $1`, uuid.UUID(issuerID))
}

func (s *PostgresStore) FindDefault(ctx context.Context) (*models.Issuer, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM issuers WHERE is_default`)
}

func clearDefault(ctx context.Context, tx *sql.Tx, keep id.IssuerID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE issuers SET is_default = FALSE WHERE is_default AND id <> $1`,
		uuid.UUID(keep),
	)
	if err != nil {
		return fmt.Errorf("clear default issuer: %w", err)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Issuer, error) {
	var (
		iss      models.Issuer
		issuerID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&issuerID, &iss.Name, &iss.URL, &iss.Email, &iss.ImageURL,
		&iss.PublicKey, &iss.EncryptedPrivateKey, &iss.IsDefault, &iss.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("issuer not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find issuer: %w", err)
	}
	iss.ID = id.IssuerID(issuerID)
	return &iss, nil
}

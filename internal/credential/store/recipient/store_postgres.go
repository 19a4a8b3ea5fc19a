package recipient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// PostgresStore reads and writes recipients in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed recipient directory.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, r *models.Recipient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recipients (id, email, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name
	`, uuid.UUID(r.ID), r.Email, r.Name)
	if err != nil {
		return fmt.Errorf("save recipient: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.Recipient, error) {
	r := models.Recipient{ID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT email, name FROM recipients WHERE id = $1`, uuid.UUID(userID),
	).Scan(&r.Email, &r.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recipient not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	return &r, nil
}

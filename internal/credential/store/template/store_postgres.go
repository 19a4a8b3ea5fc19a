package template

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

const selectColumns = `id, machine_name, name, description, criteria_narrative, kind,
	validity_days, passing_score, issuer_id, image_url, created_at`

// PostgresStore persists templates in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed template store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, tmpl *models.Template) error {
	var issuerID *uuid.UUID
	if tmpl.IssuerID != nil {
		iid := uuid.UUID(*tmpl.IssuerID)
		issuerID = &iid
	}
	query := `
		INSERT INTO templates (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			machine_name = EXCLUDED.machine_name,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			criteria_narrative = EXCLUDED.criteria_narrative,
			kind = EXCLUDED.kind,
			validity_days = EXCLUDED.validity_days,
			passing_score = EXCLUDED.passing_score,
			issuer_id = EXCLUDED.issuer_id,
			image_url = EXCLUDED.image_url
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(tmpl.ID),
		tmpl.MachineName,
		tmpl.Name,
		tmpl.Description,
		tmpl.CriteriaNarrative,
		string(tmpl.Kind),
		tmpl.ValidityDays,
		tmpl.PassingScore,
		issuerID,
		tmpl.ImageURL,
		tmpl.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("template machine name %q taken: %w", tmpl.MachineName, sentinel.ErrConflict)
		}
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("template issuer missing: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, templateID id.TemplateID) (*models.Template, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM templates WHERE id = $1`, uuid.UUID(templateID))
}

func (s *PostgresStore) FindByMachineName(ctx context.Context, name string) (*models.Template, error) {
	return s.findOne(ctx, `SELECT `+selectColumns+` FROM templates WHERE machine_name = $1`, name)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM templates ORDER BY machine_name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Template, 0)
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Template, error) {
	tmpl, err := scanTemplate(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return tmpl, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanTemplate(r row) (*models.Template, error) {
	var (
		tmpl         models.Template
		templateID   uuid.UUID
		kind         string
		passingScore sql.NullFloat64
		issuerID     uuid.NullUUID
	)
	err := r.Scan(
		&templateID, &tmpl.MachineName, &tmpl.Name, &tmpl.Description, &tmpl.CriteriaNarrative,
		&kind, &tmpl.ValidityDays, &passingScore, &issuerID, &tmpl.ImageURL, &tmpl.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tmpl.ID = id.TemplateID(templateID)
	tmpl.Kind = models.Kind(kind)
	if passingScore.Valid {
		score := passingScore.Float64
		tmpl.PassingScore = &score
	}
	if issuerID.Valid {
		iid := id.IssuerID(issuerID.UUID)
		tmpl.IssuerID = &iid
	}
	return &tmpl, nil
}

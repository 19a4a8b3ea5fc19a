package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"attest/internal/platform/database"
	"attest/internal/stack/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

const stackColumns = `id, machine_name, name, description, required_templates, optional_templates,
	min_required, result_template_id, bonus_attributes, active`

const progressColumns = `stack_id, user_id, status, matched_templates, percent, completed_at,
	result_credential_id, updated_at`

// PostgresStore persists stacks and progress in PostgreSQL. Template lists are
// JSONB arrays of UUID strings.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveStack(ctx context.Context, stack *models.Stack) error {
	required, err := json.Marshal(templateList(stack.Required))
	if err != nil {
		return fmt.Errorf("marshal required templates: %w", err)
	}
	optional, err := json.Marshal(templateList(stack.Optional))
	if err != nil {
		return fmt.Errorf("marshal optional templates: %w", err)
	}
	bonus := stack.BonusAttributes
	if bonus == nil {
		bonus = map[string]any{}
	}
	bonusJSON, err := json.Marshal(bonus)
	if err != nil {
		return fmt.Errorf("marshal bonus attributes: %w", err)
	}

	query := `
		INSERT INTO stacks (` + stackColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			machine_name = EXCLUDED.machine_name,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			required_templates = EXCLUDED.required_templates,
			optional_templates = EXCLUDED.optional_templates,
			min_required = EXCLUDED.min_required,
			result_template_id = EXCLUDED.result_template_id,
			bonus_attributes = EXCLUDED.bonus_attributes,
			active = EXCLUDED.active
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(stack.ID),
		stack.MachineName,
		stack.Name,
		stack.Description,
		required,
		optional,
		stack.MinRequired,
		uuid.UUID(stack.ResultTemplateID),
		bonusJSON,
		stack.Active,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("stack machine name %q in use: %w", stack.MachineName, sentinel.ErrConflict)
		}
		if database.IsForeignKeyViolation(err) {
			return fmt.Errorf("result template missing: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("save stack: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindStack(ctx context.Context, stackID id.StackID) (*models.Stack, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stackColumns+` FROM stacks WHERE id = $1`, uuid.UUID(stackID))
	stack, err := scanStack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stack not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find stack: %w", err)
	}
	return stack, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Stack, error) {
	return s.queryStacks(ctx, `SELECT `+stackColumns+` FROM stacks WHERE active ORDER BY name`)
}

// ListActiveContaining uses JSONB containment on both component lists.
func (s *PostgresStore) ListActiveContaining(ctx context.Context, templateID id.TemplateID) ([]*models.Stack, error) {
	needle, err := json.Marshal([]string{templateID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal template id: %w", err)
	}
	return s.queryStacks(ctx, `
		SELECT `+stackColumns+` FROM stacks
		WHERE active AND (required_templates @> $1::jsonb OR optional_templates @> $1::jsonb)
		ORDER BY name
	`, needle)
}

func (s *PostgresStore) queryStacks(ctx context.Context, query string, args ...any) ([]*models.Stack, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}
	defer rows.Close()

	var out []*models.Stack
	for rows.Next() {
		stack, err := scanStack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stack: %w", err)
		}
		out = append(out, stack)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stacks: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindProgress(ctx context.Context, stackID id.StackID, userID id.UserID) (*models.Progress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM stack_progress WHERE stack_id = $1 AND user_id = $2`,
		uuid.UUID(stackID), uuid.UUID(userID))
	p, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("stack progress not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find stack progress: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListProgressByUser(ctx context.Context, userID id.UserID) ([]*models.Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM stack_progress WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list stack progress: %w", err)
	}
	defer rows.Close()

	var out []*models.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stack progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stack progress: %w", err)
	}
	return out, nil
}

// SaveProgress upserts a row; the WHERE on the conflict branch keeps
// completed rows untouched.
func (s *PostgresStore) SaveProgress(ctx context.Context, p *models.Progress) error {
	matched, err := json.Marshal(templateList(p.Matched))
	if err != nil {
		return fmt.Errorf("marshal matched templates: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stack_progress (stack_id, user_id, status, matched_templates, percent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stack_id, user_id) DO UPDATE SET
			status = EXCLUDED.status,
			matched_templates = EXCLUDED.matched_templates,
			percent = EXCLUDED.percent,
			updated_at = EXCLUDED.updated_at
		WHERE stack_progress.status <> 'completed'
	`, uuid.UUID(p.StackID), uuid.UUID(p.UserID), string(p.Status), matched, p.Percent, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save stack progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save stack progress: %w", err)
	}
	if n == 0 {
		return ErrProgressCompleted
	}
	return nil
}

// ClaimCompletion inserts or flips the row to completed in one statement. The
// conflicting row is locked for the update, so concurrent claims serialize and
// only one sees a row returned.
func (s *PostgresStore) ClaimCompletion(ctx context.Context, stackID id.StackID, userID id.UserID, matched []id.TemplateID, percent int, at time.Time) (*models.Progress, error) {
	matchedJSON, err := json.Marshal(templateList(matched))
	if err != nil {
		return nil, fmt.Errorf("marshal matched templates: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO stack_progress (stack_id, user_id, status, matched_templates, percent, completed_at, updated_at)
		VALUES ($1, $2, 'completed', $3, $4, $5, $5)
		ON CONFLICT (stack_id, user_id) DO UPDATE SET
			status = 'completed',
			matched_templates = EXCLUDED.matched_templates,
			percent = EXCLUDED.percent,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
		WHERE stack_progress.status <> 'completed'
		RETURNING `+progressColumns,
		uuid.UUID(stackID), uuid.UUID(userID), matchedJSON, percent, at)
	p, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("claim stack completion: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) RecordResult(ctx context.Context, stackID id.StackID, userID id.UserID, credentialID id.CredentialID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stack_progress SET result_credential_id = $3
		WHERE stack_id = $1 AND user_id = $2 AND status = 'completed'
	`, uuid.UUID(stackID), uuid.UUID(userID), uuid.UUID(credentialID))
	if err != nil {
		return fmt.Errorf("record stack result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record stack result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no completion claim to record: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// ReleaseClaim runs in a transaction with the row locked so a concurrent
// RecordResult cannot interleave.
func (s *PostgresStore) ReleaseClaim(ctx context.Context, stackID id.StackID, userID id.UserID, at time.Time) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			status string
			result uuid.NullUUID
		)
		err := tx.QueryRowContext(ctx, `
			SELECT status, result_credential_id FROM stack_progress
			WHERE stack_id = $1 AND user_id = $2
			FOR UPDATE
		`, uuid.UUID(stackID), uuid.UUID(userID)).Scan(&status, &result)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock stack progress: %w", err)
		}
		if models.ProgressStatus(status) != models.ProgressCompleted || result.Valid {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE stack_progress SET status = 'in_progress', completed_at = NULL, updated_at = $3
			WHERE stack_id = $1 AND user_id = $2
		`, uuid.UUID(stackID), uuid.UUID(userID), at); err != nil {
			return fmt.Errorf("release stack claim: %w", err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStack(row scanner) (*models.Stack, error) {
	var (
		stackID, resultID  uuid.UUID
		required, optional []byte
		bonus              []byte
		stack              models.Stack
	)
	if err := row.Scan(&stackID, &stack.MachineName, &stack.Name, &stack.Description,
		&required, &optional, &stack.MinRequired, &resultID, &bonus, &stack.Active); err != nil {
		return nil, err
	}
	stack.ID = id.StackID(stackID)
	stack.ResultTemplateID = id.TemplateID(resultID)
	if err := json.Unmarshal(required, &stack.Required); err != nil {
		return nil, fmt.Errorf("decode required templates: %w", err)
	}
	if err := json.Unmarshal(optional, &stack.Optional); err != nil {
		return nil, fmt.Errorf("decode optional templates: %w", err)
	}
	if err := json.Unmarshal(bonus, &stack.BonusAttributes); err != nil {
		return nil, fmt.Errorf("decode bonus attributes: %w", err)
	}
	return &stack, nil
}

func scanProgress(row scanner) (*models.Progress, error) {
	var (
		stackID, userID uuid.UUID
		status          string
		matched         []byte
		completedAt     sql.NullTime
		result          uuid.NullUUID
		p               models.Progress
	)
	if err := row.Scan(&stackID, &userID, &status, &matched, &p.Percent, &completedAt, &result, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.StackID = id.StackID(stackID)
	p.UserID = id.UserID(userID)
	p.Status = models.ProgressStatus(status)
	if err := json.Unmarshal(matched, &p.Matched); err != nil {
		return nil, fmt.Errorf("decode matched templates: %w", err)
	}
	if completedAt.Valid {
		at := completedAt.Time
		p.CompletedAt = &at
	}
	if result.Valid {
		credID := id.CredentialID(result.UUID)
		p.ResultCredentialID = &credID
	}
	return &p, nil
}

func templateList(ids []id.TemplateID) []id.TemplateID {
	if ids == nil {
		return []id.TemplateID{}
	}
	return ids
}

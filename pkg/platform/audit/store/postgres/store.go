// Package postgres keeps the audit trail in the audit_events table. Rows are
// only ever inserted.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
)

const eventColumns = `timestamp, actor_id, subject, action, reason, request_id, ip, user_agent`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e audit.Event) error {
	const insert = `INSERT INTO audit_events (id, ` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	actor := sql.Null[uuid.UUID]{V: uuid.UUID(e.ActorID), Valid: !e.ActorID.IsNil()}
	if _, err := s.db.ExecContext(ctx, insert, uuid.New(), e.Timestamp, actor,
		e.Subject, e.Action, e.Reason, e.RequestID, e.IP, e.UserAgent); err != nil {
		return fmt.Errorf("append audit event %q: %w", e.Action, err)
	}
	return nil
}

// ListBySubject returns one subject's trail, newest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	return s.list(ctx, `WHERE subject = $1 ORDER BY timestamp DESC`, subject)
}

// ListRecent returns the latest events across all subjects. A non-positive
// limit returns everything; LIMIT NULL is unbounded in PostgreSQL.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return s.list(ctx, `ORDER BY timestamp DESC LIMIT $1`, limitArg(limit))
}

func limitArg(limit int) sql.Null[int64] {
	return sql.Null[int64]{V: int64(limit), Valid: limit > 0}
}

func (s *Store) list(ctx context.Context, tail string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM audit_events `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			e     audit.Event
			actor sql.Null[uuid.UUID]
		)
		if err := rows.Scan(&e.Timestamp, &actor, &e.Subject, &e.Action,
			&e.Reason, &e.RequestID, &e.IP, &e.UserAgent); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if actor.Valid {
			e.ActorID = id.UserID(actor.V)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

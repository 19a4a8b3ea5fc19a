//go:build integration

package containers

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"attest/migrations"
	"attest/pkg/testutil"
)

// PostgresContainer is a migrated database shared by the store suites.
type PostgresContainer struct {
	DB *sql.DB
}

// engineTables are emptied by TruncateAll. CASCADE covers the foreign keys.
var engineTables = []string{
	"audit_events",
	"revocations",
	"stack_progress",
	"credentials",
	"stacks",
	"templates",
	"recipients",
	"issuers",
}

func startPostgres(ctx context.Context) (*PostgresContainer, error) {
	c, err := postgres.Run(ctx, "postgres:18-alpine",
		postgres.WithDatabase("attest_test"),
		postgres.WithUsername("attest"),
		postgres.WithPassword("attest_test_password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, err
	}
	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(ctx, db); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return &PostgresContainer{DB: db}, nil
}

func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(engineTables, ", ")+" CASCADE")
	return err
}

func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// SeedCatalog inserts Acme Academy and the four templates in testutil.TestIDs
// so credential and stack rows have something to reference.
func (p *PostgresContainer) SeedCatalog(ctx context.Context, t *testing.T) {
	t.Helper()

	_, err := p.Exec(ctx, `
		INSERT INTO issuers (id, name, url, is_default)
		VALUES ($1, 'Acme Academy', 'https://acme.example', TRUE)
		ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(testutil.TestIDs.AcmeAcademy))
	if err != nil {
		t.Fatalf("seed issuer: %v", err)
	}

	for machineName, row := range map[string]struct {
		id   uuid.UUID
		kind string
	}{
		"python-fundamentals": {uuid.UUID(testutil.TestIDs.PythonBadge), "course_badge"},
		"data-science":        {uuid.UUID(testutil.TestIDs.DataScience), "course_badge"},
		"web-dev":             {uuid.UUID(testutil.TestIDs.WebDev), "course_badge"},
		"python-expert":       {uuid.UUID(testutil.TestIDs.PythonExpert), "path_certificate"},
	} {
		_, err := p.Exec(ctx, `
			INSERT INTO templates (id, machine_name, name, kind)
			VALUES ($1, $2, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
			row.id, machineName, row.kind)
		if err != nil {
			t.Fatalf("seed template %s: %v", machineName, err)
		}
	}
}

package kb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for migrations

	"github.com/autoweb/agent/core"
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresSink is the long-term structured sink for captured KB rows: it
// auto-migrates a captured_data table and batch-inserts JSONB payloads,
// the Go analogue of memory.py's save_to_postgres. An empty DSN disables
// the sink — callers skip it rather than error, matching the Python's
// "Skipped DB save (No data or No DSN)" behavior.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger core.Logger
}

// NewPostgresSink connects, runs pending migrations, and returns a ready
// sink. Returns (nil, nil) when dsn is empty so callers can treat a
// disabled sink the same as a present-but-unused one.
func NewPostgresSink(ctx context.Context, dsn string, logger core.Logger) (*PostgresSink, error) {
	if dsn == "" {
		return nil, nil
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("kb: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("kb: ping postgres: %w", err)
	}

	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("kb: run migrations: %w", err)
	}

	return &PostgresSink{pool: pool, logger: logger}, nil
}

// runMigrations applies any pending captured_data migrations via
// database/sql so golang-migrate's postgres driver can manage its own
// connection lifecycle independent of the pgx pool used for inserts.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "captured_data", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Insert batch-inserts one JSONB payload per document, tagged with its
// source. Mirrors memory.py's executemany loop: each row is its own
// insert inside a single transaction, rather than a single multi-row
// statement, to keep partial-batch failures diagnosable per row.
func (s *PostgresSink) Insert(ctx context.Context, docs []Document) error {
	if s == nil || len(docs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("kb: begin postgres tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range docs {
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("kb: marshal document payload: %w", err)
		}
		source := d.Metadata["source"]
		if _, err := tx.Exec(ctx, `INSERT INTO captured_data (source, payload) VALUES ($1, $2)`, source, payload); err != nil {
			return fmt.Errorf("kb: insert captured_data row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("kb: commit postgres tx: %w", err)
	}
	s.logger.Info("kb: postgres sink committed batch", map[string]interface{}{"rows": len(docs)})
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

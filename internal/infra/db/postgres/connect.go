package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS advisor_context (
  id SMALLINT PRIMARY KEY,
  style TEXT NOT NULL,
  mode TEXT NOT NULL,
  language TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS advisor_runs (
  id UUID PRIMARY KEY,
  trigger_source TEXT NOT NULL,
  status TEXT NOT NULL,
  queued_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NULL,
  findings INT NOT NULL,
  degraded TEXT[] NOT NULL DEFAULT '{}',
  delivered BOOLEAN NOT NULL,
  archive_url TEXT NOT NULL,
  report_bytes INT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_advisor_runs_queued ON advisor_runs (queued_at DESC)`,
}

// Migrate creates the tables used by the context and run repositories.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id TINYINT PRIMARY KEY,
  style TEXT NOT NULL,
  mode TEXT NOT NULL,
  language TEXT NOT NULL,
  updated_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS advisor_runs (
  id CHAR(36) PRIMARY KEY,
  trigger_source VARCHAR(64) NOT NULL,
  status VARCHAR(16) NOT NULL,
  queued_at DATETIME NOT NULL,
  finished_at DATETIME NULL,
  findings INT NOT NULL,
  degraded VARCHAR(255) NOT NULL,
  delivered BOOLEAN NOT NULL,
  archive_url VARCHAR(1024) NOT NULL,
  report_bytes INT NOT NULL,
  INDEX idx_advisor_runs_queued (queued_at)
)`,
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

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS crawl_runs (
		id UUID PRIMARY KEY,
		seed_url TEXT NOT NULL,
		mode TEXT NOT NULL,
		max_depth INT NOT NULL,
		status TEXT NOT NULL,
		page_count INT NOT NULL DEFAULT 0,
		failure_count INT NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
	);`,
	`CREATE TABLE IF NOT EXISTS crawl_failures (
		id BIGSERIAL PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		stage TEXT NOT NULL,
		reason TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS crawl_failures_run_id_idx ON crawl_failures (run_id);`,
	`CREATE TABLE IF NOT EXISTS knowledge_pages (
		chatbot_id TEXT NOT NULL,
		url TEXT NOT NULL,
		content TEXT NOT NULL,
		char_count INT NOT NULL,
		extracted_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chatbot_id, url)
	);`,
}

// EnsureSchema creates the tables used by the repositories when they are missing.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
)

// CrawlRunRepoImpl provides a concrete implementation for the CrawlRunRepository interface using PostgreSQL.
type CrawlRunRepoImpl struct {
	db DB
}

// NewCrawlRunRepo creates a new instance of CrawlRunRepoImpl.
func NewCrawlRunRepo(db DB) *CrawlRunRepoImpl {
	return &CrawlRunRepoImpl{db: db}
}

// Create inserts a new run.
func (r *CrawlRunRepoImpl) Create(ctx context.Context, run *entity.CrawlRun) error {
	query := `
		INSERT INTO crawl_runs (id, seed_url, mode, max_depth, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db.Exec(ctx, query,
		run.ID,
		run.SeedURL,
		string(run.Mode),
		run.MaxDepth,
		run.Status,
		run.StartedAt,
	)
	return err
}

// Finish stores the terminal state of a run.
func (r *CrawlRunRepoImpl) Finish(ctx context.Context, run *entity.CrawlRun) error {
	query := `
		UPDATE crawl_runs SET
			status = $2,
			page_count = $3,
			failure_count = $4,
			error = $5,
			finished_at = $6
		WHERE id = $1;
	`
	tag, err := r.db.Exec(ctx, query,
		run.ID,
		run.Status,
		run.PageCount,
		run.FailureCount,
		run.Error,
		run.FinishedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindByID retrieves one run.
func (r *CrawlRunRepoImpl) FindByID(ctx context.Context, id string) (*entity.CrawlRun, error) {
	query := `
		SELECT id, seed_url, mode, max_depth, status, page_count, failure_count, error, started_at, finished_at
		FROM crawl_runs
		WHERE id = $1;
	`
	var (
		run      entity.CrawlRun
		mode     string
		finished *time.Time
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.SeedURL,
		&mode,
		&run.MaxDepth,
		&run.Status,
		&run.PageCount,
		&run.FailureCount,
		&run.Error,
		&run.StartedAt,
		&finished,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.Mode = entity.CrawlMode(mode)
	run.FinishedAt = finished
	return &run, nil
}

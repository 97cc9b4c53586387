package postgres

import (
	"context"

	"github.com/user/kb-crawler/internal/entity"
)

// CrawlFailureRepoImpl stores page failures of crawl runs in PostgreSQL.
type CrawlFailureRepoImpl struct {
	db DB
}

// NewCrawlFailureRepo creates a new instance of CrawlFailureRepoImpl.
func NewCrawlFailureRepo(db DB) *CrawlFailureRepoImpl {
	return &CrawlFailureRepoImpl{db: db}
}

// SaveAll inserts every failure of a run in a single statement.
func (r *CrawlFailureRepoImpl) SaveAll(ctx context.Context, runID string, failures []entity.PageFailure) error {
	if len(failures) == 0 {
		return nil
	}
	urls := make([]string, len(failures))
	stages := make([]string, len(failures))
	reasons := make([]string, len(failures))
	for i, f := range failures {
		urls[i] = f.URL
		stages[i] = f.Stage
		reasons[i] = f.Reason
	}

	query := `
		INSERT INTO crawl_failures (run_id, url, stage, reason)
		SELECT $1, u.url, u.stage, u.reason
		FROM unnest($2::text[], $3::text[], $4::text[]) AS u(url, stage, reason);
	`
	_, err := r.db.Exec(ctx, query, runID, urls, stages, reasons)
	return err
}

// FindByRun returns the failures of a run in insertion order.
func (r *CrawlFailureRepoImpl) FindByRun(ctx context.Context, runID string) ([]entity.PageFailure, error) {
	query := `
		SELECT url, stage, reason
		FROM crawl_failures
		WHERE run_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []entity.PageFailure
	for rows.Next() {
		var f entity.PageFailure
		if err := rows.Scan(&f.URL, &f.Stage, &f.Reason); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

package repository

import (
	"context"

	"github.com/user/kb-crawler/internal/entity"
)

// CrawlRunRepository stores the lifecycle record of every crawl.
type CrawlRunRepository interface {
	// Create inserts a run in the running state.
	Create(ctx context.Context, run *entity.CrawlRun) error
	// Finish stores the terminal status and counters of a run.
	Finish(ctx context.Context, run *entity.CrawlRun) error
	// FindByID returns ErrNotFound when no run has the given id.
	FindByID(ctx context.Context, id string) (*entity.CrawlRun, error)
}

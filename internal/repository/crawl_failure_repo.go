package repository

import (
	"context"

	"github.com/user/kb-crawler/internal/entity"
)

// CrawlFailureRepository keeps the per-page failures of a run.
type CrawlFailureRepository interface {
	SaveAll(ctx context.Context, runID string, failures []entity.PageFailure) error
	FindByRun(ctx context.Context, runID string) ([]entity.PageFailure, error)
}

package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
	"go.uber.org/zap"
)

// CrawlRuns records the lifecycle of crawls and serves their status.
type CrawlRuns interface {
	// Start records a running crawl. The returned run is usable even when persisting it failed.
	Start(ctx context.Context, req entity.CrawlRequest) *entity.CrawlRun
	// Finish records the terminal state derived from the crawl result.
	Finish(ctx context.Context, run *entity.CrawlRun, outcome *entity.CrawlOutcome, crawlErr error)
	// Get returns a run and its page failures.
	Get(ctx context.Context, id string) (*entity.CrawlRun, []entity.PageFailure, error)
}

type crawlRunUseCase struct {
	runRepo     repository.CrawlRunRepository
	failureRepo repository.CrawlFailureRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewCrawlRuns creates a new CrawlRuns use case.
func NewCrawlRuns(
	runRepo repository.CrawlRunRepository,
	failureRepo repository.CrawlFailureRepository,
	logger *zap.Logger,
) CrawlRuns {
	return &crawlRunUseCase{
		runRepo:     runRepo,
		failureRepo: failureRepo,
		logger:      logger,
		now:         time.Now,
	}
}

func (uc *crawlRunUseCase) Start(ctx context.Context, req entity.CrawlRequest) *entity.CrawlRun {
	run := &entity.CrawlRun{
		ID:        uuid.NewString(),
		SeedURL:   req.SeedURL,
		Mode:      req.Mode,
		MaxDepth:  req.MaxDepth,
		Status:    entity.RunRunning,
		StartedAt: uc.now().UTC(),
	}
	if err := uc.runRepo.Create(ctx, run); err != nil {
		// Run history is best effort; the crawl itself goes ahead.
		uc.logger.Error("Failed to record crawl run", zap.String("run_id", run.ID), zap.Error(err))
	}
	return run
}

func (uc *crawlRunUseCase) Finish(ctx context.Context, run *entity.CrawlRun, outcome *entity.CrawlOutcome, crawlErr error) {
	finished := uc.now().UTC()
	run.FinishedAt = &finished
	run.Status = runStatus(outcome, crawlErr)
	if crawlErr != nil {
		run.Error = crawlErr.Error()
	}
	var failures []entity.PageFailure
	if outcome != nil {
		run.PageCount = len(outcome.Pages)
		failures = outcome.Failures
	}
	run.FailureCount = len(failures)

	if err := uc.runRepo.Finish(ctx, run); err != nil {
		uc.logger.Error("Failed to finish crawl run", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	if err := uc.failureRepo.SaveAll(ctx, run.ID, failures); err != nil {
		uc.logger.Error("Failed to save crawl failures", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (uc *crawlRunUseCase) Get(ctx context.Context, id string) (*entity.CrawlRun, []entity.PageFailure, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, repository.ErrNotFound
	}
	run, err := uc.runRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	failures, err := uc.failureRepo.FindByRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, failures, nil
}

func runStatus(outcome *entity.CrawlOutcome, crawlErr error) string {
	switch {
	case crawlErr == nil && !outcome.Empty():
		return entity.RunCompleted
	case errors.Is(crawlErr, ErrNoLinksFound):
		return entity.RunEmpty
	case errors.Is(crawlErr, repository.ErrCrawlTimeout):
		return entity.RunTimeout
	default:
		return entity.RunFailed
	}
}

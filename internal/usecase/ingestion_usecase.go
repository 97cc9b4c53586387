package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
	"github.com/user/kb-crawler/pkg/metrics"
	"go.uber.org/zap"
)

// Ingestion hands extracted pages over to a chatbot's knowledge base.
type Ingestion interface {
	// Handoff stores the pages for chatbotID and enqueues an ingestion job.
	Handoff(ctx context.Context, chatbotID string, outcome *entity.CrawlOutcome) (*entity.IngestJob, error)
}

type ingestionUseCase struct {
	pageRepo  repository.KnowledgePageRepository
	queueRepo repository.IngestQueueRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewIngestionUseCase creates a new Ingestion use case.
func NewIngestionUseCase(
	pageRepo repository.KnowledgePageRepository,
	queueRepo repository.IngestQueueRepository,
	logger *zap.Logger,
) Ingestion {
	return &ingestionUseCase{
		pageRepo:  pageRepo,
		queueRepo: queueRepo,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *ingestionUseCase) Handoff(ctx context.Context, chatbotID string, outcome *entity.CrawlOutcome) (*entity.IngestJob, error) {
	if chatbotID == "" {
		return nil, fmt.Errorf("%w: chatbot id is required", ErrInvalidRequest)
	}
	if outcome.Empty() {
		return nil, ErrNoLinksFound
	}

	at := uc.now().UTC()
	pages := make([]entity.KnowledgePage, 0, len(outcome.Pages))
	job := &entity.IngestJob{ChatbotID: chatbotID, EnqueuedAt: at}
	for _, p := range outcome.Pages {
		pages = append(pages, entity.KnowledgePage{
			ChatbotID:   chatbotID,
			URL:         p.Link,
			Content:     p.Content,
			CharCount:   p.CharCount(),
			ExtractedAt: at,
		})
		job.URLs = append(job.URLs, p.Link)
	}

	if err := uc.pageRepo.SaveAll(ctx, pages); err != nil {
		metrics.IngestJobsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to save knowledge pages for %s: %w", chatbotID, err)
	}
	if err := uc.queueRepo.Push(ctx, job); err != nil {
		metrics.IngestJobsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to enqueue ingestion job for %s: %w", chatbotID, err)
	}
	metrics.IngestJobsTotal.WithLabelValues("queued").Inc()

	if size, err := uc.queueRepo.Size(ctx); err == nil {
		metrics.IngestQueueDepth.Set(float64(size))
	} else {
		uc.logger.Warn("Failed to read ingestion queue size", zap.Error(err))
	}

	uc.logger.Info("Handed pages to knowledge base", zap.String("chatbot_id", chatbotID), zap.Int("pages", len(pages)))
	return job, nil
}

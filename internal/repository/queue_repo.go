package repository

import (
	"context"

	"github.com/user/kb-crawler/internal/entity"
)

// IngestQueueRepository is a FIFO queue of ingestion jobs consumed by the embedding pipeline.
type IngestQueueRepository interface {
	// Push adds a job to the end of the queue.
	Push(ctx context.Context, job *entity.IngestJob) error
	// Size returns the current number of jobs in the queue.
	Size(ctx context.Context) (int64, error)
}

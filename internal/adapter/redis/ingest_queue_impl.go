package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/user/kb-crawler/internal/entity"
)

const ingestQueueKey = "kbcrawler:ingest"

// IngestQueueRepoImpl provides a concrete implementation for the IngestQueueRepository interface using Redis Lists.
type IngestQueueRepoImpl struct {
	client *redis.Client
}

// NewIngestQueueRepo creates a new instance of IngestQueueRepoImpl.
func NewIngestQueueRepo(client *redis.Client) *IngestQueueRepoImpl {
	return &IngestQueueRepoImpl{client: client}
}

// Push adds a job to the left side of the list. Consumers RPOP from the right.
func (r *IngestQueueRepoImpl) Push(ctx context.Context, job *entity.IngestJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, ingestQueueKey, raw).Err()
}

// Size returns the current number of jobs in the queue.
func (r *IngestQueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, ingestQueueKey).Result()
}

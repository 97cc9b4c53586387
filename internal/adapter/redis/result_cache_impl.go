package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/kb-crawler/internal/entity"
)

const resultCachePrefix = "kbcrawler:result:"

// ResultCacheRepoImpl provides a concrete implementation for the ResultCacheRepository interface using Redis.
type ResultCacheRepoImpl struct {
	client *redis.Client
}

// NewResultCacheRepo creates a new instance of ResultCacheRepoImpl.
func NewResultCacheRepo(client *redis.Client) *ResultCacheRepoImpl {
	return &ResultCacheRepoImpl{client: client}
}

func (r *ResultCacheRepoImpl) generateKey(key string) string {
	return fmt.Sprintf("%s%s", resultCachePrefix, key)
}

// Get returns the cached outcome, or nil when the key is absent or expired.
func (r *ResultCacheRepoImpl) Get(ctx context.Context, key string) (*entity.CrawlOutcome, error) {
	raw, err := r.client.Get(ctx, r.generateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var outcome entity.CrawlOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, fmt.Errorf("decode cached outcome: %w", err)
	}
	return &outcome, nil
}

// Set stores the outcome with an expiry. Run ids are not cached.
func (r *ResultCacheRepoImpl) Set(ctx context.Context, key string, outcome *entity.CrawlOutcome, ttl time.Duration) error {
	stored := *outcome
	stored.RunID = ""
	raw, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.generateKey(key), raw, ttl).Err()
}

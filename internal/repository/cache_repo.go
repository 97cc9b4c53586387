package repository

import (
	"context"
	"time"

	"github.com/user/kb-crawler/internal/entity"
)

// ResultCacheRepository caches finished crawl outcomes.
type ResultCacheRepository interface {
	// Get returns nil without error on a cache miss.
	Get(ctx context.Context, key string) (*entity.CrawlOutcome, error)
	Set(ctx context.Context, key string, outcome *entity.CrawlOutcome, ttl time.Duration) error
}

// RobotsCacheRepository caches fetched robots.txt files per origin.
type RobotsCacheRepository interface {
	// Get reports found=false on a cache miss.
	Get(ctx context.Context, origin string) (status int, body string, found bool, err error)
	Set(ctx context.Context, origin string, status int, body string, ttl time.Duration) error
}

// RobotsPolicy decides whether a URL may be crawled.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

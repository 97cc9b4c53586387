package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/kb-crawler/pkg/utils"
)

const robotsCachePrefix = "kbcrawler:robots:"

// RobotsCacheRepoImpl caches robots.txt responses per origin in Redis hashes.
type RobotsCacheRepoImpl struct {
	client *redis.Client
}

// NewRobotsCacheRepo creates a new instance of RobotsCacheRepoImpl.
func NewRobotsCacheRepo(client *redis.Client) *RobotsCacheRepoImpl {
	return &RobotsCacheRepoImpl{client: client}
}

func (r *RobotsCacheRepoImpl) generateKey(origin string) string {
	return fmt.Sprintf("%s%s", robotsCachePrefix, utils.HashURL(origin))
}

// Get returns the cached status code and body for an origin.
func (r *RobotsCacheRepoImpl) Get(ctx context.Context, origin string) (int, string, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.generateKey(origin)).Result()
	if err != nil {
		return 0, "", false, err
	}
	if len(fields) == 0 {
		return 0, "", false, nil
	}
	status, err := strconv.Atoi(fields["status"])
	if err != nil {
		return 0, "", false, fmt.Errorf("decode cached robots status: %w", err)
	}
	return status, fields["body"], true, nil
}

// Set stores the response and its expiry in one transaction.
func (r *RobotsCacheRepoImpl) Set(ctx context.Context, origin string, status int, body string, ttl time.Duration) error {
	key := r.generateKey(origin)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "status", status, "body", body)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

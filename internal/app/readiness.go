package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/receipt-processor/internal/receipt"
)

type readinessChecker struct {
	store *receipt.Store
	redis *redis.Client
}

func (c readinessChecker) StoreSize() int {
	if c.store == nil {
		return 0
	}
	return c.store.Count()
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) (bool, error) {
	if c.redis == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return true, c.redis.Ping(ctx).Err()
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateStore keeps fixed-window counters in redis.
type RateStore struct {
	client *redis.Client
}

// NewRateStore creates a new rate store
func NewRateStore(client *redis.Client) *RateStore {
	return &RateStore{client: client}
}

// IncrementWindow bumps the counter under key, starting the window on first
// increment, and returns the new count plus the time left in the window.
func (r *RateStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate window: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

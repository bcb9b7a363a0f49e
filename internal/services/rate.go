package services

import (
	"context"
	"fmt"
	"time"
)

// WindowStore is the counter backend for the rate limiter.
type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter applies a per-user fixed-window limit to an action. A nil
// store disables limiting entirely.
type RateLimiter struct {
	store  WindowStore
	action string
	limit  int
	window time.Duration
}

// NewRateLimiter creates a rate limiter for one action.
func NewRateLimiter(store WindowStore, action string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  store,
		action: action,
		limit:  limit,
		window: window,
	}
}

// Allow reports whether the user may perform the action now; when denied it
// also returns the seconds until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, userID string) (bool, int64, error) {
	if l == nil || l.store == nil || l.limit <= 0 {
		return true, 0, nil
	}

	key := fmt.Sprintf("rate:%s:%s", l.action, userID)
	count, remaining, err := l.store.IncrementWindow(ctx, key, l.window)
	if err != nil {
		return false, 0, err
	}
	if count > int64(l.limit) {
		retryAfter := int64(remaining / time.Second)
		if remaining%time.Second != 0 {
			retryAfter++
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}

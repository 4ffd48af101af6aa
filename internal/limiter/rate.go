package limiter

import (
	"context"
	"sync"
	"time"
)

// RateLimiter bounds the number of requests issued in any one second window.
type RateLimiter struct {
	requestTimes []time.Time
	maxRequests  int
	retryDelay   time.Duration
	mu           sync.Mutex
}

func NewRateLimiter(maxRequests int, retryDelay time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}
	return &RateLimiter{
		requestTimes: make([]time.Time, 0, maxRequests),
		maxRequests:  maxRequests,
		retryDelay:   retryDelay,
	}
}

// Allow reports whether a new request may go out now.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	oneSecondAgo := now.Add(-1 * time.Second)

	// Drop requests older than one second
	validTimes := make([]time.Time, 0, len(r.requestTimes))
	for _, t := range r.requestTimes {
		if t.After(oneSecondAgo) {
			validTimes = append(validTimes, t)
		}
	}
	r.requestTimes = validTimes

	if len(r.requestTimes) < r.maxRequests {
		r.requestTimes = append(r.requestTimes, now)
		return true
	}

	return false
}

// Wait blocks until a slot opens or the context is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for !r.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}
	return nil
}

package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrRateLimitExceeded is returned when the rate limit is exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// RateLimiter allows up to maxCalls calls per window. Tokens refill evenly
// across the window and bursts are capped at maxCalls.
type RateLimiter struct {
	limiter        *rate.Limiter
	maxCalls       int
	windowDuration time.Duration
}

// NewRateLimiter creates a new rate limiter with the specified max calls and window duration
func NewRateLimiter(maxCalls int, windowDuration time.Duration) *RateLimiter {
	if maxCalls <= 0 {
		maxCalls = 1 // Minimum 1 call
	}
	if windowDuration <= 0 {
		windowDuration = time.Minute // Default to 1 minute
	}

	interval := windowDuration / time.Duration(maxCalls)

	return &RateLimiter{
		limiter:        rate.NewLimiter(rate.Every(interval), maxCalls),
		maxCalls:       maxCalls,
		windowDuration: windowDuration,
	}
}

// Allow reports whether a call may happen now without waiting.
func (rl *RateLimiter) Allow(_ context.Context) error {
	if !rl.limiter.Allow() {
		return ErrRateLimitExceeded
	}
	return nil
}

// Wait blocks until a call is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	}
	return nil
}

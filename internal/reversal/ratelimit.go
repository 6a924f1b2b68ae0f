package reversal

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token-bucket limiter over requests per minute, shared
// by all narration calls against one backend.
type RateLimiter struct {
	mu        sync.Mutex
	rpm       float64
	tokens    float64
	maxTokens float64
	last      time.Time
}

// NewRateLimiter creates a limiter allowing rpm requests per minute.
func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		rpm:       float64(rpm),
		tokens:    float64(rpm),
		maxTokens: float64(rpm),
		last:      time.Now(),
	}
}

// Acquire blocks until a token is available or ctx is done.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.tokens = min(l.maxTokens, l.tokens+elapsed*(l.rpm/60))
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		l.mu.Unlock()
		return nil
	}

	wait := time.Duration((1 - l.tokens) * (60 / l.rpm) * float64(time.Second))
	l.tokens = 0
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

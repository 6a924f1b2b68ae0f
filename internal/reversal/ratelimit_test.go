package reversal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstUpToRPM(t *testing.T) {
	l := NewRateLimiter(10)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	// A full bucket should not block
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiterHonorsCancellation(t *testing.T) {
	// 1 rpm: the second acquire would wait close to a minute
	l := NewRateLimiter(1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

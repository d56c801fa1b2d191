package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryEnforcesMinimumInterval(t *testing.T) {
	l := Every("feeds", 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestWaitHonoursCancellation(t *testing.T) {
	l := Every("feeds", time.Hour)
	require.True(t, l.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feeds")
}

func TestNewAllowsBurst(t *testing.T) {
	l := New("api", 3)
	assert.Equal(t, "api", l.Name())
	assert.True(t, l.limiter.Allow())
	assert.True(t, l.limiter.Allow())
	assert.True(t, l.limiter.Allow())
	assert.False(t, l.limiter.Allow())
}

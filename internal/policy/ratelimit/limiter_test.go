package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterWaitDelaysAfterBurst(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "api"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "api"))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 0.1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "b"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{RequestsPerSecond: 0.1, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "api"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "api"))
}

func TestUnlimitedAndNil(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "api"))
	}

	var nilLimiter *Limiter
	require.NoError(t, nilLimiter.Wait(context.Background(), "api"))
}

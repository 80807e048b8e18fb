package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

func TestCachePutGetInvalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewCache()

	_, ok, err := cache.Get(ctx, "https://example.com")
	require.NoError(t, err)
	require.False(t, ok)

	first := llmstxt.CacheEntry{
		TargetURL:    "https://example.com",
		ManifestText: "## Homepage\n",
		CreatedAt:    time.Unix(100, 0),
	}
	require.NoError(t, cache.Put(ctx, first))

	second := first
	second.ManifestText = "## Docs\n"
	second.CreatedAt = time.Unix(200, 0)
	require.NoError(t, cache.Put(ctx, second))

	got, ok, err := cache.Get(ctx, "https://example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, got)

	require.NoError(t, cache.Invalidate(ctx, "https://example.com"))
	_, ok, err = cache.Get(ctx, "https://example.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Invalidate(ctx, "https://missing.example"))
}

// Package local_test tests the local filesystem cache.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
	"github.com/JakeFAU/llmstxt-generator/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cache, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, cache)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "cache")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestCacheRoundTripSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cache, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	entry := llmstxt.CacheEntry{TargetURL: "https://example.com", ManifestText: "## Homepage\n", CreatedAt: created}
	require.NoError(t, cache.Put(ctx, entry))

	reopened, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	got, ok, err := reopened.Get(ctx, "https://example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.ManifestText, got.ManifestText)
	assert.True(t, got.CreatedAt.Equal(created))

	require.NoError(t, reopened.Invalidate(ctx, "https://example.com"))
	require.NoError(t, reopened.Invalidate(ctx, "https://example.com"))
	_, ok, err = reopened.Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachePutOverwrites(t *testing.T) {
	ctx := context.Background()
	cache, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, cache.Put(ctx, llmstxt.CacheEntry{TargetURL: "https://example.com", ManifestText: "old", CreatedAt: time.Unix(1, 0)}))
	require.NoError(t, cache.Put(ctx, llmstxt.CacheEntry{TargetURL: "https://example.com", ManifestText: "new", CreatedAt: time.Unix(2, 0)}))

	got, ok, err := cache.Get(ctx, "https://example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.ManifestText)
}

func TestCachePutRequiresURL(t *testing.T) {
	cache, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	assert.Error(t, cache.Put(context.Background(), llmstxt.CacheEntry{ManifestText: "x"}))
}

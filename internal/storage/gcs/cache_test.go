package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

func newTestCache(t *testing.T, handler http.Handler) *Cache {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(
		context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cache, err := New(client, Config{Bucket: "test-bucket", Prefix: "manifests"})
	require.NoError(t, err)
	return cache
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close() //nolint:errcheck // test cleanup
	_, err = New(client, Config{})
	assert.Error(t, err)
}

func TestCachePutUploadsJSON(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		body string
		name string
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/test-bucket/o")
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		mu.Lock()
		body = string(data)
		name = r.URL.Query().Get("name")
		mu.Unlock()
		_, _ = io.WriteString(w, `{"name":"ok","bucket":"test-bucket"}`)
	})
	cache := newTestCache(t, handler)

	entry := llmstxt.CacheEntry{
		TargetURL:    "https://example.com",
		ManifestText: "## Homepage\n",
		CreatedAt:    time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, cache.Put(context.Background(), entry))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, body, `"manifest_text":"## Homepage\n"`)
	assert.Contains(t, body, `"target_url":"https://example.com"`)
	if name != "" {
		assert.Equal(t, cache.ObjectName("https://example.com"), name)
	}
	assert.True(t, strings.HasPrefix(cache.ObjectName("https://example.com"), "manifests/example.com/"))
}

func TestCachePutServerError(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	err := cache.Put(context.Background(), llmstxt.CacheEntry{TargetURL: "https://example.com", ManifestText: "x"})
	assert.Error(t, err)
}

func TestCacheMissingObject(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, ok, err := cache.Get(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, cache.Invalidate(context.Background(), "https://example.com"))
}

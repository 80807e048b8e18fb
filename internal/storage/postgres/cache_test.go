package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

func newMockCache(t *testing.T) (pgxmock.PgxPoolIface, *Cache) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	cache, err := NewCacheWithPool(mock, "")
	require.NoError(t, err)
	return mock, cache
}

func TestCachePutUpserts(t *testing.T) {
	t.Parallel()

	mock, cache := newMockCache(t)
	created := time.Unix(1_700_000_000, 0).UTC()

	mock.ExpectExec("INSERT INTO manifest_cache").
		WithArgs("https://example.com", "## Homepage\n", created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := cache.Put(context.Background(), llmstxt.CacheEntry{
		TargetURL:    "https://example.com",
		ManifestText: "## Homepage\n",
		CreatedAt:    created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGetHitAndMiss(t *testing.T) {
	t.Parallel()

	mock, cache := newMockCache(t)
	created := time.Unix(1_700_000_000, 0).UTC()

	mock.ExpectQuery("SELECT manifest_text, created_at FROM manifest_cache").
		WithArgs("https://example.com").
		WillReturnRows(pgxmock.NewRows([]string{"manifest_text", "created_at"}).AddRow("text", created))
	mock.ExpectQuery("SELECT manifest_text, created_at FROM manifest_cache").
		WithArgs("https://missing.example").
		WillReturnError(pgx.ErrNoRows)

	entry, ok, err := cache.Get(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "text", entry.ManifestText)
	require.True(t, entry.CreatedAt.Equal(created))

	_, ok, err = cache.Get(context.Background(), "https://missing.example")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGetPropagatesErrors(t *testing.T) {
	t.Parallel()

	mock, cache := newMockCache(t)
	mock.ExpectQuery("SELECT").WithArgs("https://example.com").WillReturnError(errors.New("boom"))

	_, _, err := cache.Get(context.Background(), "https://example.com")
	require.ErrorContains(t, err, "boom")
}

func TestCacheInvalidateAndSchema(t *testing.T) {
	t.Parallel()

	mock, cache := newMockCache(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS manifest_cache").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("DELETE FROM manifest_cache").
		WithArgs("https://example.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, cache.EnsureSchema(context.Background()))
	require.NoError(t, cache.Invalidate(context.Background(), "https://example.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewCacheWithPoolRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewCacheWithPool(mock, "drop table;")
	require.Error(t, err)
	_, err = NewCacheWithPool(nil, "")
	require.Error(t, err)
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, jobsTotal)
	require.NotNil(t, cacheLookupsTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserveCounters(t *testing.T) {
	Init()
	before := testutil.ToFloat64(jobsTotal.WithLabelValues("completed"))
	ObserveJob("completed")
	require.Equal(t, before+1, testutil.ToFloat64(jobsTotal.WithLabelValues("completed")))

	beforeHit := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit"))
	ObserveCacheLookup("hit")
	require.Equal(t, beforeHit+1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit")))

	beforeProvider := testutil.ToFloat64(providerRequestsTotal.WithLabelValues("submit", "ok"))
	ObserveProviderRequest("submit", "ok", 20*time.Millisecond)
	require.Equal(t, beforeProvider+1, testutil.ToFloat64(providerRequestsTotal.WithLabelValues("submit", "ok")))

	ObserveManifestPages(12)
	ObserveRateLimitDelay("api.example.com", 5*time.Millisecond)
	require.Positive(t, testutil.CollectAndCount(manifestPages))
	require.Positive(t, testutil.CollectAndCount(rateLimitDelaySeconds))
}

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/teapot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	beforeOK := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200"))
	beforeTeapot := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "418"))

	for _, path := range []string{"/ok", "/teapot"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, beforeOK+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "200")))
	require.Equal(t, beforeTeapot+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "418")))
	require.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}

package llmstxt

import (
	"context"
	"time"
)

// CrawlJobClient is the capability consumed from the external crawl provider.
type CrawlJobClient interface {
	Submit(ctx context.Context, targetURL string, opts SubmitOptions) (string, error)
	Poll(ctx context.Context, externalJobID string) (PollResult, error)
}

// ProviderChecker is optionally implemented by clients that can verify connectivity.
type ProviderChecker interface {
	Check(ctx context.Context) error
}

// ResultCache stores one manifest per normalized target URL. Get reports a
// miss with ok=false and a nil error. Put overwrites any prior entry atomically.
type ResultCache interface {
	Get(ctx context.Context, targetURL string) (entry CacheEntry, ok bool, err error)
	Put(ctx context.Context, entry CacheEntry) error
	Invalidate(ctx context.Context, targetURL string) error
}

// JobStore holds job records. GetJob and SaveJob return ErrNotFound for unknown IDs.
type JobStore interface {
	CreateJob(ctx context.Context, job JobRecord) error
	GetJob(ctx context.Context, jobID string) (JobRecord, error)
	SaveJob(ctx context.Context, job JobRecord) error
	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context) ([]JobRecord, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}

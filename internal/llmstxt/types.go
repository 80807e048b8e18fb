package llmstxt

import "time"

// JobState represents the lifecycle state of a manifest job.
type JobState string

// Job state values. Queued and Running are transient; Completed and Failed are terminal.
const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether no further poll-driven transition is possible.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// CrawlRequest is a request to build a manifest for a site.
type CrawlRequest struct {
	TargetURL string `json:"url"`
	PageLimit int    `json:"limit"`
}

// Page is a single page reported by the crawl provider. Empty strings mean absent.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Progress carries provider-reported crawl counters while a job runs.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// JobRecord is the orchestrator-owned state for one job.
type JobRecord struct {
	ID            string
	TargetURL     string
	PageLimit     int
	ExternalJobID string
	State         JobState
	CreatedAt     time.Time
	CompletedAt   *time.Time
	LastPolledAt  *time.Time
	Pages         []Page
	ManifestText  string
	ErrorDetail   string
	FromCache     bool
	Progress      Progress
}

// LastActivity returns the most recent time the record was touched.
func (r JobRecord) LastActivity() time.Time {
	last := r.CreatedAt
	if r.LastPolledAt != nil && r.LastPolledAt.After(last) {
		last = *r.LastPolledAt
	}
	if r.CompletedAt != nil && r.CompletedAt.After(last) {
		last = *r.CompletedAt
	}
	return last
}

// Status projects the record into the shape returned to pollers.
func (r JobRecord) Status() JobStatus {
	status := JobStatus{
		JobID:     r.ID,
		State:     r.State,
		TargetURL: r.TargetURL,
		FromCache: r.FromCache,
	}
	switch r.State {
	case JobStateCompleted:
		status.ManifestText = r.ManifestText
		if r.CompletedAt != nil {
			completed := *r.CompletedAt
			status.CompletedAt = &completed
		}
	case JobStateFailed:
		status.ErrorDetail = r.ErrorDetail
	case JobStateRunning:
		progress := r.Progress
		status.Progress = &progress
	}
	return status
}

// JobStatus is the externally visible job shape. ManifestText is set iff the
// job completed and ErrorDetail iff it failed.
type JobStatus struct {
	JobID        string     `json:"job_id"`
	State        JobState   `json:"state"`
	TargetURL    string     `json:"target_url"`
	ManifestText string     `json:"manifest_text,omitempty"`
	ErrorDetail  string     `json:"error_detail,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	FromCache    bool       `json:"from_cache,omitempty"`
	Progress     *Progress  `json:"progress,omitempty"`
}

// CacheEntry is a cached manifest keyed by normalized target URL.
type CacheEntry struct {
	TargetURL    string    `json:"target_url"`
	ManifestText string    `json:"manifest_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsFresh reports whether the entry is younger than threshold at now.
func (e CacheEntry) IsFresh(now time.Time, threshold time.Duration) bool {
	return now.Sub(e.CreatedAt) < threshold
}

// ProviderStatus is the tagged state reported by CrawlJobClient.Poll.
type ProviderStatus string

// Provider status variants.
const (
	ProviderRunning   ProviderStatus = "running"
	ProviderCompleted ProviderStatus = "completed"
	ProviderFailed    ProviderStatus = "failed"
)

// PollResult is the provider's view of an external job. Pages is only
// meaningful for ProviderCompleted, ErrorMessage only for ProviderFailed.
type PollResult struct {
	Status       ProviderStatus
	Pages        []Page
	ErrorMessage string
	Progress     Progress
}

// SubmitOptions are passed through to the crawl provider on submission.
type SubmitOptions struct {
	PageLimit      int
	MaxConcurrency int
	Proxy          string
	Country        string
	CacheMaxAgeMs  int64
}

// ManifestEvent is published whenever a job reaches Completed.
type ManifestEvent struct {
	JobID       string    `json:"job_id"`
	TargetURL   string    `json:"target_url"`
	GroupCount  int       `json:"group_count"`
	PageCount   int       `json:"page_count"`
	CompletedAt time.Time `json:"completed_at"`
	FromCache   bool      `json:"from_cache"`
}

// Package memory provides in-memory job and cache stores for single-process deployments and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// JobStore keeps job records in a map guarded by a RWMutex.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]llmstxt.JobRecord
}

// NewJobStore constructs an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]llmstxt.JobRecord),
	}
}

// CreateJob stores a new record.
func (s *JobStore) CreateJob(_ context.Context, job llmstxt.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = cloneRecord(job)
	return nil
}

// GetJob fetches a record by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (llmstxt.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return llmstxt.JobRecord{}, fmt.Errorf("get job %s: %w", jobID, llmstxt.ErrNotFound)
	}
	return cloneRecord(job), nil
}

// SaveJob replaces an existing record.
func (s *JobStore) SaveJob(_ context.Context, job llmstxt.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("save job %s: %w", job.ID, llmstxt.ErrNotFound)
	}
	s.jobs[job.ID] = cloneRecord(job)
	return nil
}

// DeleteJob removes a record; unknown IDs are ignored.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

// ListJobs returns copies of all records ordered by creation time.
func (s *JobStore) ListJobs(_ context.Context) ([]llmstxt.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llmstxt.JobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, cloneRecord(job))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneRecord(job llmstxt.JobRecord) llmstxt.JobRecord {
	cp := job
	if job.Pages != nil {
		cp.Pages = append([]llmstxt.Page(nil), job.Pages...)
	}
	cp.CompletedAt = pointerTime(job.CompletedAt)
	cp.LastPolledAt = pointerTime(job.LastPolledAt)
	return cp
}

func pointerTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := *t
	return &ts
}

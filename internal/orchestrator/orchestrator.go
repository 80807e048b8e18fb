// Package orchestrator drives manifest jobs through their lifecycle.
//
// Submit consults the result cache and either completes a job immediately or
// hands the URL to the crawl provider. Poll advances a running job by asking
// the provider once and, on completion, groups and formats the pages and
// stores the manifest in the cache. Refresh starts a new job for a completed
// one whose manifest has gone stale. The orchestrator never blocks on a
// crawl and owns no timers; callers drive it with repeated Poll calls.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
	"github.com/JakeFAU/llmstxt-generator/internal/manifest"
	"github.com/JakeFAU/llmstxt-generator/internal/metrics"
)

const (
	// DefaultStalenessThreshold is the age after which a manifest is refreshed.
	DefaultStalenessThreshold = 7 * 24 * time.Hour
	// DefaultTopic is the event type attached to completion events.
	DefaultTopic = "manifest.completed"

	noPagesMessage       = "no pages were found to process"
	defaultFailedMessage = "crawl failed"
)

// Config controls orchestration policy.
type Config struct {
	MaxPageLimit       int
	StalenessThreshold time.Duration
	Languages          []string
	Topic              string
	// Provider holds the per-deployment crawl options; PageLimit is taken
	// from each request.
	Provider llmstxt.SubmitOptions
}

// Orchestrator owns job records and mediates every transition.
type Orchestrator struct {
	jobs      llmstxt.JobStore
	cache     llmstxt.ResultCache
	provider  llmstxt.CrawlJobClient
	publisher llmstxt.Publisher
	clock     llmstxt.Clock
	ids       llmstxt.IDGenerator
	cfg       Config
	filter    manifest.LanguageFilter
	jobLocks  *keyedMutex
	urlLocks  *keyedMutex
	tracer    trace.Tracer
	logger    *zap.Logger
}

// New constructs an Orchestrator. publisher and logger may be nil.
func New(
	jobs llmstxt.JobStore,
	cache llmstxt.ResultCache,
	provider llmstxt.CrawlJobClient,
	publisher llmstxt.Publisher,
	clock llmstxt.Clock,
	ids llmstxt.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPageLimit <= 0 || cfg.MaxPageLimit > llmstxt.MaxPageLimit {
		cfg.MaxPageLimit = llmstxt.MaxPageLimit
	}
	if cfg.StalenessThreshold <= 0 {
		cfg.StalenessThreshold = DefaultStalenessThreshold
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	return &Orchestrator{
		jobs:      jobs,
		cache:     cache,
		provider:  provider,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		filter:    manifest.LanguageFilter(cfg.Languages),
		jobLocks:  newKeyedMutex(),
		urlLocks:  newKeyedMutex(),
		tracer:    otel.Tracer("github.com/JakeFAU/llmstxt-generator/internal/orchestrator"),
		logger:    logger,
	}
}

// StalenessThreshold returns the configured manifest lifetime.
func (o *Orchestrator) StalenessThreshold() time.Duration {
	return o.cfg.StalenessThreshold
}

// Submit validates req and either completes a job from a fresh cache entry
// or starts a provider crawl and records the job as running. Provider
// failures are returned and leave no job behind.
func (o *Orchestrator) Submit(ctx context.Context, req llmstxt.CrawlRequest) (llmstxt.JobStatus, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Submit")
	defer span.End()

	normalized, err := llmstxt.ValidateRequest(req, o.cfg.MaxPageLimit)
	if err != nil {
		return llmstxt.JobStatus{}, spanError(span, err)
	}
	span.SetAttributes(attribute.String("target_url", normalized.TargetURL), attribute.Int("page_limit", normalized.PageLimit))

	unlock := o.urlLocks.Lock(normalized.TargetURL)
	defer unlock()

	status, err := o.submitLocked(ctx, normalized)
	if err != nil {
		return llmstxt.JobStatus{}, spanError(span, err)
	}
	span.SetAttributes(attribute.String("job_id", status.JobID), attribute.Bool("from_cache", status.FromCache))
	return status, nil
}

// submitLocked expects the URL lock for req.TargetURL to be held.
func (o *Orchestrator) submitLocked(ctx context.Context, req llmstxt.CrawlRequest) (llmstxt.JobStatus, error) {
	now := o.clock.Now()
	jobID, err := o.ids.NewID()
	if err != nil {
		return llmstxt.JobStatus{}, fmt.Errorf("generate job id: %w", err)
	}
	logger := o.logger.With(zap.String("job_id", jobID), zap.String("target_url", req.TargetURL))

	if entry, ok := o.lookupFresh(ctx, req.TargetURL, now); ok {
		completedAt := entry.CreatedAt
		record := llmstxt.JobRecord{
			ID:           jobID,
			TargetURL:    req.TargetURL,
			PageLimit:    req.PageLimit,
			State:        llmstxt.JobStateCompleted,
			CreatedAt:    now,
			CompletedAt:  &completedAt,
			ManifestText: entry.ManifestText,
			FromCache:    true,
		}
		if err := o.jobs.CreateJob(ctx, record); err != nil {
			return llmstxt.JobStatus{}, fmt.Errorf("create job: %w", err)
		}
		metrics.ObserveJob(string(llmstxt.JobStateCompleted))
		groups, pages := manifest.Count(entry.ManifestText)
		o.publish(ctx, record, groups, pages)
		logger.Info("served manifest from cache", zap.Time("cached_at", entry.CreatedAt))
		return record.Status(), nil
	}

	record := llmstxt.JobRecord{
		ID:        jobID,
		TargetURL: req.TargetURL,
		PageLimit: req.PageLimit,
		State:     llmstxt.JobStateQueued,
		CreatedAt: now,
	}
	if err := o.jobs.CreateJob(ctx, record); err != nil {
		return llmstxt.JobStatus{}, fmt.Errorf("create job: %w", err)
	}
	metrics.ObserveJob(string(llmstxt.JobStateQueued))

	opts := o.cfg.Provider
	opts.PageLimit = req.PageLimit
	externalID, err := o.provider.Submit(ctx, req.TargetURL, opts)
	if err != nil {
		if derr := o.jobs.DeleteJob(context.WithoutCancel(ctx), jobID); derr != nil {
			logger.Warn("failed to discard job after submit error", zap.Error(derr))
		}
		logger.Warn("crawl submission failed", zap.Error(err))
		return llmstxt.JobStatus{}, fmt.Errorf("submit crawl for %s: %w", req.TargetURL, err)
	}

	record.ExternalJobID = externalID
	record.State = llmstxt.JobStateRunning
	if err := o.jobs.SaveJob(ctx, record); err != nil {
		return llmstxt.JobStatus{}, fmt.Errorf("save job: %w", err)
	}
	metrics.ObserveJob(string(llmstxt.JobStateRunning))
	logger.Info("crawl submitted", zap.String("external_job_id", externalID), zap.Int("page_limit", req.PageLimit))
	return record.Status(), nil
}

// lookupFresh treats cache read errors as misses so a broken cache degrades
// to extra crawls instead of failed submissions.
func (o *Orchestrator) lookupFresh(ctx context.Context, targetURL string, now time.Time) (llmstxt.CacheEntry, bool) {
	entry, ok, err := o.cache.Get(ctx, targetURL)
	switch {
	case err != nil:
		metrics.ObserveCacheLookup("error")
		o.logger.Warn("cache lookup failed", zap.String("target_url", targetURL), zap.Error(err))
		return llmstxt.CacheEntry{}, false
	case !ok:
		metrics.ObserveCacheLookup("miss")
		return llmstxt.CacheEntry{}, false
	case !entry.IsFresh(now, o.cfg.StalenessThreshold):
		metrics.ObserveCacheLookup("stale")
		return llmstxt.CacheEntry{}, false
	default:
		metrics.ObserveCacheLookup("hit")
		return entry, true
	}
}

// Get returns the current status of a job without contacting the provider.
func (o *Orchestrator) Get(ctx context.Context, jobID string) (llmstxt.JobStatus, error) {
	record, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return llmstxt.JobStatus{}, fmt.Errorf("get job: %w", err)
	}
	return record.Status(), nil
}

// Poll advances a running job by querying the provider once. Queued,
// completed and failed jobs are returned as stored. Concurrent polls of the
// same job are serialized so completion is processed at most once.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (llmstxt.JobStatus, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Poll", trace.WithAttributes(attribute.String("job_id", jobID)))
	defer span.End()

	unlock := o.jobLocks.Lock(jobID)
	defer unlock()

	record, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return llmstxt.JobStatus{}, spanError(span, fmt.Errorf("poll job: %w", err))
	}
	if record.State != llmstxt.JobStateRunning {
		span.SetAttributes(attribute.String("state", string(record.State)))
		return record.Status(), nil
	}

	logger := o.logger.With(
		zap.String("job_id", jobID),
		zap.String("target_url", record.TargetURL),
		zap.String("external_job_id", record.ExternalJobID),
	)
	now := o.clock.Now()
	record.LastPolledAt = &now

	result, err := o.provider.Poll(ctx, record.ExternalJobID)
	if err != nil && ctx.Err() != nil {
		return llmstxt.JobStatus{}, spanError(span, ctx.Err())
	}
	// The provider has answered; persist the outcome even if the caller has
	// gone away.
	ctx = context.WithoutCancel(ctx)
	switch {
	case err != nil:
		logger.Warn("provider poll failed", zap.Error(err))
		o.fail(&record, now, pollErrorMessage(err))
	case result.Status == llmstxt.ProviderRunning:
		record.Progress = result.Progress
	case result.Status == llmstxt.ProviderFailed:
		msg := result.ErrorMessage
		if msg == "" {
			msg = defaultFailedMessage
		}
		logger.Info("provider reported crawl failure", zap.String("error", msg))
		o.fail(&record, now, msg)
	case result.Status == llmstxt.ProviderCompleted:
		o.complete(ctx, &record, result.Pages, now, logger)
	default:
		o.fail(&record, now, fmt.Sprintf("unknown provider status %q", result.Status))
	}

	if err := o.jobs.SaveJob(ctx, record); err != nil {
		return llmstxt.JobStatus{}, spanError(span, fmt.Errorf("save job: %w", err))
	}
	if record.State == llmstxt.JobStateCompleted {
		groups, pages := manifest.Count(record.ManifestText)
		o.publish(ctx, record, groups, pages)
	}
	span.SetAttributes(attribute.String("state", string(record.State)))
	return record.Status(), nil
}

func (o *Orchestrator) complete(ctx context.Context, record *llmstxt.JobRecord, pages []llmstxt.Page, now time.Time, logger *zap.Logger) {
	grouped := manifest.GroupPages(pages, o.filter)
	logger.Debug("grouped crawl results",
		zap.Int("input", grouped.Stats.Input),
		zap.Int("grouped", grouped.Stats.Grouped),
		zap.Int("language_filtered", grouped.Stats.LanguageFiltered),
		zap.Int("duplicates", grouped.Stats.Duplicates),
		zap.Int("invalid", grouped.Stats.Invalid),
	)
	record.Pages = pages
	if grouped.PageCount() == 0 {
		o.fail(record, now, noPagesMessage)
		return
	}

	text := manifest.Format(grouped)
	o.storeManifest(ctx, record.TargetURL, text, now, logger)

	completedAt := now
	record.State = llmstxt.JobStateCompleted
	record.CompletedAt = &completedAt
	record.ManifestText = text
	record.ErrorDetail = ""
	record.Progress = llmstxt.Progress{Completed: len(pages), Total: len(pages)}
	metrics.ObserveJob(string(llmstxt.JobStateCompleted))
	metrics.ObserveManifestPages(grouped.PageCount())
	logger.Info("manifest generated", zap.Int("groups", len(grouped.Groups)), zap.Int("pages", grouped.PageCount()))
}

// storeManifest overwrites the cache entry under the URL lock. A failed
// write is logged; the job still completes with its manifest.
func (o *Orchestrator) storeManifest(ctx context.Context, targetURL, text string, now time.Time, logger *zap.Logger) {
	unlock := o.urlLocks.Lock(targetURL)
	defer unlock()
	entry := llmstxt.CacheEntry{TargetURL: targetURL, ManifestText: text, CreatedAt: now}
	if err := o.cache.Put(ctx, entry); err != nil {
		logger.Error("failed to cache manifest", zap.Error(err))
	}
}

func (o *Orchestrator) fail(record *llmstxt.JobRecord, now time.Time, msg string) {
	completedAt := now
	record.State = llmstxt.JobStateFailed
	record.ErrorDetail = msg
	record.CompletedAt = &completedAt
	metrics.ObserveJob(string(llmstxt.JobStateFailed))
}

func (o *Orchestrator) publish(ctx context.Context, record llmstxt.JobRecord, groups, pages int) {
	if o.publisher == nil {
		return
	}
	event := llmstxt.ManifestEvent{
		JobID:      record.ID,
		TargetURL:  record.TargetURL,
		GroupCount: groups,
		PageCount:  pages,
		FromCache:  record.FromCache,
	}
	if record.CompletedAt != nil {
		event.CompletedAt = *record.CompletedAt
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, event); err != nil {
		o.logger.Warn("failed to publish manifest event", zap.String("job_id", record.ID), zap.Error(err))
	}
}

// Refresh starts a new crawl for a completed job whose manifest is at least
// as old as the staleness threshold. A fresh job is returned unchanged with
// refreshed=false. The old cache entry stays readable until the new job
// completes and overwrites it.
func (o *Orchestrator) Refresh(ctx context.Context, jobID string) (llmstxt.JobStatus, bool, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Refresh", trace.WithAttributes(attribute.String("job_id", jobID)))
	defer span.End()

	unlock := o.jobLocks.Lock(jobID)
	defer unlock()

	record, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return llmstxt.JobStatus{}, false, spanError(span, fmt.Errorf("refresh job: %w", err))
	}
	if record.State != llmstxt.JobStateCompleted || record.CompletedAt == nil {
		return llmstxt.JobStatus{}, false, spanError(span,
			fmt.Errorf("refresh job %s in state %s: %w", jobID, record.State, llmstxt.ErrNotReady))
	}

	age := o.clock.Now().Sub(*record.CompletedAt)
	if age < o.cfg.StalenessThreshold {
		span.SetAttributes(attribute.Bool("refreshed", false))
		return record.Status(), false, nil
	}

	urlUnlock := o.urlLocks.Lock(record.TargetURL)
	defer urlUnlock()

	status, err := o.submitLocked(ctx, llmstxt.CrawlRequest{TargetURL: record.TargetURL, PageLimit: record.PageLimit})
	if err != nil {
		return llmstxt.JobStatus{}, false, spanError(span, err)
	}
	o.logger.Info("refreshed stale manifest",
		zap.String("job_id", jobID),
		zap.String("new_job_id", status.JobID),
		zap.Duration("age", age),
	)
	span.SetAttributes(attribute.Bool("refreshed", true), attribute.String("new_job_id", status.JobID))
	return status, true, nil
}

// Invalidate removes the cache entry for rawURL.
func (o *Orchestrator) Invalidate(ctx context.Context, rawURL string) error {
	targetURL, err := llmstxt.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	unlock := o.urlLocks.Lock(targetURL)
	defer unlock()
	if err := o.cache.Invalidate(ctx, targetURL); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	o.logger.Info("cache entry invalidated", zap.String("target_url", targetURL))
	return nil
}

// Reap deletes job records whose last activity precedes cutoff and returns
// how many were removed. Cache entries are not touched.
func (o *Orchestrator) Reap(ctx context.Context, cutoff time.Time) (int, error) {
	records, err := o.jobs.ListJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list jobs: %w", err)
	}
	removed := 0
	for _, candidate := range records {
		if !candidate.LastActivity().Before(cutoff) {
			continue
		}
		ok, err := o.reapOne(ctx, candidate.ID, cutoff)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// reapOne rechecks the record under its lock since a poll may have touched it.
func (o *Orchestrator) reapOne(ctx context.Context, jobID string, cutoff time.Time) (bool, error) {
	unlock := o.jobLocks.Lock(jobID)
	defer unlock()
	record, err := o.jobs.GetJob(ctx, jobID)
	if errors.Is(err, llmstxt.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get job: %w", err)
	}
	if !record.LastActivity().Before(cutoff) {
		return false, nil
	}
	if err := o.jobs.DeleteJob(ctx, jobID); err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	return true, nil
}

// CheckProvider verifies provider connectivity when the client supports it.
func (o *Orchestrator) CheckProvider(ctx context.Context) error {
	checker, ok := o.provider.(llmstxt.ProviderChecker)
	if !ok {
		return errors.New("crawl provider does not support connectivity checks")
	}
	return checker.Check(ctx)
}

// pollErrorMessage keeps provider-classified messages and hides anything
// else behind a generic one.
func pollErrorMessage(err error) string {
	var perr *llmstxt.ProviderError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return "crawl provider request failed"
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

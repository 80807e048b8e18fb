// Package api exposes the HTTP interface for the manifest service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/llmstxt-generator/internal/config"
	"github.com/JakeFAU/llmstxt-generator/internal/id/uuid"
	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
	"github.com/JakeFAU/llmstxt-generator/internal/metrics"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

const maxRequestBody = 1 << 20

// Service is the job lifecycle the handlers drive; *orchestrator.Orchestrator
// implements it.
type Service interface {
	Submit(ctx context.Context, req llmstxt.CrawlRequest) (llmstxt.JobStatus, error)
	Get(ctx context.Context, jobID string) (llmstxt.JobStatus, error)
	Poll(ctx context.Context, jobID string) (llmstxt.JobStatus, error)
	Refresh(ctx context.Context, jobID string) (llmstxt.JobStatus, bool, error)
	Invalidate(ctx context.Context, rawURL string) error
	CheckProvider(ctx context.Context) error
}

// Server wires HTTP handlers to the orchestrator.
type Server struct {
	router chi.Router
	svc    Service
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc Service, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))

	r.Get("/", s.root)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/v1", func(r chi.Router) {
			r.Post("/manifests", s.submitManifest)
			r.Route("/jobs/{job_id}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Get("/llms.txt", s.getManifestText)
				r.Post("/refresh", s.refreshJob)
			})
			r.Delete("/cache", s.invalidateCache)
			r.Get("/provider/check", s.checkProvider)
		})

		r.Post("/generate-llms-txt", s.submitManifest)
		r.Get("/crawl-status/{job_id}", s.getManifestText)
		r.Get("/test-connection", s.checkProvider)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "LLMs.txt Generator API",
		"version": Version,
		"endpoints": map[string]string{
			"generate_manifest": "/v1/manifests (POST)",
			"job_status":        "/v1/jobs/{job_id} (GET)",
			"manifest_text":     "/v1/jobs/{job_id}/llms.txt (GET)",
			"refresh":           "/v1/jobs/{job_id}/refresh (POST)",
			"invalidate_cache":  "/v1/cache?url= (DELETE)",
			"provider_check":    "/v1/provider/check (GET)",
		},
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type manifestRequest struct {
	URL   string `json:"url"`
	Limit *int   `json:"limit"`
}

type jobResponse struct {
	JobID     string           `json:"job_id"`
	State     llmstxt.JobState `json:"state"`
	StatusURL string           `json:"status_url"`
	Message   string           `json:"message"`
	Refreshed *bool            `json:"refreshed,omitempty"`
}

func (s *Server) submitManifest(w http.ResponseWriter, r *http.Request) {
	var req manifestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	limit := s.cfg.Jobs.DefaultPageLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	status, err := s.svc.Submit(r.Context(), llmstxt.CrawlRequest{TargetURL: req.URL, PageLimit: limit})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	code := http.StatusAccepted
	message := "Crawl job started successfully"
	if status.State == llmstxt.JobStateCompleted {
		code = http.StatusOK
		message = "Manifest served from cache"
	}
	writeJSON(w, code, jobResponse{
		JobID:     status.JobID,
		State:     status.State,
		StatusURL: statusURL(status.JobID),
		Message:   message,
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	status, err := s.svc.Poll(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// getManifestText polls the job and answers in plain text: the manifest when
// completed, a progress line while running, and the failure otherwise.
func (s *Server) getManifestText(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	status, err := s.svc.Poll(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	switch status.State {
	case llmstxt.JobStateCompleted:
		writeText(w, http.StatusOK, status.ManifestText)
	case llmstxt.JobStateFailed:
		writeText(w, http.StatusBadRequest, fmt.Sprintf("Job %s failed: %s", jobID, status.ErrorDetail))
	default:
		progress := llmstxt.Progress{}
		if status.Progress != nil {
			progress = *status.Progress
		}
		writeText(w, http.StatusAccepted, fmt.Sprintf(
			"Job is still running. Status: %s. Completed %d/%d pages.",
			status.State, progress.Completed, progress.Total,
		))
	}
}

func (s *Server) refreshJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDParam(w, r)
	if !ok {
		return
	}
	status, refreshed, err := s.svc.Refresh(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	message := "Manifest is still fresh"
	if refreshed {
		message = "Refresh crawl started"
	}
	writeJSON(w, http.StatusOK, jobResponse{
		JobID:     status.JobID,
		State:     status.State,
		StatusURL: statusURL(status.JobID),
		Message:   message,
		Refreshed: &refreshed,
	})
}

func (s *Server) invalidateCache(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	if err := s.svc.Invalidate(r.Context(), target); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "url": target})
}

func (s *Server) checkProvider(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CheckProvider(r.Context()); err != nil {
		s.logger.Warn("provider check failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		msg := "crawl provider connection failed"
		var perr *llmstxt.ProviderError
		if errors.As(err, &perr) {
			msg += ": " + perr.Message
		}
		writeError(w, http.StatusBadGateway, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Crawl provider connection is valid.",
	})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusForError(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
	writeError(w, code, msg)
}

// jobIDParam rejects IDs that the generator could not have issued.
func jobIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := chi.URLParam(r, "job_id")
	if !uuid.Valid(jobID) {
		writeError(w, http.StatusNotFound, "job not found")
		return "", false
	}
	return jobID, true
}

func statusURL(jobID string) string {
	return "/v1/jobs/" + jobID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		zap.L().Error("write text failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

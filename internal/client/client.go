// Package client is a small HTTP client for the manifest service API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval = 5 * time.Second
	maxBodyBytes    = 8 << 20
)

// Config controls the client.
type Config struct {
	BaseURL string
	APIKey  string
	// Interval between polls while a job is running.
	Interval time.Duration
	Timeout  time.Duration
}

// Client submits URLs and waits for their manifests.
type Client struct {
	baseURL  string
	apiKey   string
	interval time.Duration
	http     *http.Client
	logger   *zap.Logger
}

// Job is the submission response.
type Job struct {
	JobID     string `json:"job_id"`
	State     string `json:"state"`
	StatusURL string `json:"status_url"`
	Message   string `json:"message"`
}

// StatusError is returned for any unexpected HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		interval: interval,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Submit starts a manifest job. A zero limit lets the server pick its default.
func (c *Client) Submit(ctx context.Context, targetURL string, limit int) (Job, error) {
	body := map[string]any{"url": targetURL}
	if limit > 0 {
		body["limit"] = limit
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Job{}, fmt.Errorf("marshal request: %w", err)
	}
	code, data, err := c.do(ctx, http.MethodPost, "/v1/manifests", bytes.NewReader(payload))
	if err != nil {
		return Job{}, err
	}
	if code != http.StatusAccepted && code != http.StatusOK {
		return Job{}, &StatusError{StatusCode: code, Body: strings.TrimSpace(string(data))}
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decode submit response: %w", err)
	}
	if job.JobID == "" {
		return Job{}, fmt.Errorf("no job_id returned from API")
	}
	return job, nil
}

// Wait polls the job's llms.txt endpoint until the manifest is ready. Progress
// lines from 202 responses go to the logger.
func (c *Client) Wait(ctx context.Context, jobID string) (string, error) {
	path := "/v1/jobs/" + jobID + "/llms.txt"
	for {
		code, data, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", err
		}
		switch code {
		case http.StatusOK:
			return string(data), nil
		case http.StatusAccepted:
			c.logger.Info("waiting for crawl", zap.String("job_id", jobID), zap.String("status", strings.TrimSpace(string(data))))
		default:
			return "", &StatusError{StatusCode: code, Body: strings.TrimSpace(string(data))}
		}

		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("wait for job %s: %w", jobID, ctx.Err())
		case <-timer.C:
		}
	}
}

// Generate submits targetURL and waits for its manifest.
func (c *Client) Generate(ctx context.Context, targetURL string, limit int) (string, error) {
	job, err := c.Submit(ctx, targetURL, limit)
	if err != nil {
		return "", err
	}
	c.logger.Info("job started", zap.String("job_id", job.JobID), zap.String("state", job.State))
	return c.Wait(ctx, job.JobID)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

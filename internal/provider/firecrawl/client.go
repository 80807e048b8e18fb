// Package firecrawl implements llmstxt.CrawlJobClient against the Firecrawl v1 REST API.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
	"github.com/JakeFAU/llmstxt-generator/internal/metrics"
)

const (
	opSubmit = "submit"
	opPoll   = "poll"
	opCheck  = "check"

	defaultTimeout  = 30 * time.Second
	defaultCheckURL = "https://www.scrapethissite.com/pages/simple/"
	maxBodyBytes    = 32 << 20
	maxPollPages    = 100

	// defaultPagingTimeout bounds following next links for one completed
	// crawl, independent of the caller's deadline.
	defaultPagingTimeout = 2 * time.Minute
)

// Config controls the Firecrawl client.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CheckURL string

	// PagingTimeout bounds the next-link requests of one Poll.
	PagingTimeout time.Duration
}

// Waiter gates outbound calls; *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// Client talks to Firecrawl over HTTP.
type Client struct {
	baseURL       *url.URL
	apiKey        string
	checkURL      string
	pagingTimeout time.Duration
	http          *http.Client
	limiter       Waiter
	logger        *zap.Logger
}

var (
	_ llmstxt.CrawlJobClient  = (*Client)(nil)
	_ llmstxt.ProviderChecker = (*Client)(nil)
)

// New validates cfg and returns a Client. limiter may be nil.
func New(cfg Config, limiter Waiter, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("firecrawl api key is required")
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid firecrawl base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	checkURL := cfg.CheckURL
	if checkURL == "" {
		checkURL = defaultCheckURL
	}
	pagingTimeout := cfg.PagingTimeout
	if pagingTimeout <= 0 {
		pagingTimeout = defaultPagingTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:       base,
		apiKey:        cfg.APIKey,
		checkURL:      checkURL,
		pagingTimeout: pagingTimeout,
		http:          &http.Client{Timeout: timeout},
		limiter:       limiter,
		logger:        logger,
	}, nil
}

type crawlRequest struct {
	URL            string        `json:"url"`
	Limit          int           `json:"limit"`
	MaxConcurrency int           `json:"maxConcurrency,omitempty"`
	ScrapeOptions  scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats  []string  `json:"formats,omitempty"`
	MaxAge   int64     `json:"maxAge,omitempty"`
	Proxy    string    `json:"proxy,omitempty"`
	Location *location `json:"location,omitempty"`
}

type location struct {
	Country string `json:"country"`
}

type crawlResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

type statusResponse struct {
	Status    string     `json:"status"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Data      []document `json:"data"`
	Next      string     `json:"next"`
	Error     string     `json:"error"`
}

type document struct {
	Metadata metadata `json:"metadata"`
}

type metadata struct {
	SourceURL   flexString `json:"sourceURL"`
	URL         flexString `json:"url"`
	Title       flexString `json:"title"`
	Description flexString `json:"description"`
	Language    flexString `json:"language"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Submit starts an asynchronous crawl and returns Firecrawl's job ID.
func (c *Client) Submit(ctx context.Context, targetURL string, opts llmstxt.SubmitOptions) (string, error) {
	body := crawlRequest{
		URL:            targetURL,
		Limit:          opts.PageLimit,
		MaxConcurrency: opts.MaxConcurrency,
		ScrapeOptions: scrapeOptions{
			MaxAge: opts.CacheMaxAgeMs,
			Proxy:  opts.Proxy,
		},
	}
	if opts.Country != "" {
		body.ScrapeOptions.Location = &location{Country: opts.Country}
	}

	var resp crawlResponse
	if err := c.do(ctx, opSubmit, http.MethodPost, c.endpoint("/v1/crawl"), body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &llmstxt.ProviderError{
			Op:      opSubmit,
			Kind:    llmstxt.ProviderBadResponse,
			Message: "response did not include a job id",
		}
	}
	c.logger.Debug("firecrawl crawl submitted", zap.String("target_url", targetURL), zap.String("external_job_id", resp.ID))
	return resp.ID, nil
}

// Poll fetches the crawl status once. Completed crawls are paged through via
// the next links so every reported page is returned. Paging runs on its own
// budget rather than ctx's deadline: once Firecrawl reports completion, the
// result set is fetched in full or the poll fails with a timeout, so a large
// crawl cannot stay Running because each request deadline cuts paging short.
func (c *Client) Poll(ctx context.Context, externalJobID string) (llmstxt.PollResult, error) {
	var status statusResponse
	if err := c.do(ctx, opPoll, http.MethodGet, c.endpoint("/v1/crawl/"+url.PathEscape(externalJobID)), nil, &status); err != nil {
		return llmstxt.PollResult{}, err
	}

	switch strings.ToLower(status.Status) {
	case "completed":
		pages := collectPages(nil, status.Data)
		next := status.Next
		if next == "" {
			return llmstxt.PollResult{Status: llmstxt.ProviderCompleted, Pages: pages}, nil
		}
		pageCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.pagingTimeout)
		defer cancel()
		for i := 0; next != "" && i < maxPollPages; i++ {
			nextURL, ok := c.sameHost(next)
			if !ok {
				c.logger.Warn("ignoring firecrawl next link on foreign host", zap.String("next", next))
				break
			}
			var more statusResponse
			if err := c.do(pageCtx, opPoll, http.MethodGet, nextURL, nil, &more); err != nil {
				return llmstxt.PollResult{}, err
			}
			pages = collectPages(pages, more.Data)
			next = more.Next
		}
		return llmstxt.PollResult{Status: llmstxt.ProviderCompleted, Pages: pages}, nil
	case "failed", "cancelled":
		msg := status.Error
		if msg == "" {
			msg = "crawl " + strings.ToLower(status.Status)
		}
		return llmstxt.PollResult{Status: llmstxt.ProviderFailed, ErrorMessage: msg}, nil
	default:
		return llmstxt.PollResult{
			Status:   llmstxt.ProviderRunning,
			Progress: llmstxt.Progress{Completed: status.Completed, Total: status.Total},
		}, nil
	}
}

// Check scrapes a known URL to verify the API key and connectivity.
func (c *Client) Check(ctx context.Context) error {
	body := map[string]any{
		"url":     c.checkURL,
		"formats": []string{"markdown"},
	}
	var resp json.RawMessage
	return c.do(ctx, opCheck, http.MethodPost, c.endpoint("/v1/scrape"), body, &resp)
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// sameHost only accepts links on the configured API host so the bearer token
// never leaves it.
func (c *Client) sameHost(raw string) (string, bool) {
	u, err := c.baseURL.Parse(raw)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Host, c.baseURL.Host) || u.Scheme != c.baseURL.Scheme {
		return "", false
	}
	return u.String(), true
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.baseURL.Host); err != nil {
			return err
		}
	}
	start := time.Now()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("new %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.observe(op, start, c.transportError(op, err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("failed to close firecrawl response body", zap.Error(cerr))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.observe(op, start, c.transportError(op, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.observe(op, start, &llmstxt.ProviderError{
			Op:         op,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    c.redact(errorMessage(resp.StatusCode, data)),
		})
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.observe(op, start, &llmstxt.ProviderError{
			Op:         op,
			Kind:       llmstxt.ProviderBadResponse,
			StatusCode: resp.StatusCode,
			Message:    "malformed response body",
			Err:        err,
		})
	}
	return c.observe(op, start, nil)
}

func (c *Client) observe(op string, start time.Time, err error) error {
	elapsed := time.Since(start)
	outcome := "ok"
	var perr *llmstxt.ProviderError
	if errors.As(err, &perr) {
		outcome = string(perr.Kind)
	} else if err != nil {
		outcome = "error"
	}
	metrics.ObserveProviderRequest(op, outcome, elapsed)
	return err
}

// transportError classifies a failed round trip. The message shown to callers
// names only the failure kind; *url.Error text carries the endpoint and the
// dialed address, so it goes to the log instead.
func (c *Client) transportError(op string, err error) error {
	kind := llmstxt.ProviderUnavailable
	msg := "could not reach crawl provider"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = llmstxt.ProviderTimeout
		msg = "crawl provider timed out"
	}
	c.logger.Warn("firecrawl transport error",
		zap.String("op", op),
		zap.String("kind", string(kind)),
		zap.String("error", c.redact(err.Error())),
	)
	return &llmstxt.ProviderError{
		Op:      op,
		Kind:    kind,
		Message: msg,
		Err:     err,
	}
}

func (c *Client) redact(msg string) string {
	return llmstxt.Redact(msg, c.apiKey)
}

func kindForStatus(code int) llmstxt.ProviderErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llmstxt.ProviderUnauthorized
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return llmstxt.ProviderRateLimited
	case http.StatusNotFound:
		return llmstxt.ProviderNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return llmstxt.ProviderTimeout
	default:
		return llmstxt.ProviderUnavailable
	}
}

func errorMessage(code int, body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 512 {
		return text
	}
	return http.StatusText(code)
}

func collectPages(pages []llmstxt.Page, docs []document) []llmstxt.Page {
	for _, doc := range docs {
		pageURL := string(doc.Metadata.SourceURL)
		if pageURL == "" {
			pageURL = string(doc.Metadata.URL)
		}
		pages = append(pages, llmstxt.Page{
			URL:         pageURL,
			Title:       string(doc.Metadata.Title),
			Description: string(doc.Metadata.Description),
			Language:    string(doc.Metadata.Language),
		})
	}
	return pages
}

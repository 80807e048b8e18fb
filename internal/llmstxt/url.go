package llmstxt

import (
	"fmt"
	"net/url"
	"strings"
)

// Page limit bounds applied to every crawl request.
const (
	MinPageLimit     = 1
	MaxPageLimit     = 500
	DefaultPageLimit = 20
)

// NormalizeURL validates raw as an absolute HTTP(S) URL and returns its
// canonical cache key form: lower-cased scheme and host, no fragment, no
// trailing slash. URLs carrying credentials are rejected so they never reach
// cache keys or logs.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Field: "url", Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ValidationError{Field: "url", Reason: "cannot be parsed"}
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", &ValidationError{Field: "url", Reason: "only HTTP and HTTPS URLs are supported"}
	}
	if u.Hostname() == "" {
		return "", &ValidationError{Field: "url", Reason: "must be absolute with a host"}
	}
	if u.User != nil {
		return "", &ValidationError{Field: "url", Reason: "must not contain credentials"}
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")
	return u.String(), nil
}

// ValidateRequest checks the page limit against [MinPageLimit, maxLimit] and
// returns the request with a normalized target URL. maxLimit values outside
// the hard bound are clamped to MaxPageLimit.
func ValidateRequest(req CrawlRequest, maxLimit int) (CrawlRequest, error) {
	if maxLimit <= 0 || maxLimit > MaxPageLimit {
		maxLimit = MaxPageLimit
	}
	if req.PageLimit < MinPageLimit || req.PageLimit > maxLimit {
		return CrawlRequest{}, &ValidationError{
			Field:  "limit",
			Reason: fmt.Sprintf("must be between %d and %d", MinPageLimit, maxLimit),
		}
	}
	normalized, err := NormalizeURL(req.TargetURL)
	if err != nil {
		return CrawlRequest{}, err
	}
	req.TargetURL = normalized
	return req, nil
}

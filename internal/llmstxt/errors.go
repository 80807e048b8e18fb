package llmstxt

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for classification with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrProvider   = errors.New("crawl provider error")
	ErrNotFound   = errors.New("job not found")
	ErrNotReady   = errors.New("job not completed")
)

// ValidationError rejects a request before any external call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ProviderErrorKind classifies provider failures for callers and HTTP mapping.
type ProviderErrorKind string

// Provider error kinds.
const (
	ProviderUnavailable  ProviderErrorKind = "unavailable"
	ProviderTimeout      ProviderErrorKind = "timeout"
	ProviderRateLimited  ProviderErrorKind = "rate_limited"
	ProviderNotFound     ProviderErrorKind = "not_found"
	ProviderUnauthorized ProviderErrorKind = "unauthorized"
	ProviderBadResponse  ProviderErrorKind = "bad_response"
)

// ProviderError reports a failed call to the crawl provider. Message is safe
// to show to users; Err keeps the underlying cause for logs.
type ProviderError struct {
	Op         string
	Kind       ProviderErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s failed (%s, status %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s failed (%s): %s", e.Op, e.Kind, e.Message)
}

// Is matches ErrProvider.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Unwrap exposes the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

const redacted = "[redacted]"

// Redact replaces every non-empty secret in msg.
func Redact(msg string, secrets ...string) string {
	for _, secret := range secrets {
		if strings.TrimSpace(secret) == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}
	return msg
}

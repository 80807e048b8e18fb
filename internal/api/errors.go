package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// statusForError maps the error taxonomy onto an HTTP status and a message
// that is safe to return to clients.
func statusForError(err error) (int, string) {
	var verr *llmstxt.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Error()
	}
	var perr *llmstxt.ProviderError
	if errors.As(err, &perr) {
		return statusForProvider(perr.Kind), "crawl provider error: " + perr.Message
	}
	switch {
	case errors.Is(err, llmstxt.ErrNotFound):
		return http.StatusNotFound, "job not found"
	case errors.Is(err, llmstxt.ErrNotReady):
		return http.StatusConflict, "job has not completed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func statusForProvider(kind llmstxt.ProviderErrorKind) int {
	switch kind {
	case llmstxt.ProviderTimeout:
		return http.StatusRequestTimeout
	case llmstxt.ProviderRateLimited:
		return http.StatusTooManyRequests
	case llmstxt.ProviderNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

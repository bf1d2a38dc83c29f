// Package provider implements single-attempt provider invocation: rate
// limiting, the call itself, error classification, shadow execution, and a
// MockProvider test double.
package provider

import (
	"errors"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

// ErrorType returns the short, stable type name recorded as provider_call's
// error_type field, generalizing the teacher's
// mapOpenAIErrorToStandard/mapAnthropicErrorToStandard status-code mapping
// into a single vendor-agnostic classifier (concrete vendor clients are out
// of scope for this core; they report through the domain sentinels or their
// own Retryable/Fatal/Skip marker types instead).
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrCancelled):
		return "Cancelled"
	case errors.Is(err, domain.ErrRateLimited):
		return "RateLimited"
	case errors.Is(err, domain.ErrTimeout):
		return "Timeout"
	case errors.Is(err, domain.ErrTransient):
		return "TransientConnection"
	case errors.Is(err, domain.ErrAuth):
		return "AuthError"
	case errors.Is(err, domain.ErrConfig):
		return "ConfigError"
	case errors.Is(err, domain.ErrMalformed):
		return "MalformedRequest"
	case errors.Is(err, domain.ErrUnavailable):
		return "Unavailable"
	default:
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			return ErrorType(pe.Err)
		}
		return "Unknown"
	}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorFamily classifies a provider fault into the policy buckets of §7.
type ErrorFamily string

const (
	FamilyRateLimit ErrorFamily = "rate_limit"
	FamilyRetryable ErrorFamily = "retryable"
	FamilyFatal     ErrorFamily = "fatal"
	FamilySkip      ErrorFamily = "skip"
	FamilyCancelled ErrorFamily = "cancelled"
)

// Sentinel kinds a provider or the invoker may wrap into a ProviderError.
// Concrete provider clients are out of scope for this core; they report
// faults through these sentinels (or their own error implementing
// RetryableError/FatalError/SkipError) rather than vendor-specific types.
var (
	ErrTimeout       = errors.New("timeout")
	ErrRateLimited   = errors.New("rate limited")
	ErrAuth          = errors.New("authentication failed")
	ErrConfig        = errors.New("invalid configuration")
	ErrMalformed     = errors.New("malformed request")
	ErrUnavailable   = errors.New("provider unavailable")
	ErrCancelled     = errors.New("cancelled")
	ErrTransient     = errors.New("transient connection error")
)

// Retryable, Fatal, and Skip are escape-hatch marker interfaces a provider's
// own error type can implement to steer classification without depending on
// this package's sentinels.
type Retryable interface{ Retryable() bool }
type Fatal interface{ Fatal() bool }
type Skip interface{ Skip() bool }

// ProviderError wraps an underlying fault with the provider that produced it
// and its classified family, mirroring the teacher's ProviderError /
// MultiProviderError wrapping shape.
type ProviderError struct {
	Provider string
	Family   ErrorFamily
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Err, e.Family)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError classifies err and wraps it for the named provider.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Family: Classify(err), Err: err}
}

// Classify maps an arbitrary error to its ErrorFamily. It first honours the
// Retryable/Fatal/Skip marker interfaces a provider's own error type may
// implement, then falls back to matching the sentinel set, then to common
// substrings of the error message (rate limit/429, auth/401/403,
// timeout/connection reset/500), then defaults to retryable (the
// conservative choice — an unrecognized fault should not be
// treated as fatal and abandon the whole run).
func Classify(err error) ErrorFamily {
	if err == nil {
		return ""
	}
	var cancelled interface{ Cancelled() bool }
	if errors.As(err, &cancelled) && cancelled.Cancelled() {
		return FamilyCancelled
	}
	var skip Skip
	if errors.As(err, &skip) && skip.Skip() {
		return FamilySkip
	}
	var fatal Fatal
	if errors.As(err, &fatal) && fatal.Fatal() {
		return FamilyFatal
	}
	var retry Retryable
	if errors.As(err, &retry) {
		if retry.Retryable() {
			return FamilyRetryable
		}
		return FamilyFatal
	}

	switch {
	case errors.Is(err, ErrCancelled):
		return FamilyCancelled
	case errors.Is(err, ErrRateLimited):
		return FamilyRateLimit
	case errors.Is(err, ErrUnavailable):
		return FamilySkip
	case errors.Is(err, ErrAuth), errors.Is(err, ErrConfig), errors.Is(err, ErrMalformed):
		return FamilyFatal
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return FamilyRetryable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return FamilyRateLimit
	case strings.Contains(msg, "auth") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return FamilyFatal
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "5"+"00"):
		return FamilyRetryable
	}
	return FamilyRetryable
}

// AllFailedError is raised by the sequential strategy when every provider in
// the chain has failed. Message lists each attempt as
// "{provider} (attempt N)".
type AllFailedError struct {
	Attempts []AttemptFailure
	Last     error
}

// AttemptFailure records one failed attempt contributing to AllFailedError.
type AttemptFailure struct {
	Provider string
	Attempt  int
	Err      error
}

func (e *AllFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (attempt %d): %s", a.Provider, a.Attempt, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *AllFailedError) Unwrap() error { return e.Last }

// ParallelFailure is one entry of ParallelExecutionError.Failures.
type ParallelFailure struct {
	Provider string
	Attempt  int
	Summary  string
}

// ParallelExecutionError is raised by parallel-all/consensus when no
// candidate can satisfy the strategy.
type ParallelExecutionError struct {
	Message  string
	Failures []ParallelFailure
}

func (e *ParallelExecutionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "parallel execution failed"
}

// NewParallelExecutionError builds a ParallelExecutionError with the given
// human-readable message and per-observation failure summaries.
func NewParallelExecutionError(message string, failures []ParallelFailure) *ParallelExecutionError {
	return &ParallelExecutionError{Message: message, Failures: failures}
}

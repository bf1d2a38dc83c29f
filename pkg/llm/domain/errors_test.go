package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Sentinels(t *testing.T) {
	cases := map[error]ErrorFamily{
		ErrRateLimited: FamilyRateLimit,
		ErrTimeout:     FamilyRetryable,
		ErrTransient:   FamilyRetryable,
		ErrAuth:        FamilyFatal,
		ErrConfig:      FamilyFatal,
		ErrMalformed:   FamilyFatal,
		ErrUnavailable: FamilySkip,
		ErrCancelled:   FamilyCancelled,
	}
	for err, want := range cases {
		assert.Equal(t, want, Classify(err), "classifying %v", err)
	}
}

func TestClassify_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("openai: %w", ErrRateLimited)
	assert.Equal(t, FamilyRateLimit, Classify(wrapped))
}

type markerErr struct{ retryable bool }

func (e markerErr) Error() string    { return "marker" }
func (e markerErr) Retryable() bool  { return e.retryable }

func TestClassify_RetryableMarkerInterface(t *testing.T) {
	assert.Equal(t, FamilyRetryable, Classify(markerErr{retryable: true}))
	assert.Equal(t, FamilyFatal, Classify(markerErr{retryable: false}))
}

func TestProviderError_UnwrapAndIs(t *testing.T) {
	pe := NewProviderError("openai", ErrRateLimited)
	assert.Equal(t, FamilyRateLimit, pe.Family)
	assert.ErrorIs(t, pe, ErrRateLimited)
}

func TestAllFailedError_Message(t *testing.T) {
	err := &AllFailedError{
		Attempts: []AttemptFailure{
			{Provider: "flaky", Attempt: 1, Err: ErrTimeout},
			{Provider: "ok", Attempt: 2, Err: ErrUnavailable},
		},
		Last: ErrUnavailable,
	}
	assert.Contains(t, err.Error(), "flaky (attempt 1)")
	assert.Contains(t, err.Error(), "ok (attempt 2)")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParallelExecutionError(t *testing.T) {
	err := NewParallelExecutionError("no responses satisfied consensus constraints", []ParallelFailure{
		{Provider: "a", Attempt: 1, Summary: "latency 50ms > max 20ms"},
	})
	assert.Equal(t, "no responses satisfied consensus constraints", err.Error())
	assert.Len(t, err.Failures, 1)
}

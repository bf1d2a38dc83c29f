package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/sink"
)

func TestAttempt_SuccessEmitsProviderCall(t *testing.T) {
	s := sink.NewMemorySink()
	p := NewMockProvider("ok", WithPredefinedResponse(domain.ProviderResponse{
		Text:       "fine",
		TokenUsage: domain.NewTokenUsage(3, 2),
	}))
	meta := RunMeta{RunID: "r1", RequestFingerprint: "fp1", Mode: domain.ModeSequential, Providers: []string{"ok"}}

	result := Attempt(context.Background(), nil, p, domain.ProviderRequest{TimeoutS: 1}, 1, 1, s, meta, nil, 0)

	require.NoError(t, result.Err)
	require.NotNil(t, result.Response)
	assert.Equal(t, "fine", result.Response.Text)

	calls := s.ByType(domain.EventProviderCall)
	require.Len(t, calls, 1)
	assert.Equal(t, "ok", calls[0].Fields["status"])
	assert.Equal(t, 1, calls[0].Fields["attempt"])
	assert.Equal(t, domain.NewTokenUsage(3, 2), calls[0].Fields["token_usage"])
}

func TestAttempt_ErrorEmitsProviderCallWithFamily(t *testing.T) {
	s := sink.NewMemorySink()
	p := NewMockProvider("flaky", WithError(domain.ErrRateLimited))
	meta := RunMeta{RunID: "r1", RequestFingerprint: "fp1", Mode: domain.ModeSequential, Providers: []string{"flaky"}}

	result := Attempt(context.Background(), nil, p, domain.ProviderRequest{TimeoutS: 1}, 1, 1, s, meta, nil, 0)

	assert.ErrorIs(t, result.Err, domain.ErrRateLimited)
	assert.Equal(t, domain.FamilyRateLimit, result.Family)

	calls := s.ByType(domain.EventProviderCall)
	require.Len(t, calls, 1)
	assert.Equal(t, "error", calls[0].Fields["status"])
	assert.Equal(t, domain.FamilyRateLimit, calls[0].Fields["error_family"])
}

func TestAttempt_SkipFamilyAlsoEmitsProviderSkipped(t *testing.T) {
	s := sink.NewMemorySink()
	p := NewMockProvider("unavailable", WithError(domain.ErrUnavailable))
	meta := RunMeta{RunID: "r1", RequestFingerprint: "fp1", Mode: domain.ModeSequential, Providers: []string{"unavailable"}}

	Attempt(context.Background(), nil, p, domain.ProviderRequest{TimeoutS: 1}, 1, 1, s, meta, nil, 0)

	callEvents := s.ByType(domain.EventProviderCall)
	skipEvents := s.ByType(domain.EventProviderSkipped)
	require.Len(t, callEvents, 1)
	require.Len(t, skipEvents, 1)
	assert.Equal(t, callEvents[0].Fields["error_family"], skipEvents[0].Fields["error_family"])
}

func TestAttempt_ShadowDoesNotAffectPrimaryResponse(t *testing.T) {
	s := sink.NewMemorySink()
	primary := NewMockProvider("primary", WithPredefinedResponse(domain.ProviderResponse{Text: "primary-text"}))
	shadow := NewMockProvider("shadow", WithError(domain.ErrUnavailable))
	meta := RunMeta{RunID: "r1", RequestFingerprint: "fp1", Mode: domain.ModeSequential, Providers: []string{"primary"}}

	result := Attempt(context.Background(), nil, primary, domain.ProviderRequest{TimeoutS: 1}, 1, 1, s, meta, shadow, 1)

	require.NoError(t, result.Err)
	assert.Equal(t, "primary-text", result.Response.Text)

	diffs := s.ByType(domain.EventShadowDiff)
	require.Len(t, diffs, 1)
	assert.Equal(t, "shadow_error", diffs[0].Fields["diff_kind"])
}

func TestAttempt_ShadowMatchAndMismatch(t *testing.T) {
	s := sink.NewMemorySink()
	primary := NewMockProvider("primary", WithPredefinedResponse(domain.ProviderResponse{Text: "same"}))
	shadow := NewMockProvider("shadow", WithPredefinedResponse(domain.ProviderResponse{Text: "same"}))
	meta := RunMeta{RunID: "r1", RequestFingerprint: "fp1", Mode: domain.ModeSequential, Providers: []string{"primary"}}

	Attempt(context.Background(), nil, primary, domain.ProviderRequest{TimeoutS: 1}, 1, 1, s, meta, shadow, 1)

	diffs := s.ByType(domain.EventShadowDiff)
	require.Len(t, diffs, 1)
	assert.Equal(t, "match", diffs[0].Fields["diff_kind"])

	mismatchSink := sink.NewMemorySink()
	differing := NewMockProvider("shadow", WithPredefinedResponse(domain.ProviderResponse{Text: "different"}))

	Attempt(context.Background(), nil, primary, domain.ProviderRequest{TimeoutS: 1}, 1, 1, mismatchSink, meta, differing, 1)

	mismatches := mismatchSink.ByType(domain.EventShadowDiff)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "mismatch", mismatches[0].Fields["diff_kind"])
}

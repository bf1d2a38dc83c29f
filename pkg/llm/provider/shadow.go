package provider

import (
	"context"
	"errors"
	"time"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

// ShadowDiffResult is the internal outcome of running the shadow provider,
// before it is turned into a shadow_diff event.
type ShadowDiffResult struct {
	Outcome      string // "ok" | "error" | "timeout"
	Response     *domain.ProviderResponse
	Err          error
	ErrorMessage string
	DurationMs   int64
	DiffKind     string // "match" | "mismatch" | "shadow_error"
}

// runShadow invokes shadow under its own, primary-independent timeout
// budget (spec §4.4). It never returns an error to the caller: failures are
// captured in the result's Outcome/Err fields so the primary path is never
// affected.
func runShadow(ctx context.Context, shadow domain.Provider, req domain.ProviderRequest, timeoutS float64) *ShadowDiffResult {
	if timeoutS <= 0 {
		timeoutS = req.TimeoutS
	}
	shadowCtx, cancel := context.WithTimeout(ctx, timeoutDuration(timeoutS))
	defer cancel()

	start := time.Now()
	resp, err := shadow.Invoke(shadowCtx, req)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(shadowCtx.Err(), context.DeadlineExceeded) {
			return &ShadowDiffResult{Outcome: "timeout", Err: errShadowTimeout, ErrorMessage: "ShadowTimeout", DurationMs: elapsed}
		}
		return &ShadowDiffResult{Outcome: "error", Err: err, ErrorMessage: err.Error(), DurationMs: elapsed}
	}
	resp.LatencyMs = elapsed
	return &ShadowDiffResult{Outcome: "ok", Response: &resp, DurationMs: elapsed}
}

var errShadowTimeout = errors.New("ShadowTimeout")

// finishShadowDiff compares the primary outcome against the shadow result
// and emits one shadow_diff event, per spec §4.4. It returns the computed
// ShadowDiffResult (with DiffKind populated) so the caller can report it
// alongside the primary provider_call event.
func finishShadowDiff(
	sink domain.EventSink,
	meta RunMeta,
	primaryProvider, shadowProvider string,
	primaryResp *domain.ProviderResponse,
	primaryErr error,
	shadowResult *ShadowDiffResult,
) *ShadowDiffResult {
	diffKind := "shadow_error"
	var shadowTextLen, primaryTextLen int
	var shadowTokenTotal, primaryTokenTotal int
	var shadowErrType, shadowErrMessage string
	shadowOK := shadowResult.Outcome == "ok"

	if primaryResp != nil {
		primaryTextLen = len(primaryResp.Text)
		primaryTokenTotal = primaryResp.TokenUsage.Total
	}

	switch shadowResult.Outcome {
	case "ok":
		shadowTextLen = len(shadowResult.Response.Text)
		shadowTokenTotal = shadowResult.Response.TokenUsage.Total
		if primaryErr == nil && primaryResp != nil {
			if primaryResp.Text == shadowResult.Response.Text {
				diffKind = "match"
			} else {
				diffKind = "mismatch"
			}
		}
	case "timeout":
		shadowErrType = "ShadowTimeout"
		shadowErrMessage = shadowResult.ErrorMessage
	case "error":
		shadowErrType = ErrorType(shadowResult.Err)
		shadowErrMessage = shadowResult.ErrorMessage
	}

	shadowResult.DiffKind = diffKind

	event := meta.envelope(domain.EventShadowDiff, true, shadowProvider)
	event.Fields = map[string]interface{}{
		"primary_provider":          primaryProvider,
		"shadow_provider":           shadowProvider,
		"shadow_provider_id":        shadowProvider,
		"shadow_ok":                 shadowOK,
		"shadow_outcome":            shadowResult.Outcome,
		"primary_text_len":          primaryTextLen,
		"shadow_text_len":           shadowTextLen,
		"primary_token_usage_total": primaryTokenTotal,
		"shadow_token_usage_total":  shadowTokenTotal,
		"shadow_duration_ms":        shadowResult.DurationMs,
		"diff_kind":                 diffKind,
		"request_fingerprint":       meta.RequestFingerprint,
	}
	if shadowErrType != "" {
		event.Fields["shadow_error"] = shadowErrType
		event.Fields["shadow_error_message"] = shadowErrMessage
	}
	sink.Emit(event)

	return shadowResult
}

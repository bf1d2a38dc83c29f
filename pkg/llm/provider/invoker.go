package provider

import (
	"context"
	"time"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/ratelimit"
)

// RunMeta carries the envelope fields common to every event emitted for one
// run, so the invoker doesn't need the full RunContext type (which lives in
// pkg/llm/strategy, a layer above this package).
type RunMeta struct {
	RunID              string
	RequestFingerprint string
	Mode               domain.Mode
	Providers          []string
	TraceID            string
	ProjectID          string
}

func (m RunMeta) envelope(t domain.EventType, shadowUsed bool, shadowProviderID string) domain.Event {
	return domain.Event{
		Type:               t,
		Ts:                 float64(time.Now().UnixNano()) / 1e9,
		RunID:              m.RunID,
		RequestFingerprint: m.RequestFingerprint,
		Mode:               m.Mode,
		Providers:          m.Providers,
		ShadowUsed:         shadowUsed,
		ShadowProviderID:   shadowProviderID,
		TraceID:            m.TraceID,
		ProjectID:          m.ProjectID,
	}
}

// Result is the outcome of one invoker attempt.
type Result struct {
	Response     *domain.ProviderResponse
	Err          error
	Family       domain.ErrorFamily
	ElapsedMs    int64
	ShadowDiff   *ShadowDiffResult
	CostEstimate float64
}

// Attempt performs one attempt against prov: acquire the rate-limit token
// (if limiter is non-nil), call the provider under request.timeout_s,
// classify the outcome, and emit exactly one provider_call event (plus a
// provider_skipped event for skip-family errors), per spec §4.3. When
// shadow is non-nil, it is run concurrently and its diff recorded
// alongside, per §4.4.
func Attempt(
	ctx context.Context,
	limiter *ratelimit.Limiter,
	prov domain.Provider,
	req domain.ProviderRequest,
	attempt, totalProviders int,
	sink domain.EventSink,
	meta RunMeta,
	shadow domain.Provider,
	shadowTimeoutS float64,
) Result {
	shadowUsed := shadow != nil

	if err := limiter.Acquire(ctx); err != nil {
		family := domain.Classify(err)
		emitProviderCall(sink, meta, prov, attempt, totalProviders, 0, nil, err, family, shadowUsed)
		return Result{Err: err, Family: family}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeoutDuration(req.TimeoutS))
	defer cancel()

	var shadowDone chan *ShadowDiffResult
	if shadowUsed {
		shadowDone = make(chan *ShadowDiffResult, 1)
		go func() {
			shadowDone <- runShadow(ctx, shadow, req, shadowTimeoutS)
		}()
	}

	start := time.Now()
	resp, err := prov.Invoke(callCtx, req)
	elapsed := time.Since(start).Milliseconds()

	var respPtr *domain.ProviderResponse
	if err == nil {
		resp.LatencyMs = elapsed
		respPtr = &resp
	} else if callCtx.Err() != nil {
		err = domain.ErrTimeout
	}

	family := domain.Classify(err)

	var shadowDiff *ShadowDiffResult
	if shadowDone != nil {
		shadowResult := <-shadowDone
		shadowDiff = finishShadowDiff(sink, meta, prov.Name(), shadow.Name(), respPtr, err, shadowResult)
	}

	emitProviderCall(sink, meta, prov, attempt, totalProviders, elapsed, respPtr, err, family, shadowUsed)

	var cost float64
	if respPtr != nil {
		if est, ok := prov.(domain.CostEstimator); ok {
			cost = est.EstimateCost(respPtr.TokenUsage.Prompt, respPtr.TokenUsage.Completion)
		}
	}

	return Result{Response: respPtr, Err: err, Family: family, ElapsedMs: elapsed, ShadowDiff: shadowDiff, CostEstimate: cost}
}

func timeoutDuration(timeoutS float64) time.Duration {
	if timeoutS <= 0 {
		timeoutS = domain.DefaultTimeoutSeconds
	}
	return time.Duration(timeoutS * float64(time.Second))
}

func emitProviderCall(
	sink domain.EventSink,
	meta RunMeta,
	prov domain.Provider,
	attempt, totalProviders int,
	elapsedMs int64,
	resp *domain.ProviderResponse,
	err error,
	family domain.ErrorFamily,
	shadowUsed bool,
) {
	status := "ok"
	var errType, errMessage string
	var tokensIn, tokensOut int
	usage := domain.TokenUsage{}
	if err != nil {
		status = "error"
		errType = ErrorType(err)
		errMessage = err.Error()
	} else if resp != nil {
		usage = resp.TokenUsage
		tokensIn = usage.Prompt
		tokensOut = usage.Completion
	}

	name := ""
	if prov != nil {
		name = prov.Name()
	}

	event := meta.envelope(domain.EventProviderCall, shadowUsed, "")
	event.Fields = map[string]interface{}{
		"provider":            name,
		"provider_id":         name,
		"attempt":             attempt,
		"total_providers":     totalProviders,
		"status":              status,
		"latency_ms":          elapsedMs,
		"tokens_in":           tokensIn,
		"tokens_out":          tokensOut,
		"token_usage":         usage,
		"request_fingerprint": meta.RequestFingerprint,
	}
	if errType != "" {
		event.Fields["error_type"] = errType
		event.Fields["error_family"] = family
		event.Fields["error_message"] = errMessage
	}
	sink.Emit(event)

	if family == domain.FamilySkip {
		skipEvent := meta.envelope(domain.EventProviderSkipped, shadowUsed, "")
		skipEvent.Fields = map[string]interface{}{
			"provider":      name,
			"attempt":       attempt,
			"error_type":    errType,
			"error_family":  domain.FamilySkip,
			"error_message": errMessage,
		}
		sink.Emit(skipEvent)
	}
}

// EmitProviderFallback emits provider_fallback, called by the strategy layer
// when a non-fatal failure advances execution to the next provider.
func EmitProviderFallback(sink domain.EventSink, meta RunMeta, providerName string, attempt int, errType, errMessage string) {
	event := meta.envelope(domain.EventProviderFallback, false, "")
	event.Fields = map[string]interface{}{
		"provider":      providerName,
		"attempt":       attempt,
		"error_type":    errType,
		"error_message": errMessage,
	}
	sink.Emit(event)
}

// EmitProviderChainFailed emits the terminal provider_chain_failed event for
// the sequential strategy.
func EmitProviderChainFailed(sink domain.EventSink, meta RunMeta, providerAttempts int, lastErrorType string, lastErrorFamily domain.ErrorFamily, lastErrorMessage string) {
	event := meta.envelope(domain.EventProviderChainFailed, false, "")
	event.Fields = map[string]interface{}{
		"provider_attempts": providerAttempts,
		"last_error_type":   lastErrorType,
		"last_error_family": lastErrorFamily,
		"last_error_message": lastErrorMessage,
	}
	sink.Emit(event)
}

// EmitRunMetric emits the single terminal run_metric event for a run.
func EmitRunMetric(sink domain.EventSink, meta RunMeta, fields map[string]interface{}) {
	event := meta.envelope(domain.EventRunMetric, false, "")
	event.Fields = fields
	sink.Emit(event)
}

// EmitEvent emits an arbitrary event type under meta's envelope, used by the
// strategy layer for events (e.g. consensus_vote) that don't belong to this
// package.
func EmitEvent(sink domain.EventSink, meta RunMeta, t domain.EventType, shadowUsed bool, shadowProviderID string, fields map[string]interface{}) {
	event := meta.envelope(t, shadowUsed, shadowProviderID)
	event.Fields = fields
	sink.Emit(event)
}

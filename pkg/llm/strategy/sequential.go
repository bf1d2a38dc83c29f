package strategy

import (
	"context"
	"time"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
)

// RunSequential iterates providers in declared order, retrying a retryable
// failure against the same provider up to MaxAttempts additional tries
// before falling back, per spec §4.5.
func RunSequential(ctx context.Context, rc *RunContext) Outcome {
	providers := rc.Providers
	total := len(providers)

	var attempts []domain.AttemptFailure
	globalAttempt := 0
	var last error

providerLoop:
	for _, prov := range providers {
		retry := 0
		for {
			globalAttempt++
			res := provider.Attempt(ctx, rc.Limiter, prov, rc.Request, globalAttempt, total, rc.Sink, rc.Meta, rc.Shadow, rc.ShadowTimeoutS)

			if res.Err == nil {
				emitRunMetric(rc, "success", globalAttempt, globalAttempt-1, res.ElapsedMs, res.Response, prov.Name(), "", res.CostEstimate)
				return Outcome{Response: res.Response}
			}

			last = res.Err
			attempts = append(attempts, domain.AttemptFailure{Provider: prov.Name(), Attempt: globalAttempt, Err: res.Err})

			if res.Family == domain.FamilyRetryable && retry < rc.Config.MaxAttempts {
				sleep(ctx, rc.Config.Backoff.DelayFor(retry))
				retry++
				continue
			}

			if res.Family == domain.FamilyRateLimit {
				sleep(ctx, rc.Config.Backoff.RateLimitSleepS)
			}
			if res.Family != domain.FamilySkip {
				provider.EmitProviderFallback(rc.Sink, rc.Meta, prov.Name(), globalAttempt, provider.ErrorType(res.Err), res.Err.Error())
			}
			continue providerLoop
		}
	}

	provider.EmitProviderChainFailed(rc.Sink, rc.Meta, globalAttempt, provider.ErrorType(last), domain.Classify(last), errString(last))
	emitRunMetric(rc, "error", globalAttempt, globalAttempt-1, 0, nil, "", provider.ErrorType(last), 0)

	return Outcome{Err: &domain.AllFailedError{Attempts: attempts, Last: last}}
}

func sleep(ctx context.Context, seconds float64) {
	if seconds <= 0 {
		return
	}
	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func emitRunMetric(rc *RunContext, status string, attempts, retries int, latencyMs int64, resp *domain.ProviderResponse, providerName, errType string, cost float64) {
	fields := map[string]interface{}{
		"status":       status,
		"outcome":      status,
		"attempts":     attempts,
		"retries":      retries,
		"cost_usd":     cost,
		"cost_estimate": cost,
	}
	if providerName != "" {
		fields["provider"] = providerName
		fields["provider_id"] = providerName
	}
	if resp != nil {
		fields["latency_ms"] = resp.LatencyMs
		fields["tokens_in"] = resp.TokenUsage.Prompt
		fields["tokens_out"] = resp.TokenUsage.Completion
		fields["token_usage"] = resp.TokenUsage
	} else {
		fields["latency_ms"] = latencyMs
		fields["token_usage"] = domain.TokenUsage{}
	}
	if errType != "" {
		fields["error_type"] = errType
	}
	provider.EmitRunMetric(rc.Sink, rc.Meta, fields)
}

package strategy

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
)

// RunParallelAll fans out all providers, awaiting every worker under bounded
// concurrency, and returns the first declared provider's successful
// response (or the first successful response overall if that one failed).
// One aggregate run_metric is emitted per run — see DESIGN.md's Open
// Question decision on parallel-all's run_metric granularity.
func RunParallelAll(ctx context.Context, rc *RunContext) Outcome {
	total := len(rc.Providers)
	g, gctx := errgroup.WithContext(ctx)
	if rc.Config.MaxConcurrency > 0 {
		g.SetLimit(rc.Config.MaxConcurrency)
	}

	results := make([]provider.Result, total)
	for i, prov := range rc.Providers {
		i, prov := i, prov
		g.Go(func() error {
			results[i] = provider.Attempt(gctx, rc.Limiter, prov, rc.Request, i+1, total, rc.Sink, rc.Meta, rc.Shadow, rc.ShadowTimeoutS)
			return nil
		})
	}
	_ = g.Wait()

	var attempts []domain.AttemptFailure
	var firstSuccess *domain.ProviderResponse
	var firstSuccessProvider string
	var firstSuccessCost float64
	var lastErr error

	for i, res := range results {
		name := rc.Providers[i].Name()
		if res.Err != nil {
			attempts = append(attempts, domain.AttemptFailure{Provider: name, Attempt: i + 1, Err: res.Err})
			lastErr = res.Err
			continue
		}
		if firstSuccess == nil {
			firstSuccess = res.Response
			firstSuccessProvider = name
			firstSuccessCost = res.CostEstimate
		}
	}

	if results[0].Err == nil {
		firstSuccess = results[0].Response
		firstSuccessProvider = rc.Providers[0].Name()
		firstSuccessCost = results[0].CostEstimate
	}

	if firstSuccess == nil {
		emitRunMetric(rc, "error", len(attempts), 0, 0, nil, "", provider.ErrorType(lastErr), 0)
		return Outcome{Err: domain.NewParallelExecutionError("no provider returned a usable response", toParallelFailures(attempts))}
	}

	emitRunMetric(rc, "success", total, total-1, firstSuccess.LatencyMs, firstSuccess, firstSuccessProvider, "", firstSuccessCost)
	return Outcome{Response: firstSuccess}
}

func toParallelFailures(attempts []domain.AttemptFailure) []domain.ParallelFailure {
	out := make([]domain.ParallelFailure, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, domain.ParallelFailure{Provider: a.Provider, Attempt: a.Attempt, Summary: a.Err.Error()})
	}
	return out
}

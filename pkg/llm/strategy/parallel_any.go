package strategy

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
)

// RunParallelAny fans out all providers under a pool bounded by
// max_concurrency and returns the first successful response, cancelling and
// awaiting every other worker before returning, per spec §4.5/§5.
func RunParallelAny(ctx context.Context, rc *RunContext) Outcome {
	total := len(rc.Providers)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	if rc.Config.MaxConcurrency > 0 {
		g.SetLimit(rc.Config.MaxConcurrency)
	}

	type winningResult struct {
		response *domain.ProviderResponse
		provider string
		cost     float64
	}

	winner := make(chan winningResult, 1)
	var mu sync.Mutex
	var lastErr error
	var attempts []domain.AttemptFailure

	for i, prov := range rc.Providers {
		i, prov := i, prov
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := provider.Attempt(gctx, rc.Limiter, prov, rc.Request, i+1, total, rc.Sink, rc.Meta, rc.Shadow, rc.ShadowTimeoutS)
			if res.Err != nil {
				mu.Lock()
				attempts = append(attempts, domain.AttemptFailure{Provider: prov.Name(), Attempt: i + 1, Err: res.Err})
				lastErr = res.Err
				mu.Unlock()
				return nil
			}
			select {
			case winner <- winningResult{response: res.Response, provider: prov.Name(), cost: res.CostEstimate}:
				cancel()
			default:
			}
			return nil
		})
	}

	_ = g.Wait()

	select {
	case win := <-winner:
		mu.Lock()
		n := len(attempts)
		mu.Unlock()
		emitRunMetric(rc, "success", n+1, n, win.response.LatencyMs, win.response, win.provider, "", win.cost)
		return Outcome{Response: win.response}
	default:
	}

	retries := len(attempts) - 1
	if retries < 0 {
		retries = 0
	}
	emitRunMetric(rc, "error", len(attempts), retries, 0, nil, "", provider.ErrorType(lastErr), 0)
	return Outcome{Err: &domain.AllFailedError{Attempts: attempts, Last: lastErr}}
}

package strategy

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nilfrost/llmorch/pkg/llm/consensus"
	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
)

// RunConsensus fans out all providers, collects ConsensusObservations, and
// runs the vote/weight/score engine of pkg/llm/consensus, per spec §4.5's
// consensus strategy.
func RunConsensus(ctx context.Context, rc *RunContext) Outcome {
	total := len(rc.Providers)
	g, gctx := errgroup.WithContext(ctx)
	if rc.Config.MaxConcurrency > 0 {
		g.SetLimit(rc.Config.MaxConcurrency)
	}

	observations := make([]domain.ConsensusObservation, total)
	for i, prov := range rc.Providers {
		i, prov := i, prov
		g.Go(func() error {
			res := provider.Attempt(gctx, rc.Limiter, prov, rc.Request, i+1, total, rc.Sink, rc.Meta, rc.Shadow, rc.ShadowTimeoutS)
			obs := domain.ConsensusObservation{
				ProviderID: prov.Name(),
				LatencyMs:  res.ElapsedMs,
				Index:      i,
				Err:        res.Err,
			}
			if res.Response != nil {
				obs.Response = *res.Response
				obs.TokenUsage = res.Response.TokenUsage
				obs.CostEstimate = res.CostEstimate
			}
			observations[i] = obs
			return nil
		})
	}
	_ = g.Wait()

	result, err := consensus.Compute(rc.Config.Consensus, observations)
	if err != nil {
		emitRunMetric(rc, "error", total, 0, 0, nil, "", "", 0)
		return Outcome{Err: err}
	}

	emitConsensusVote(rc, result)
	resp := result.Response
	var winnerCost float64
	for _, obs := range observations {
		if obs.ProviderID == result.WinnerProviderID {
			winnerCost = obs.CostEstimate
			break
		}
	}
	emitRunMetric(rc, "success", total, total-1, resp.LatencyMs, &resp, result.WinnerProviderID, "", winnerCost)
	return Outcome{Response: &resp}
}

func emitConsensusVote(rc *RunContext, result *consensus.Result) {
	candidateSummaries := make([]map[string]interface{}, 0, len(result.CandidateSummaries))
	for _, c := range result.CandidateSummaries {
		entry := map[string]interface{}{
			"provider": c.Provider,
			"text":     c.Text,
			"latency":  c.Latency,
		}
		if c.Cost != nil {
			entry["cost"] = *c.Cost
		}
		candidateSummaries = append(candidateSummaries, entry)
	}

	votesFor := result.Votes
	votesAgainst := 0
	for _, count := range result.Tally {
		votesAgainst += count
	}
	votesAgainst -= votesFor
	if votesAgainst < 0 {
		votesAgainst = 0
	}

	fields := map[string]interface{}{
		"strategy":           rc.Config.Consensus.Strategy,
		"voters_total":       len(result.CandidateSummaries),
		"votes_for":          votesFor,
		"votes_against":      votesAgainst,
		"winner_provider":    result.WinnerProviderID,
		"winner_latency_ms":  result.Response.LatencyMs,
		"votes":              result.Tally,
		"tally":              result.Tally,
		"candidate_summaries": candidateSummaries,
		"tie_break_applied":  result.TieBreakApplied,
		"tie_breaker_selected": result.TieBreakerSelected,
		"tie_break_reason":   result.TieBreakReason,
		"rounds":             result.Rounds,
		"abstained":          result.Abstained,
		"schema_checked":     result.SchemaChecked,
	}
	provider.EmitEvent(rc.Sink, rc.Meta, domain.EventConsensusVote, rc.Shadow != nil, shadowID(rc), fields)
}

func shadowID(rc *RunContext) string {
	if rc.Shadow == nil {
		return ""
	}
	return rc.Shadow.Name()
}

package consensus

import (
	"fmt"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

// resolveTieBreaker normalizes a caller-supplied tie-breaker name, accepting
// the aliases of spec §4.6 step 7 (min_latency ≡ latency, min_cost ≡ cost,
// first ≡ stable_order).
func resolveTieBreaker(name domain.TieBreakCriterion) domain.TieBreakCriterion {
	switch name {
	case "min_latency":
		return domain.TieBreakLatency
	case "min_cost":
		return domain.TieBreakCost
	case "first":
		return domain.TieBreakStableOrder
	default:
		return name
	}
}

// cascadeOrder returns the full criteria cascade, with a user-preferred
// criterion (if any) moved to the front, per "user-specified tie_breaker
// selected first... cascade through the remaining criteria in the order
// latency → cost → stable_order".
func cascadeOrder(preferred domain.TieBreakCriterion) []domain.TieBreakCriterion {
	def := []domain.TieBreakCriterion{domain.TieBreakLatency, domain.TieBreakCost, domain.TieBreakStableOrder}
	preferred = resolveTieBreaker(preferred)
	if preferred == "" {
		return def
	}
	out := []domain.TieBreakCriterion{preferred}
	for _, c := range def {
		if c != preferred {
			out = append(out, c)
		}
	}
	return out
}

// criterionValue extracts the comparison value for a criterion; lower
// always wins. stable_order uses the observation's declaration Index.
func criterionValue(o domain.ConsensusObservation, criterion domain.TieBreakCriterion) (float64, bool) {
	switch criterion {
	case domain.TieBreakLatency:
		return float64(o.LatencyMs), true
	case domain.TieBreakCost:
		return o.CostEstimate, true
	case domain.TieBreakStableOrder:
		return float64(o.Index), true
	default:
		return 0, false
	}
}

// tieBreakResult records which criterion, if any, decided among a set of
// tied candidates.
type tieBreakResult struct {
	Winner    domain.ConsensusObservation
	Applied   bool
	Criterion domain.TieBreakCriterion
	Reason    string
}

// breakTies runs the cascade over candidates (all assumed otherwise tied)
// and returns the winner plus the first differentiating criterion, per the
// "first criterion that differentiates" recorder of spec Design Notes.
func breakTies(candidates []domain.ConsensusObservation, preferred domain.TieBreakCriterion) tieBreakResult {
	if len(candidates) == 1 {
		return tieBreakResult{Winner: candidates[0]}
	}

	remaining := append([]domain.ConsensusObservation(nil), candidates...)
	applied := false
	var decidingCriterion domain.TieBreakCriterion
	var decidingValue float64

	for _, criterion := range cascadeOrder(preferred) {
		best := remaining[0]
		bestVal, _ := criterionValue(best, criterion)
		tied := []domain.ConsensusObservation{best}
		for _, c := range remaining[1:] {
			v, _ := criterionValue(c, criterion)
			if v < bestVal {
				bestVal = v
				tied = []domain.ConsensusObservation{c}
			} else if v == bestVal {
				tied = append(tied, c)
			}
		}
		if len(tied) < len(remaining) {
			applied = true
			decidingCriterion = criterion
			decidingValue = bestVal
		}
		remaining = tied
		if len(remaining) == 1 {
			break
		}
	}

	reason := "stable_order"
	if decidingCriterion != "" && decidingCriterion != domain.TieBreakStableOrder {
		reason = fmt.Sprintf("%s(min=%v)", decidingCriterion, decidingValue)
	} else if decidingCriterion == domain.TieBreakStableOrder {
		reason = "stable_order"
	}

	return tieBreakResult{
		Winner:    remaining[0],
		Applied:   applied,
		Criterion: decidingCriterion,
		Reason:    reason,
	}
}

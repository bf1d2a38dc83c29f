// Package consensus implements the vote/weight/score aggregation pipeline
// of spec §4.6: admission filtering, schema-based abstention, bucketing,
// strategy selection, quorum checks, judge runoff, and deterministic
// tie-breaking.
package consensus

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	sdomain "github.com/nilfrost/llmorch/pkg/schema/domain"
	"github.com/nilfrost/llmorch/pkg/schema/gate"
)

// CandidateSummary is one entry of Result.CandidateSummaries.
type CandidateSummary struct {
	Provider string
	Text     string
	Latency  int64
	Cost     *float64
}

// Result is the outcome of Compute, matching the ConsensusResult object of
// spec §4.6.
type Result struct {
	Response           domain.ProviderResponse
	WinnerProviderID   string
	Votes              int
	Tally              map[string]int
	Scores             map[string]float64
	WinnerScore        *float64
	Abstained          int
	SchemaChecked      bool
	SchemaFailures     map[int]string
	TieBreakApplied    bool
	TieBreakReason     string
	TieBreakerSelected domain.TieBreakCriterion
	Rounds             int
	JudgeName          string
	JudgeScore         *float64
	CandidateSummaries []CandidateSummary
}

// errQuorumUnmet signals the current round's leading bucket did not reach
// quorum and a judge runoff is required.
var errQuorumUnmet = fmt.Errorf("consensus: quorum not met")

// Compute runs the pipeline of spec §4.6 over observations (index order is
// the stable declaration order referenced by the stable_order tie-break
// criterion).
func Compute(cfg domain.ConsensusConfig, observations []domain.ConsensusObservation) (*Result, error) {
	admitted, failures := admit(cfg, observations)
	if len(admitted) == 0 {
		return nil, domain.NewParallelExecutionError("no responses satisfied consensus constraints", failures)
	}

	var schema *sdomain.Schema
	schemaChecked := false
	schemaFailures := map[int]string{}
	if strings.TrimSpace(cfg.Schema) != "" {
		schemaChecked = true
		parsed, err := parseSchema(cfg.Schema)
		if err != nil {
			return nil, domain.NewParallelExecutionError(fmt.Sprintf("invalid schema: %v", err), nil)
		}
		schema = parsed

		var surviving []domain.ConsensusObservation
		for _, obs := range admitted {
			result := gate.Check(schema, obs.Response.Text)
			if !result.Valid {
				schemaFailures[obs.Index] = schemaFailureReason(result)
				continue
			}
			surviving = append(surviving, obs)
		}
		admitted = surviving
		if len(admitted) == 0 {
			return nil, domain.NewParallelExecutionError("all candidates abstained from schema validation", nil)
		}
	}

	isComplete := func(text string) bool { return gate.IsComplete(schema, text) }

	candidates := admitted
	rounds := 1

	outcome, err := decideRound(cfg, schema, candidates, isComplete)
	if err == nil {
		outcome.Abstained = len(schemaFailures)
		outcome.SchemaChecked = schemaChecked
		outcome.SchemaFailures = schemaFailures
		outcome.Rounds = rounds
		if outcome.TieBreakApplied {
			// A tie-break cascade (over multiple leading buckets, or over
			// all candidates for max_score without scores) is itself an
			// extra voting round beyond the initial tally.
			outcome.Rounds = rounds + 1
		}
		return outcome, nil
	}
	if err != errQuorumUnmet || cfg.Judge == nil {
		return nil, err
	}
	if rounds >= cfg.MaxRounds {
		return nil, domain.NewParallelExecutionError("consensus exceeded max_rounds without a decision", nil)
	}
	rounds++

	winnerText, score, jerr := cfg.Judge.Decide(candidates)
	if jerr != nil {
		return nil, domain.NewParallelExecutionError(fmt.Sprintf("judge runoff failed: %v", jerr), nil)
	}
	winner, ok := findByText(candidates, winnerText)
	if !ok {
		return nil, domain.NewParallelExecutionError("judge selected a candidate not present in the surviving set", nil)
	}
	return &Result{
		Response:           winner.Response,
		WinnerProviderID:   winner.ProviderID,
		Votes:              1,
		Tally:              tally(candidates, schema),
		Abstained:          len(schemaFailures),
		SchemaChecked:      schemaChecked,
		SchemaFailures:     schemaFailures,
		Rounds:             rounds,
		JudgeName:          cfg.Judge.Name(),
		JudgeScore:         &score,
		CandidateSummaries: summarize(candidates),
	}, nil
}

func parseSchema(src string) (*sdomain.Schema, error) {
	var s sdomain.Schema
	if err := json.Unmarshal([]byte(src), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func schemaFailureReason(r *sdomain.ValidationResult) string {
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	if len(r.Missing) > 0 {
		return "missing keys: " + strings.Join(r.Missing, ", ")
	}
	return "schema validation failed"
}

func admit(cfg domain.ConsensusConfig, observations []domain.ConsensusObservation) ([]domain.ConsensusObservation, []domain.ParallelFailure) {
	var admitted []domain.ConsensusObservation
	var failures []domain.ParallelFailure
	for _, obs := range observations {
		if obs.Err != nil {
			failures = append(failures, domain.ParallelFailure{
				Provider: obs.ProviderID, Attempt: 1,
				Summary: fmt.Sprintf("error: %v", obs.Err),
			})
			continue
		}
		if cfg.MaxLatencyMs != nil && obs.LatencyMs > *cfg.MaxLatencyMs {
			failures = append(failures, domain.ParallelFailure{
				Provider: obs.ProviderID, Attempt: 1,
				Summary: fmt.Sprintf("latency %dms exceeds max_latency_ms %dms", obs.LatencyMs, *cfg.MaxLatencyMs),
			})
			continue
		}
		if cfg.MaxCostUSD != nil && obs.CostEstimate > *cfg.MaxCostUSD {
			failures = append(failures, domain.ParallelFailure{
				Provider: obs.ProviderID, Attempt: 1,
				Summary: fmt.Sprintf("cost $%.4f exceeds max_cost_usd $%.4f", obs.CostEstimate, *cfg.MaxCostUSD),
			})
			continue
		}
		admitted = append(admitted, obs)
	}
	return admitted, failures
}

func findByText(candidates []domain.ConsensusObservation, text string) (domain.ConsensusObservation, bool) {
	for _, c := range candidates {
		if c.Response.Text == text {
			return c, true
		}
	}
	return domain.ConsensusObservation{}, false
}

func summarize(candidates []domain.ConsensusObservation) []CandidateSummary {
	out := make([]CandidateSummary, 0, len(candidates))
	for _, c := range candidates {
		var cost *float64
		if c.CostEstimate != 0 {
			v := c.CostEstimate
			cost = &v
		}
		out = append(out, CandidateSummary{
			Provider: c.ProviderID,
			Text:     c.Response.Text,
			Latency:  c.LatencyMs,
			Cost:     cost,
		})
	}
	return out
}

func tally(candidates []domain.ConsensusObservation, schema *sdomain.Schema) map[string]int {
	buckets := buildBuckets(schema, candidates, func(string) bool { return true })
	out := make(map[string]int, len(buckets))
	for _, b := range buckets {
		out[b.key] = len(b.members)
	}
	return out
}

// decideRound runs the bucket/score selection and tie-break of one voting
// round over candidates. It returns errQuorumUnmet (unwrapped) when the
// leading bucket exists but does not reach quorum, signalling the caller to
// attempt a judge runoff.
func decideRound(cfg domain.ConsensusConfig, schema *sdomain.Schema, candidates []domain.ConsensusObservation, isComplete func(string) bool) (*Result, error) {
	switch cfg.Strategy {
	case domain.StrategyMaxScore:
		return decideMaxScore(cfg, candidates)
	default:
		return decideBucketed(cfg, schema, candidates, isComplete)
	}
}

func decideBucketed(cfg domain.ConsensusConfig, schema *sdomain.Schema, candidates []domain.ConsensusObservation, isComplete func(string) bool) (*Result, error) {
	buckets := buildBuckets(schema, candidates, isComplete)

	metric := func(b *bucket) float64 {
		if cfg.Strategy == domain.StrategyWeightedVote {
			return b.totalWeight(cfg.ProviderWeights)
		}
		return float64(len(b.members))
	}

	var best float64
	var leaders []*bucket
	for _, b := range buckets {
		m := metric(b)
		if len(leaders) == 0 || m > best {
			best = m
			leaders = []*bucket{b}
		} else if m == best {
			leaders = append(leaders, b)
		}
	}

	// Bucket-completeness preference: among tied leaders, a schema-complete
	// bucket beats an equally-voted incomplete one.
	if len(leaders) > 1 {
		var complete []*bucket
		for _, b := range leaders {
			if b.complete {
				complete = append(complete, b)
			}
		}
		if len(complete) > 0 && len(complete) < len(leaders) {
			leaders = complete
		}
	}

	tallyMap := make(map[string]int, len(buckets))
	for _, b := range buckets {
		tallyMap[b.key] = len(b.members)
	}

	var winningBucket *bucket
	tieApplied := false
	var tieCriterion domain.TieBreakCriterion
	var tieReason string

	if len(leaders) == 1 {
		winningBucket = leaders[0]
	} else {
		var union []domain.ConsensusObservation
		for _, b := range leaders {
			union = append(union, b.members...)
		}
		tb := breakTies(union, cfg.TieBreaker)
		tieApplied = tb.Applied
		tieCriterion = tb.Criterion
		tieReason = tb.Reason
		for _, b := range leaders {
			if bucketContains(b, tb.Winner) {
				winningBucket = b
				break
			}
		}
	}

	votes := len(winningBucket.members)
	if votes < cfg.Quorum {
		return nil, errQuorumUnmet
	}

	representative := pickRepresentative(winningBucket.members)

	return &Result{
		Response:           representative.Response,
		WinnerProviderID:   representative.ProviderID,
		Votes:              votes,
		Tally:              tallyMap,
		TieBreakApplied:    tieApplied,
		TieBreakerSelected: tieCriterion,
		TieBreakReason:     tieReason,
		CandidateSummaries: summarize(candidates),
	}, nil
}

func decideMaxScore(cfg domain.ConsensusConfig, candidates []domain.ConsensusObservation) (*Result, error) {
	type scored struct {
		obs   domain.ConsensusObservation
		score float64
		has   bool
	}
	scoredCandidates := make([]scored, 0, len(candidates))
	anyScored := false
	scores := map[string]float64{}
	for _, c := range candidates {
		v, ok := c.Response.Score()
		scoredCandidates = append(scoredCandidates, scored{obs: c, score: v, has: ok})
		if ok {
			anyScored = true
			scores[c.Response.Text] = v
		}
	}

	if !anyScored {
		tb := breakTies(candidates, cfg.TieBreaker)
		return &Result{
			Response:           tb.Winner.Response,
			WinnerProviderID:   tb.Winner.ProviderID,
			Votes:              1,
			Tally:              tally(candidates, nil),
			TieBreakApplied:    tb.Applied,
			TieBreakerSelected: tb.Criterion,
			TieBreakReason:     tb.Reason,
			CandidateSummaries: summarize(candidates),
		}, nil
	}

	// (has_score, score, -index) ordering from original_source's
	// MaxScoreStrategy: scored candidates beat unscored ones; among scored
	// candidates, highest score wins; ties break toward the earliest index.
	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		a, b := scoredCandidates[i], scoredCandidates[j]
		if a.has != b.has {
			return a.has && !b.has
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.obs.Index < b.obs.Index
	})
	winner := scoredCandidates[0]
	winnerScore := winner.score

	return &Result{
		Response:           winner.obs.Response,
		WinnerProviderID:   winner.obs.ProviderID,
		Votes:              1,
		Tally:              tally(candidates, nil),
		Scores:             scores,
		WinnerScore:        &winnerScore,
		CandidateSummaries: summarize(candidates),
	}, nil
}

func bucketContains(b *bucket, obs domain.ConsensusObservation) bool {
	for _, m := range b.members {
		if m.Index == obs.Index {
			return true
		}
	}
	return false
}

// pickRepresentative chooses the stable, deterministic response for a
// winning bucket whose members all normalize to the same text: the member
// with the smallest declaration index.
func pickRepresentative(members []domain.ConsensusObservation) domain.ConsensusObservation {
	best := members[0]
	for _, m := range members[1:] {
		if m.Index < best.Index {
			best = m
		}
	}
	return best
}

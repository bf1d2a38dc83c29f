package consensus

import (
	"fmt"
	"strings"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

// strategyAliases mirrors original_source's
// aggregation/builtin/registry.py STRATEGY_ALIASES table: several spellings
// resolve to the same canonical strategy.
var strategyAliases = map[string]domain.ConsensusStrategy{
	"majority_vote": domain.StrategyMajorityVote,
	"majority":      domain.StrategyMajorityVote,
	"vote":          domain.StrategyMajorityVote,
	"maj":           domain.StrategyMajorityVote,
	"weighted_vote": domain.StrategyWeightedVote,
	"weighted":      domain.StrategyWeightedVote,
	"weight":        domain.StrategyWeightedVote,
	"max_score":     domain.StrategyMaxScore,
	"score":         domain.StrategyMaxScore,
	"best_score":    domain.StrategyMaxScore,
}

// ResolveStrategy normalizes a caller-supplied strategy name to its
// canonical form.
func ResolveStrategy(name string) (domain.ConsensusStrategy, error) {
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "-", "_")))
	if canonical, ok := strategyAliases[key]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("unknown consensus strategy %q", name)
}

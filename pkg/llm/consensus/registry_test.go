package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

func TestResolveStrategy_Aliases(t *testing.T) {
	cases := map[string]domain.ConsensusStrategy{
		"majority_vote": domain.StrategyMajorityVote,
		"majority":      domain.StrategyMajorityVote,
		"vote":          domain.StrategyMajorityVote,
		"weighted":      domain.StrategyWeightedVote,
		"score":         domain.StrategyMaxScore,
	}
	for input, want := range cases {
		got, err := ResolveStrategy(input)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestResolveStrategy_Unknown(t *testing.T) {
	_, err := ResolveStrategy("bogus")
	assert.Error(t, err)
}

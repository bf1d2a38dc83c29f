package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
	"github.com/nilfrost/llmorch/pkg/llm/sink"
)

func TestRunConsensus_MajorityWinsAndEmitsVoteBeforeMetric(t *testing.T) {
	a := provider.NewMockProvider("a", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "A"}))
	b := provider.NewMockProvider("b", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "A"}))
	c := provider.NewMockProvider("c", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "B"}))

	memSink := sink.NewMemorySink()
	rc := &RunContext{
		Request:   testRequest(),
		Providers: []domain.Provider{a, b, c},
		Config: domain.RunnerConfig{
			Mode: domain.ModeConsensus, MaxConcurrency: 3,
			Consensus: domain.ConsensusConfig{Strategy: domain.StrategyMajorityVote, Quorum: 2, MaxRounds: 2},
		},
		Sink: memSink,
		Meta: provider.RunMeta{RunID: "r10", Mode: domain.ModeConsensus},
	}

	out := RunConsensus(context.Background(), rc)
	require.NoError(t, out.Err)
	assert.Equal(t, "A", out.Response.Text)

	events := memSink.Events()
	var voteIdx, metricIdx = -1, -1
	for i, e := range events {
		if e.Type == domain.EventConsensusVote {
			voteIdx = i
		}
		if e.Type == domain.EventRunMetric {
			metricIdx = i
		}
	}
	require.NotEqual(t, -1, voteIdx)
	require.NotEqual(t, -1, metricIdx)
	assert.Less(t, voteIdx, metricIdx)
}

func TestRunConsensus_EngineFailurePropagatesAsError(t *testing.T) {
	a := provider.NewMockProvider("a", provider.WithError(domain.ErrUnavailable))
	b := provider.NewMockProvider("b", provider.WithError(domain.ErrUnavailable))

	memSink := sink.NewMemorySink()
	rc := &RunContext{
		Request:   testRequest(),
		Providers: []domain.Provider{a, b},
		Config: domain.RunnerConfig{
			Mode: domain.ModeConsensus, MaxConcurrency: 2,
			Consensus: domain.ConsensusConfig{Strategy: domain.StrategyMajorityVote, Quorum: 1, MaxRounds: 1},
		},
		Sink: memSink,
		Meta: provider.RunMeta{RunID: "r11", Mode: domain.ModeConsensus},
	}

	out := RunConsensus(context.Background(), rc)
	require.Error(t, out.Err)

	metrics := memSink.ByType(domain.EventRunMetric)
	require.Len(t, metrics, 1)
	assert.Equal(t, "error", metrics[0].Fields["status"])
}

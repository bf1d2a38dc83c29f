package strategy

import (
	"context"
	"fmt"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

// Execute selects the strategy named by rc.Config.Mode and runs it.
func Execute(ctx context.Context, rc *RunContext) Outcome {
	switch rc.Config.Mode {
	case domain.ModeSequential:
		return RunSequential(ctx, rc)
	case domain.ModeParallelAny:
		return RunParallelAny(ctx, rc)
	case domain.ModeParallelAll:
		return RunParallelAll(ctx, rc)
	case domain.ModeConsensus:
		return RunConsensus(ctx, rc)
	default:
		return Outcome{Err: fmt.Errorf("strategy: unknown mode %q", rc.Config.Mode)}
	}
}

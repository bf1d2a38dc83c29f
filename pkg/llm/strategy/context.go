// Package strategy dispatches one run across providers according to its
// declared execution mode, per spec §4.5: sequential fallback,
// parallel-any, parallel-all, and consensus.
package strategy

import (
	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
	"github.com/nilfrost/llmorch/pkg/llm/ratelimit"
)

// RunContext owns everything a strategy needs to execute one run: the
// request, the ordered provider list, the event sink, the shadow
// collaborator, and the shared rate limiter.
type RunContext struct {
	Request   domain.ProviderRequest
	Providers []domain.Provider
	Config    domain.RunnerConfig
	Sink      domain.EventSink
	Limiter   *ratelimit.Limiter
	Meta      provider.RunMeta

	Shadow         domain.Provider
	ShadowTimeoutS float64
}

// ProviderNames returns the declared provider names in order, used to
// populate the event envelope's providers field.
func (rc *RunContext) ProviderNames() []string {
	names := make([]string, len(rc.Providers))
	for i, p := range rc.Providers {
		names[i] = p.Name()
	}
	return names
}

// Outcome is what a strategy returns to the runner façade.
type Outcome struct {
	Response *domain.ProviderResponse
	Err      error
}

package domain

import "context"

// Provider is the capability contract of §4.1: a stable name, a set of
// opaque capability labels, and an invocation that produces a
// ProviderResponse or fails with an error from the taxonomy in errors.go.
// Implementations must be safe for concurrent use by multiple callers.
type Provider interface {
	Name() string
	Capabilities() []string
	Invoke(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// CostEstimator is an optional capability a Provider may also implement to
// support consensus admission caps (max_cost_usd).
type CostEstimator interface {
	EstimateCost(tokensIn, tokensOut int) float64
}

package provider

import (
	"context"
	"sync/atomic"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

// InvokeFunc is the signature a MockProvider's behaviour is built from.
type InvokeFunc func(ctx context.Context, req domain.ProviderRequest) (domain.ProviderResponse, error)

// MockProvider is a configurable test double implementing domain.Provider,
// adapted from the teacher's functional-setter MockProvider (which exposed
// WithGenerateFunc/WithPredefinedResponses for the five-method Generate/
// GenerateMessage/.../Stream contract) collapsed onto the single Invoke
// contract of this spec.
type MockProvider struct {
	name         string
	capabilities []string
	invokeFunc   InvokeFunc
	responses    []domain.ProviderResponse
	errs         []error
	callCount    int64
	estimateCost func(tokensIn, tokensOut int) float64
}

// Option configures a MockProvider at construction time.
type Option func(*MockProvider)

// NewMockProvider builds a MockProvider named name with the given options.
func NewMockProvider(name string, opts ...Option) *MockProvider {
	p := &MockProvider{name: name, capabilities: []string{"text"}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithInvokeFunc sets an arbitrary invocation behaviour.
func WithInvokeFunc(fn InvokeFunc) Option {
	return func(p *MockProvider) { p.invokeFunc = fn }
}

// WithCapabilities overrides the provider's capability labels.
func WithCapabilities(caps ...string) Option {
	return func(p *MockProvider) { p.capabilities = caps }
}

// WithResponseSequence configures a sequence of responses (and/or errors,
// matched by index) returned on successive Invoke calls. When errs[i] is
// non-nil for call i, that error is returned instead of responses[i]. The
// last entry repeats once the sequence is exhausted.
func WithResponseSequence(responses []domain.ProviderResponse, errs []error) Option {
	return func(p *MockProvider) {
		p.responses = responses
		p.errs = errs
	}
}

// WithPredefinedResponse configures a single fixed response for every call.
func WithPredefinedResponse(resp domain.ProviderResponse) Option {
	return func(p *MockProvider) { p.responses = []domain.ProviderResponse{resp} }
}

// WithError configures every call to fail with err.
func WithError(err error) Option {
	return func(p *MockProvider) { p.errs = []error{err} }
}

// WithCostEstimator configures EstimateCost.
func WithCostEstimator(fn func(tokensIn, tokensOut int) float64) Option {
	return func(p *MockProvider) { p.estimateCost = fn }
}

func (p *MockProvider) Name() string           { return p.name }
func (p *MockProvider) Capabilities() []string { return p.capabilities }

// CallCount returns the number of times Invoke has been called.
func (p *MockProvider) CallCount() int64 { return atomic.LoadInt64(&p.callCount) }

func (p *MockProvider) Invoke(ctx context.Context, req domain.ProviderRequest) (domain.ProviderResponse, error) {
	n := int(atomic.AddInt64(&p.callCount, 1)) - 1

	if p.invokeFunc != nil {
		return p.invokeFunc(ctx, req)
	}

	if len(p.errs) > 0 {
		idx := n
		if idx >= len(p.errs) {
			idx = len(p.errs) - 1
		}
		if err := p.errs[idx]; err != nil {
			return domain.ProviderResponse{}, err
		}
	}

	if len(p.responses) == 0 {
		return domain.ProviderResponse{Text: "", Model: req.Model}, nil
	}
	idx := n
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx], nil
}

func (p *MockProvider) EstimateCost(tokensIn, tokensOut int) float64 {
	if p.estimateCost != nil {
		return p.estimateCost(tokensIn, tokensOut)
	}
	return 0
}

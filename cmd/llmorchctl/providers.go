package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
)

// providerSpec is one entry of the providers registry file. Concrete vendor
// HTTP clients are out of scope (DESIGN.md's dropped-teacher-modules list);
// "mock" is the only wired provider type, letting the CLI exercise every
// execution strategy end to end without a live API key.
type providerSpec struct {
	Name         string  `yaml:"name"`
	Type         string  `yaml:"type"`
	Text         string  `yaml:"text"`
	LatencyMs    int64   `yaml:"latency_ms"`
	Error        string  `yaml:"error"`
	CostPerToken float64 `yaml:"cost_per_token"`
}

func loadProviders(path string) ([]domain.Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("providers: reading %s: %w", path, err)
	}

	var specs []providerSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("providers: parsing %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("providers: %s declares no providers", path)
	}

	providers := make([]domain.Provider, 0, len(specs))
	for _, spec := range specs {
		p, err := buildProvider(spec)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func buildProvider(spec providerSpec) (domain.Provider, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("providers: entry missing 'name'")
	}
	switch spec.Type {
	case "", "mock":
		return buildMockProvider(spec), nil
	default:
		return nil, fmt.Errorf("providers: unsupported type %q for %s (only 'mock' is wired)", spec.Type, spec.Name)
	}
}

func buildMockProvider(spec providerSpec) *provider.MockProvider {
	opts := []provider.Option{}
	if spec.CostPerToken > 0 {
		costPerToken := spec.CostPerToken
		opts = append(opts, provider.WithCostEstimator(func(tokensIn, tokensOut int) float64 {
			return float64(tokensIn+tokensOut) * costPerToken
		}))
	}

	latency := time.Duration(spec.LatencyMs) * time.Millisecond
	if spec.Error != "" {
		failure := errors.New(spec.Error)
		opts = append(opts, provider.WithInvokeFunc(func(ctx context.Context, req domain.ProviderRequest) (domain.ProviderResponse, error) {
			if err := sleepOrCancel(ctx, latency); err != nil {
				return domain.ProviderResponse{}, err
			}
			return domain.ProviderResponse{}, failure
		}))
		return provider.NewMockProvider(spec.Name, opts...)
	}

	if latency > 0 {
		text := spec.Text
		opts = append(opts, provider.WithInvokeFunc(func(ctx context.Context, req domain.ProviderRequest) (domain.ProviderResponse, error) {
			if err := sleepOrCancel(ctx, latency); err != nil {
				return domain.ProviderResponse{}, err
			}
			return domain.ProviderResponse{Text: text, Model: req.Model, LatencyMs: spec.LatencyMs}, nil
		}))
		return provider.NewMockProvider(spec.Name, opts...)
	}

	opts = append(opts, provider.WithPredefinedResponse(domain.ProviderResponse{Text: spec.Text}))
	return provider.NewMockProvider(spec.Name, opts...)
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

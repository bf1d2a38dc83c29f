// Package config loads the opaque configuration structs the core accepts
// (spec §6.3): RunnerConfig/ConsensusConfig from a YAML file overridden by
// environment variables, and per-provider ProviderConfig following the
// schema_version/auth_env/extras convention of the original adapter.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

// EnvPrefix is the default environment variable prefix consulted by Load.
const EnvPrefix = "LLMORCH_"

// Raw is the file/env-unmarshalled shape, kept separate from
// domain.RunnerConfig so config parsing never depends on the core's
// pluggable fields (ShadowProvider, Judge are wired by the caller, not
// loaded from file).
type Raw struct {
	Mode           string       `koanf:"mode"`
	MaxConcurrency int          `koanf:"max_concurrency"`
	RPM            int          `koanf:"rpm"`
	MaxAttempts    int          `koanf:"max_attempts"`
	MetricsPath    string       `koanf:"metrics_path"`
	Backoff        RawBackoff   `koanf:"backoff"`
	Consensus      RawConsensus `koanf:"consensus"`
}

type RawBackoff struct {
	RateLimitSleepS float64   `koanf:"rate_limit_sleep_s"`
	RetrySchedule   []float64 `koanf:"retry_schedule"`
}

type RawConsensus struct {
	Strategy        string             `koanf:"strategy"`
	Quorum          int                `koanf:"quorum"`
	TieBreaker      string             `koanf:"tie_breaker"`
	MaxRounds       int                `koanf:"max_rounds"`
	Schema          string             `koanf:"schema"`
	ProviderWeights map[string]float64 `koanf:"provider_weights"`
	MaxLatencyMs    *int64             `koanf:"max_latency_ms"`
	MaxCostUSD      *float64           `koanf:"max_cost_usd"`
}

// Load reads path (if non-empty) as YAML, overrides with LLMORCH_-prefixed
// environment variables, and returns the resulting RunnerConfig. Fields
// absent from both sources keep spec.md's documented defaults
// (max_concurrency=1, max_attempts=1, max_rounds=1).
func Load(path string) (domain.RunnerConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return domain.RunnerConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return domain.RunnerConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyTransform), nil); err != nil {
		return domain.RunnerConfig{}, fmt.Errorf("config: reading environment: %w", err)
	}

	var raw Raw
	if err := k.Unmarshal("", &raw); err != nil {
		return domain.RunnerConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	return toRunnerConfig(raw)
}

// envKeyTransform maps LLMORCH_MAX_CONCURRENCY -> max_concurrency,
// LLMORCH_CONSENSUS_QUORUM -> consensus.quorum, following the teacher's
// cmd/config.go GO_LLMS_PROVIDERS_<X>_API_KEY underscore-to-nested-key
// convention, generalized to koanf's dot-delimited key style.
func envKeyTransform(s string) string {
	trimmed := strings.TrimPrefix(s, EnvPrefix)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "consensus_"):
		return "consensus." + strings.TrimPrefix(lower, "consensus_")
	case strings.HasPrefix(lower, "backoff_"):
		return "backoff." + strings.TrimPrefix(lower, "backoff_")
	default:
		return lower
	}
}

func toRunnerConfig(raw Raw) (domain.RunnerConfig, error) {
	mode := domain.ModeSequential
	if raw.Mode != "" {
		m, err := domain.ResolveMode(raw.Mode)
		if err != nil {
			return domain.RunnerConfig{}, err
		}
		mode = m
	}

	maxConcurrency := raw.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	maxAttempts := raw.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	cfg := domain.RunnerConfig{
		Mode:           mode,
		MaxConcurrency: maxConcurrency,
		RPM:            raw.RPM,
		MaxAttempts:    maxAttempts,
		MetricsPath:    raw.MetricsPath,
		Backoff: domain.Backoff{
			RateLimitSleepS: raw.Backoff.RateLimitSleepS,
			RetrySchedule:   raw.Backoff.RetrySchedule,
		},
	}

	if mode == domain.ModeConsensus {
		consensusCfg, err := toConsensusConfig(raw.Consensus)
		if err != nil {
			return domain.RunnerConfig{}, err
		}
		cfg.Consensus = consensusCfg
	}

	if err := cfg.Validate(); err != nil {
		return domain.RunnerConfig{}, err
	}
	return cfg, nil
}

func toConsensusConfig(raw RawConsensus) (domain.ConsensusConfig, error) {
	strategy := domain.StrategyMajorityVote
	if raw.Strategy != "" {
		switch strings.ToLower(raw.Strategy) {
		case "weighted_vote", "weighted":
			strategy = domain.StrategyWeightedVote
		case "max_score", "score":
			strategy = domain.StrategyMaxScore
		default:
			strategy = domain.StrategyMajorityVote
		}
	}

	tieBreaker := domain.TieBreakStableOrder
	switch strings.ToLower(raw.TieBreaker) {
	case "latency", "min_latency":
		tieBreaker = domain.TieBreakLatency
	case "cost", "min_cost":
		tieBreaker = domain.TieBreakCost
	}

	maxRounds := raw.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	return domain.ConsensusConfig{
		Strategy:        strategy,
		Quorum:          raw.Quorum,
		TieBreaker:      tieBreaker,
		MaxRounds:       maxRounds,
		Schema:          raw.Schema,
		ProviderWeights: raw.ProviderWeights,
		MaxLatencyMs:    raw.MaxLatencyMs,
		MaxCostUSD:      raw.MaxCostUSD,
	}, nil
}

// ProviderConfig is one provider's configuration entry, following the
// original adapter's schema_version/auth_env/extras convention: fields the
// loader understands are pulled out explicitly, everything else is carried
// opaquely in Extras for the concrete provider implementation to interpret.
type ProviderConfig struct {
	SchemaVersion int
	Provider      string
	Model         string
	AuthEnv       string
	MaxTokens     *int
	Extras        map[string]interface{}
}

// LoadProviderConfig reads one provider entry from path, validating the
// required provider/model fields (schema_version defaults to 1 when absent).
// auth_env is kept as the environment variable's name; AuthValue resolves it.
func LoadProviderConfig(path string) (ProviderConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return ProviderConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	raw := k.All()

	schemaVersion := 1
	if v, ok := raw["schema_version"]; ok {
		n, err := toInt(v)
		if err != nil {
			return ProviderConfig{}, fmt.Errorf("config: schema_version must be an integer: %w", err)
		}
		schemaVersion = n
	}

	provider, _ := raw["provider"].(string)
	if provider == "" {
		return ProviderConfig{}, fmt.Errorf("config: 'provider' must be a non-empty string")
	}
	model, _ := raw["model"].(string)
	if model == "" {
		return ProviderConfig{}, fmt.Errorf("config: 'model' must be a non-empty string")
	}

	authEnv, _ := raw["auth_env"].(string)

	var maxTokens *int
	if v, ok := raw["max_tokens"]; ok && v != nil {
		n, err := toInt(v)
		if err != nil {
			return ProviderConfig{}, fmt.Errorf("config: max_tokens must be an integer: %w", err)
		}
		maxTokens = &n
	}

	extras := map[string]interface{}{}
	for key, value := range raw {
		switch key {
		case "schema_version", "provider", "model", "auth_env", "max_tokens":
			continue
		}
		extras[key] = value
	}

	return ProviderConfig{
		SchemaVersion: schemaVersion,
		Provider:      provider,
		Model:         model,
		AuthEnv:       authEnv,
		MaxTokens:     maxTokens,
		Extras:        extras,
	}, nil
}

// AuthValue resolves this config's auth_env to its environment variable
// value, falling back to "{PROVIDER}_API_KEY" (upper-cased) per the
// teacher's GetOptimizedAPIKey fallback convention.
func (c ProviderConfig) AuthValue() (string, error) {
	if c.AuthEnv != "" {
		if v := os.Getenv(c.AuthEnv); v != "" {
			return v, nil
		}
	}
	fallback := strings.ToUpper(c.Provider) + "_API_KEY"
	if v := os.Getenv(fallback); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("config: no API key configured for provider %s (set %s or %s)", c.Provider, c.AuthEnv, fallback)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

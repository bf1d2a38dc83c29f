package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_DefaultsWhenNoPathOrEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSequential, cfg.Mode)
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, 1, cfg.MaxAttempts)
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runner.yaml", `
mode: parallel_any
max_concurrency: 4
rpm: 60
max_attempts: 3
backoff:
  rate_limit_sleep_s: 2.5
  retry_schedule: [0.1, 0.2, 0.4]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeParallelAny, cfg.Mode)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, 60, cfg.RPM)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2.5, cfg.Backoff.RateLimitSleepS)
	assert.Equal(t, []float64{0.1, 0.2, 0.4}, cfg.Backoff.RetrySchedule)
}

func TestLoad_ConsensusSection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runner.yaml", `
mode: consensus
max_concurrency: 3
consensus:
  strategy: weighted_vote
  quorum: 2
  tie_breaker: latency
  max_rounds: 2
  provider_weights:
    a: 1.5
    b: 1.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, domain.ModeConsensus, cfg.Mode)
	assert.Equal(t, domain.StrategyWeightedVote, cfg.Consensus.Strategy)
	assert.Equal(t, 2, cfg.Consensus.Quorum)
	assert.Equal(t, domain.TieBreakLatency, cfg.Consensus.TieBreaker)
	assert.Equal(t, 2, cfg.Consensus.MaxRounds)
	assert.Equal(t, 1.5, cfg.Consensus.ProviderWeights["a"])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runner.yaml", `
mode: sequential
max_concurrency: 1
`)

	t.Setenv("LLMORCH_MAX_CONCURRENCY", "8")
	t.Setenv("LLMORCH_MODE", "parallel_all")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeParallelAll, cfg.Mode)
	assert.Equal(t, 8, cfg.MaxConcurrency)
}

func TestLoad_EnvOverridesNestedConsensusKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runner.yaml", `
mode: consensus
max_concurrency: 1
consensus:
  quorum: 1
`)
	t.Setenv("LLMORCH_CONSENSUS_QUORUM", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Consensus.Quorum)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ConsensusModeWithoutQuorumFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runner.yaml", "mode: consensus\nmax_concurrency: 1\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadProviderConfig_ParsesKnownAndExtraFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "openai.yaml", `
schema_version: 1
provider: openai
model: gpt-4o
auth_env: MY_OPENAI_KEY
max_tokens: 2048
temperature: 0.2
base_url: https://api.example.com
`)

	cfg, err := LoadProviderConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.SchemaVersion)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, "MY_OPENAI_KEY", cfg.AuthEnv)
	require.NotNil(t, cfg.MaxTokens)
	assert.Equal(t, 2048, *cfg.MaxTokens)
	assert.Equal(t, 0.2, cfg.Extras["temperature"])
	assert.Equal(t, "https://api.example.com", cfg.Extras["base_url"])
	assert.NotContains(t, cfg.Extras, "provider")
}

func TestLoadProviderConfig_RejectsMissingProvider(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "model: gpt-4o\n")

	_, err := LoadProviderConfig(path)
	assert.Error(t, err)
}

func TestProviderConfig_AuthValueResolvesAuthEnv(t *testing.T) {
	t.Setenv("MY_KEY", "secret-value")
	cfg := ProviderConfig{Provider: "openai", AuthEnv: "MY_KEY"}

	v, err := cfg.AuthValue()
	require.NoError(t, err)
	assert.Equal(t, "secret-value", v)
}

func TestProviderConfig_AuthValueFallsBackToProviderEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "fallback-value")
	cfg := ProviderConfig{Provider: "anthropic"}

	v, err := cfg.AuthValue()
	require.NoError(t, err)
	assert.Equal(t, "fallback-value", v)
}

func TestProviderConfig_AuthValueErrorsWhenUnset(t *testing.T) {
	cfg := ProviderConfig{Provider: "nonexistent-provider-xyz"}
	_, err := cfg.AuthValue()
	assert.Error(t, err)
}

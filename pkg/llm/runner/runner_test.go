package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
	"github.com/nilfrost/llmorch/pkg/llm/sink"
)

func newRequest(model string) domain.ProviderRequest {
	return domain.NewProviderRequest(domain.ProviderRequestParams{Model: model, Prompt: "hello"})
}

func TestRun_RejectsEmptyModel(t *testing.T) {
	ok := provider.NewMockProvider("ok", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "fine"}))
	r, err := New(domain.RunnerConfig{Mode: domain.ModeSequential, MaxConcurrency: 1}, []domain.Provider{ok})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), newRequest(""), RunOptions{})
	assert.Error(t, err)
}

func TestRun_SequentialSuccess(t *testing.T) {
	ok := provider.NewMockProvider("ok", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "fine"}))
	memSink := sink.NewMemorySink()
	r, err := New(domain.RunnerConfig{Mode: domain.ModeSequential, MaxConcurrency: 1}, []domain.Provider{ok}, WithSink(memSink))
	require.NoError(t, err)

	resp, err := r.Run(context.Background(), newRequest("m"), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Text)

	metrics := memSink.ByType(domain.EventRunMetric)
	require.Len(t, metrics, 1)
}

func TestRun_FingerprintStableAcrossRepeatedCalls(t *testing.T) {
	ok := provider.NewMockProvider("ok", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "fine"}))
	memSinkA := sink.NewMemorySink()
	memSinkB := sink.NewMemorySink()
	r, err := New(domain.RunnerConfig{Mode: domain.ModeSequential, MaxConcurrency: 1}, []domain.Provider{ok})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), newRequest("m"), RunOptions{Sink: memSinkA})
	require.NoError(t, err)
	_, err = r.Run(context.Background(), newRequest("m"), RunOptions{Sink: memSinkB})
	require.NoError(t, err)

	eventsA := memSinkA.ByType(domain.EventRunMetric)
	eventsB := memSinkB.ByType(domain.EventRunMetric)
	require.Len(t, eventsA, 1)
	require.Len(t, eventsB, 1)
	assert.Equal(t, eventsA[0].RunID, eventsB[0].RunID)
	assert.Equal(t, eventsA[0].RequestFingerprint, eventsB[0].RequestFingerprint)
}

func TestRun_PerCallSinkOverridesRunnerSink(t *testing.T) {
	ok := provider.NewMockProvider("ok", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "fine"}))
	runnerSink := sink.NewMemorySink()
	callSink := sink.NewMemorySink()
	r, err := New(domain.RunnerConfig{Mode: domain.ModeSequential, MaxConcurrency: 1}, []domain.Provider{ok}, WithSink(runnerSink))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), newRequest("m"), RunOptions{Sink: callSink})
	require.NoError(t, err)

	assert.Empty(t, runnerSink.Events())
	assert.NotEmpty(t, callSink.Events())
}

func TestRun_MetricsPathOpensJSONLSinkWhenNoSinkGiven(t *testing.T) {
	ok := provider.NewMockProvider("ok", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "fine"}))
	r, err := New(domain.RunnerConfig{Mode: domain.ModeSequential, MaxConcurrency: 1}, []domain.Provider{ok})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	_, err = r.Run(context.Background(), newRequest("m"), RunOptions{MetricsPath: path})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"run_metric"`)
}

func TestRunAsync_BehavesLikeRun(t *testing.T) {
	ok := provider.NewMockProvider("ok", provider.WithPredefinedResponse(domain.ProviderResponse{Text: "fine"}))
	r, err := New(domain.RunnerConfig{Mode: domain.ModeSequential, MaxConcurrency: 1}, []domain.Provider{ok})
	require.NoError(t, err)

	resp, err := r.RunAsync(context.Background(), newRequest("m"), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Text)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(domain.RunnerConfig{Mode: domain.ModeSequential, MaxConcurrency: 0}, nil)
	assert.Error(t, err)
}

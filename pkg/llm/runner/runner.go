// Package runner implements the public Run/RunAsync façade of spec §4.7:
// request validation, fingerprint/run_id derivation, RunContext assembly
// with sink/metrics/shadow precedence resolution, and strategy dispatch.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/fingerprint"
	"github.com/nilfrost/llmorch/pkg/llm/provider"
	"github.com/nilfrost/llmorch/pkg/llm/ratelimit"
	"github.com/nilfrost/llmorch/pkg/llm/sink"
	"github.com/nilfrost/llmorch/pkg/llm/strategy"
)

// Runner is one configured orchestration fabric: a fixed provider list, a
// validated RunnerConfig, a shared rate limiter, and a default event sink.
// Grounded on the teacher's pkg/util/llmutil/pool.go ProviderPool (owned
// provider list + failover wrapper), generalized to the four strategies of
// spec §4.5.
type Runner struct {
	config    domain.RunnerConfig
	providers []domain.Provider
	sink      domain.EventSink
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithSink overrides the runner-level default event sink (null by default).
func WithSink(s domain.EventSink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithLogger overrides the structured logger used for internal diagnostics
// (a metrics sink that fails to open). Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New validates config and builds a Runner over providers.
func New(config domain.RunnerConfig, providers []domain.Provider, opts ...Option) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		config:    config,
		providers: providers,
		sink:      domain.NullSink{},
		limiter:   ratelimit.New(config.RPM),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunOptions carries the per-call overrides of spec §4.7 step 3.
type RunOptions struct {
	Sink           domain.EventSink
	MetricsPath    string
	Shadow         domain.Provider
	ShadowTimeoutS float64
	TraceID        string
	ProjectID      string
}

// Run executes request synchronously against the worker-pool fabric.
func (r *Runner) Run(ctx context.Context, req domain.ProviderRequest, opts RunOptions) (domain.ProviderResponse, error) {
	return r.execute(ctx, req, opts)
}

// RunAsync executes request against the cooperative fabric. Both fabrics
// share identical field semantics (§9's async/sync duality design note);
// in Go, context.Context already provides cooperative suspension points, so
// RunAsync and Run share one implementation.
func (r *Runner) RunAsync(ctx context.Context, req domain.ProviderRequest, opts RunOptions) (domain.ProviderResponse, error) {
	return r.execute(ctx, req, opts)
}

func (r *Runner) execute(ctx context.Context, req domain.ProviderRequest, opts RunOptions) (domain.ProviderResponse, error) {
	if err := validateRequest(req); err != nil {
		return domain.ProviderResponse{}, err
	}

	runFingerprint := fingerprint.Compute("runner", req.PromptText(), req.Options, req.MaxTokens)

	resolvedSink, closeSink := r.resolveSink(opts)
	if closeSink != nil {
		defer closeSink()
	}

	shadow := opts.Shadow
	if shadow == nil {
		shadow = r.config.ShadowProvider
	}
	shadowTimeout := opts.ShadowTimeoutS

	traceID := opts.TraceID
	if traceID == "" {
		traceID = req.Metadata["trace_id"]
	}
	if traceID == "" {
		traceID = uuid.NewString()
	}
	projectID := opts.ProjectID
	if projectID == "" {
		projectID = req.Metadata["project_id"]
	}

	rc := &strategy.RunContext{
		Request:   req,
		Providers: r.providers,
		Config:    r.config,
		Sink:      resolvedSink,
		Limiter:   r.limiter,
		Meta: provider.RunMeta{
			RunID:              runFingerprint,
			RequestFingerprint: runFingerprint,
			Mode:               r.config.Mode,
			TraceID:            traceID,
			ProjectID:          projectID,
		},
		Shadow:         shadow,
		ShadowTimeoutS: shadowTimeout,
	}
	rc.Meta.Providers = rc.ProviderNames()

	outcome := strategy.Execute(ctx, rc)
	if outcome.Err != nil {
		return domain.ProviderResponse{}, outcome.Err
	}
	return *outcome.Response, nil
}

func validateRequest(req domain.ProviderRequest) error {
	if strings.TrimSpace(req.Model) == "" {
		return fmt.Errorf("%w: model is required", domain.ErrConfig)
	}
	return nil
}

// resolveSink applies the sink precedence of spec §4.7 step 3: per-call >
// runner-level > null. When neither a sink nor a runner default is set but a
// metrics path is given (per-call, else config), a JSONL file sink is opened
// for the duration of the run; the returned closer must be deferred by the
// caller.
func (r *Runner) resolveSink(opts RunOptions) (domain.EventSink, func()) {
	if opts.Sink != nil {
		return opts.Sink, nil
	}
	if _, isNull := r.sink.(domain.NullSink); !isNull {
		return r.sink, nil
	}
	path := opts.MetricsPath
	if path == "" {
		path = r.config.MetricsPath
	}
	if path == "" {
		return domain.NullSink{}, nil
	}
	jsonlSink, err := sink.OpenJSONLSink(path)
	if err != nil {
		r.logger.Warn("failed to open metrics sink, falling back to null sink", zap.String("path", path), zap.Error(err))
		return domain.NullSink{}, nil
	}
	return jsonlSink, func() { _ = jsonlSink.Close() }
}

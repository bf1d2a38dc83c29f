package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/nilfrost/llmorch/pkg/config"
	"github.com/nilfrost/llmorch/pkg/llm/domain"
	"github.com/nilfrost/llmorch/pkg/llm/runner"
)

// RunCmd sends one request through the strategy configured by
// --runner-config and prints the winning response's text (or, with
// --output json, the whole response). The producing provider is not printed.
type RunCmd struct {
	Model       string   `kong:"required,help='Model identifier forwarded to providers'"`
	Prompt      []string `kong:"arg,required,help='Prompt text'"`
	Temperature float64  `kong:"help='Sampling temperature'"`
	MaxTokens   int      `kong:"name='max-tokens',help='Maximum tokens to generate'"`
	MetricsPath string   `kong:"name='metrics-path',type='path',help='Append run events as JSONL to this file'"`
	TraceID     string   `kong:"name='trace-id',help='Trace identifier to propagate to emitted events'"`
	ProjectID   string   `kong:"name='project-id',help='Project identifier to propagate to emitted events'"`
}

func (c *RunCmd) Run(ctx *Context) error {
	runnerConfig, err := config.Load(ctx.CLI.RunnerConfig)
	if err != nil {
		return fmt.Errorf("loading runner config: %w", err)
	}

	providers, err := loadProviders(ctx.CLI.Providers)
	if err != nil {
		return err
	}

	var runnerOpts []runner.Option
	if ctx.CLI.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("constructing logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
		runnerOpts = append(runnerOpts, runner.WithLogger(logger))
	}

	r, err := runner.New(runnerConfig, providers, runnerOpts...)
	if err != nil {
		return fmt.Errorf("constructing runner: %w", err)
	}

	var maxTokens *int
	if c.MaxTokens > 0 {
		maxTokens = &c.MaxTokens
	}
	var temperature *float64
	if c.Temperature != 0 {
		temperature = &c.Temperature
	}

	req := domain.NewProviderRequest(domain.ProviderRequestParams{
		Model:       c.Model,
		Prompt:      strings.Join(c.Prompt, " "),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})

	resp, err := r.Run(context.Background(), req, runner.RunOptions{
		MetricsPath: c.MetricsPath,
		TraceID:     c.TraceID,
		ProjectID:   c.ProjectID,
	})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if ctx.CLI.Output == "json" {
		return printJSON(os.Stdout, resp)
	}
	fmt.Println(resp.Text)
	return nil
}

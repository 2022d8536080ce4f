package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/c360studio/ontogenia/config"
	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/model"
	contentextractor "github.com/c360studio/ontogenia/processor/content-extractor"
	ontologysynthesizer "github.com/c360studio/ontogenia/processor/ontology-synthesizer"
	ontologyvalidator "github.com/c360studio/ontogenia/processor/ontology-validator"
	questiongenerator "github.com/c360studio/ontogenia/processor/question-generator"
	"github.com/c360studio/ontogenia/storage"
	"github.com/c360studio/ontogenia/workflow"
)

// app wires the configuration into the pipeline components for one command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       *printer
	artifacts *storage.Artifacts
	registry  *model.Registry
	metrics   *prometheus.Registry

	llmMetrics *llm.Metrics
	calls      *llm.CallStore
	client     *llm.Client
}

// newApp loads the layered configuration, applies the persistent flags on
// top and builds the shared infrastructure.
func newApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	logger := newLogger(opts.logLevel)

	cfg, err := config.NewLoader(logger).Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.model != "" {
		cfg.Model.Pin = opts.model
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger = newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	registry := cfg.Registry()
	if cfg.Model.Pin != "" && registry.GetEndpoint(cfg.Model.Pin) == nil {
		return nil, fmt.Errorf("unknown model endpoint %q (known: %v)", cfg.Model.Pin, registry.ListEndpoints())
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		out:       newPrinter(cmd.OutOrStdout(), opts.noColor),
		artifacts: storage.NewArtifacts(cfg.Output.Dir, logger),
		registry:  registry,
		metrics:   prometheus.NewRegistry(),
	}

	a.llmMetrics, err = llm.NewMetrics(a.metrics)
	if err != nil {
		return nil, fmt.Errorf("register llm metrics: %w", err)
	}
	return a, nil
}

// Close flushes the metrics textfile and closes the call history.
func (a *app) Close() error {
	var firstErr error
	if a.cfg.Output.MetricsFile != "" {
		path := a.artifacts.Path(a.cfg.Output.MetricsFile)
		if err := workflow.WriteTextfile(path, a.metrics); err != nil {
			firstErr = err
		} else {
			a.logger.Debug("Wrote metrics textfile", "path", path)
		}
	}
	if a.calls != nil {
		if err := a.calls.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close call history: %w", err)
		}
	}
	return firstErr
}

// callStore opens the configured call history, or returns nil when disabled.
func (a *app) callStore() (*llm.CallStore, error) {
	if a.calls != nil || a.cfg.Output.CallHistory == "" {
		return a.calls, nil
	}
	store, err := llm.NewCallStore(a.artifacts.Path(a.cfg.Output.CallHistory))
	if err != nil {
		return nil, fmt.Errorf("open call history: %w", err)
	}
	a.calls = store
	return store, nil
}

// llmClient builds the model client on first use so commands that never
// call a model do not open the call history.
func (a *app) llmClient() (*llm.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	opts := []llm.ClientOption{
		llm.WithRetryConfig(a.cfg.Model.Retry),
		llm.WithHTTPClient(&http.Client{Timeout: a.cfg.Model.Timeout}),
		llm.WithLogger(a.logger),
		llm.WithMetrics(a.llmMetrics),
	}
	store, err := a.callStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, llm.WithCallStore(store))
	}

	a.client = llm.NewClient(a.registry, opts...)
	return a.client, nil
}

func (a *app) extractor(rawTextFile string) (*contentextractor.Component, error) {
	c := a.cfg.Extract
	cfg := contentextractor.Config{
		Parser:           c.Parser,
		LlamaParseURL:    c.LlamaParseURL,
		Language:         c.Language,
		ResultType:       c.ResultType,
		NumWorkers:       c.NumWorkers,
		PollInterval:     c.PollInterval,
		Timeout:          c.Timeout,
		DropSegments:     c.DropSegments,
		Noise:            c.Noise,
		NoiseReplacement: c.NoiseReplacement,
		RawTextFile:      rawTextFile,
	}
	return contentextractor.NewComponent(cfg,
		contentextractor.WithArtifacts(a.artifacts),
		contentextractor.WithLogger(a.logger),
	)
}

func (a *app) questionGenerator() (*questiongenerator.Component, error) {
	client, err := a.llmClient()
	if err != nil {
		return nil, err
	}
	c := a.cfg.Questions
	cfg := questiongenerator.DefaultConfig()
	cfg.Temperature = c.Temperature
	cfg.MarkerLen = c.MarkerLen
	cfg.Strict = c.Strict
	cfg.TextFile = c.TextFile
	cfg.SetFile = c.SetFile
	return questiongenerator.NewComponent(cfg, client, a.artifacts, a.logger)
}

func (a *app) synthesizer() (*ontologysynthesizer.Component, error) {
	client, err := a.llmClient()
	if err != nil {
		return nil, err
	}
	c := a.cfg.Synthesis
	cfg := ontologysynthesizer.DefaultConfig()
	cfg.Temperature = c.Temperature
	cfg.ProcedureFile = c.ProcedureFile
	cfg.FenceMode = c.Fence.Mode
	cfg.PrefixLen = c.Fence.PrefixLen
	cfg.SuffixLen = c.Fence.SuffixLen
	cfg.Run = c.Run
	cfg.Trial = c.Trial
	cfg.NormalizedFile = c.NormalizedFile
	cfg.ParseRetries = c.ParseRetries
	return ontologysynthesizer.NewComponent(cfg, client, a.artifacts, a.logger)
}

func (a *app) validator() (*ontologyvalidator.Component, error) {
	c := a.cfg.Validation
	cfg := ontologyvalidator.Config{
		GraphFile:       c.GraphFile,
		MermaidFile:     c.MermaidFile,
		Shapes:          c.Shapes,
		Inference:       c.Inference,
		FailOnViolation: c.FailOnViolation,
		Debounce:        c.Debounce,
	}
	return ontologyvalidator.NewComponent(cfg, a.artifacts, a.logger)
}

// pipeline assembles the three generation stages.
func (a *app) pipeline() (*workflow.Pipeline, error) {
	ext, err := a.extractor(a.cfg.Extract.RawTextFile)
	if err != nil {
		return nil, fmt.Errorf("content extractor: %w", err)
	}
	qg, err := a.questionGenerator()
	if err != nil {
		return nil, fmt.Errorf("question generator: %w", err)
	}
	syn, err := a.synthesizer()
	if err != nil {
		return nil, fmt.Errorf("ontology synthesizer: %w", err)
	}

	metrics, err := workflow.NewMetrics(a.metrics)
	if err != nil {
		return nil, fmt.Errorf("register pipeline metrics: %w", err)
	}
	return workflow.NewPipeline(ext, qg, syn, a.artifacts,
		workflow.WithMetrics(metrics),
		workflow.WithLogger(a.logger),
		workflow.WithSummaryFile(a.cfg.Output.SummaryFile),
	)
}

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/ontogenia/llm"
	contentextractor "github.com/c360studio/ontogenia/processor/content-extractor"
	ontologysynthesizer "github.com/c360studio/ontogenia/processor/ontology-synthesizer"
	questiongenerator "github.com/c360studio/ontogenia/processor/question-generator"
	"github.com/c360studio/ontogenia/storage"
)

// Extractor produces report text from a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (*contentextractor.Result, error)
}

// QuestionGenerator produces competency questions from report text.
type QuestionGenerator interface {
	Generate(ctx context.Context, reportText string) (*questiongenerator.Result, error)
}

// Synthesizer produces an ontology from a procedure and flattened questions.
type Synthesizer interface {
	Synthesize(ctx context.Context, procedurePath, questions string) (*ontologysynthesizer.Result, error)
}

// Input names what a run starts from.
type Input struct {
	// Source is the report file or URL.
	Source string

	// Procedure is the ontology design procedure file. Empty uses the
	// synthesizer's configured file.
	Procedure string
}

// Pipeline runs the three generation stages in order.
type Pipeline struct {
	extractor   Extractor
	questions   QuestionGenerator
	synthesizer Synthesizer
	artifacts   *storage.Artifacts
	summaryFile string
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records stage metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSummaryFile sets the run summary artifact name. Empty disables it.
func WithSummaryFile(name string) Option {
	return func(p *Pipeline) { p.summaryFile = name }
}

// NewPipeline wires the stages together.
func NewPipeline(ext Extractor, qg QuestionGenerator, syn Synthesizer, artifacts *storage.Artifacts, opts ...Option) (*Pipeline, error) {
	if ext == nil || qg == nil || syn == nil {
		return nil, fmt.Errorf("all three stages are required")
	}
	p := &Pipeline{
		extractor:   ext,
		questions:   qg,
		synthesizer: syn,
		artifacts:   artifacts,
		summaryFile: storage.SummaryFile,
		logger:      slog.Default(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Run executes extraction, question generation and synthesis. The returned
// summary is never nil; on failure it records the failing stage and is
// returned together with the error. The summary is persisted either way.
func (p *Pipeline) Run(ctx context.Context, in Input) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     p.newID(),
		Status:    StatusCreated,
		Source:    in.Source,
		Procedure: in.Procedure,
		StartedAt: p.now(),
	}
	ctx = llm.WithTraceContext(ctx, llm.TraceContext{RunID: summary.RunID})
	logger := p.logger.With("run_id", summary.RunID)
	logger.Info("Pipeline started", "source", in.Source)

	err := p.run(ctx, in, summary)
	if err != nil {
		summary.Error = err.Error()
		_ = summary.transition(StatusFailed)
		logger.Error("Pipeline failed", "status", summary.Status, "error", err)
	}
	summary.FinishedAt = p.now()

	if werr := p.writeSummary(ctx, summary); werr != nil {
		if err == nil {
			err = werr
			summary.Status = StatusFailed
			summary.Error = werr.Error()
		} else {
			logger.Warn("Failed to write run summary", "error", werr)
		}
	}
	p.metrics.observeRun(summary)

	if err != nil {
		return summary, err
	}
	logger.Info("Pipeline complete",
		"questions", summary.Counts.Questions,
		"classes", summary.Counts.Classes,
		"ontology", summary.Artifacts.Ontology,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, in Input, s *RunSummary) error {
	var extracted *contentextractor.Result
	if err := p.stage(ctx, s, StageExtract, func(ctx context.Context) error {
		var err error
		extracted, err = p.extractor.Extract(ctx, in.Source)
		return err
	}); err != nil {
		return err
	}
	s.Artifacts.RawText = extracted.TextPath
	s.Counts.Segments = extracted.Segments
	s.Counts.KeptSegments = extracted.Kept
	s.Counts.NoiseMatches = extracted.NoiseMatches
	s.Counts.TextChars = len(extracted.Text)
	if err := s.transition(StatusExtracted); err != nil {
		return err
	}

	var questions *questiongenerator.Result
	if err := p.stage(ctx, s, StageQuestions, func(ctx context.Context) error {
		var err error
		questions, err = p.questions.Generate(ctx, extracted.Text)
		return err
	}); err != nil {
		return err
	}
	s.Artifacts.Questions = questions.TextPath
	s.Artifacts.QuestionSet = questions.SetPath
	s.Counts.Themes = len(questions.Set.Themes)
	s.Counts.Questions = questions.Set.QuestionCount()
	s.Counts.DroppedLines = questions.Dropped
	s.Usage.Add(questions.Usage)
	s.addModel(questions.Model)
	if err := s.transition(StatusQuestionsGenerated); err != nil {
		return err
	}

	var ontology *ontologysynthesizer.Result
	if err := p.stage(ctx, s, StageSynthesize, func(ctx context.Context) error {
		var err error
		ontology, err = p.synthesizer.Synthesize(ctx, in.Procedure, questions.Flattened)
		return err
	}); err != nil {
		return err
	}
	s.Artifacts.TrialOntology = ontology.TrialPath
	s.Artifacts.Ontology = ontology.NormalizedPath
	s.Counts.Classes = len(ontology.Stats.Classes)
	s.Counts.ObjectProperties = len(ontology.Stats.ObjectProperties)
	s.Counts.DataProperties = len(ontology.Stats.DataProperties)
	s.Counts.Individuals = len(ontology.Stats.Individuals)
	s.Counts.Triples = ontology.Stats.Triples
	s.Usage.Add(ontology.Usage)
	s.addModel(ontology.Model)
	if err := s.transition(StatusSynthesized); err != nil {
		return err
	}
	return s.transition(StatusComplete)
}

// stage runs fn as the named stage and records its outcome.
func (p *Pipeline) stage(ctx context.Context, s *RunSummary, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	rec := StageRecord{Name: name, StartedAt: p.now()}
	err := fn(llm.WithStage(ctx, name))
	rec.Duration = p.now().Sub(rec.StartedAt)
	if err != nil {
		rec.Error = err.Error()
	}
	s.Stages = append(s.Stages, rec)
	p.metrics.observeStage(rec)

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) writeSummary(ctx context.Context, s *RunSummary) error {
	if p.artifacts == nil || p.summaryFile == "" {
		return nil
	}
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	_, err = p.artifacts.Write(ctx, p.summaryFile, data)
	return err
}

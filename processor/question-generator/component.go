// Package questiongenerator asks the LLM for competency questions about a
// threat report and parses its free-text answer into titled themes.
package questiongenerator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/storage"
	"github.com/c360studio/ontogenia/workflow/prompts"
)

// Stage is the stage name used in logs, traces and errors.
const Stage = "question-generator"

// Result is the output of one generation.
type Result struct {
	*Parsed

	// TextPath and SetPath are the written artifacts, empty when disabled.
	TextPath string
	SetPath  string

	Model     string
	RequestID string
	Usage     llm.TokenUsage
}

// Component implements the competency question generator.
type Component struct {
	config    Config
	llmClient llm.Completer
	artifacts *storage.Artifacts
	logger    *slog.Logger
}

// NewComponent creates a question generator. artifacts may be nil to skip
// persistence.
func NewComponent(config Config, client llm.Completer, artifacts *storage.Artifacts, logger *slog.Logger) (*Component, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Component{
		config:    config,
		llmClient: client,
		artifacts: artifacts,
		logger:    logger.With("component", Stage),
	}, nil
}

// Generate prompts the LLM with the report text and parses the questions.
func (c *Component) Generate(ctx context.Context, reportText string) (*Result, error) {
	if reportText == "" {
		return nil, fmt.Errorf("report text is empty")
	}

	ctx = llm.WithStage(ctx, Stage)
	temperature := c.config.Temperature
	started := time.Now()

	resp, err := c.llmClient.Complete(ctx, llm.Request{
		Capability:  c.config.Capability,
		Messages:    []llm.Message{{Role: "user", Content: prompts.CompetencyQuestionsPrompt(reportText)}},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM completion: %w", err)
	}

	c.logger.Debug("LLM response received",
		"model", resp.Model,
		"tokens_used", resp.Usage.TotalTokens,
		"duration", time.Since(started).Round(time.Millisecond))

	parsed, err := Parse(resp.Content, ParseOptions{MarkerLen: c.config.MarkerLen, Strict: c.config.Strict})
	if err != nil {
		return nil, fmt.Errorf("parse competency questions: %w", err)
	}
	if parsed.Dropped > 0 {
		c.logger.Warn("Dropped questions that precede the first title", "dropped", parsed.Dropped)
	}
	if len(parsed.Set.Themes) == 0 {
		c.logger.Warn("LLM output contains no titled themes", "lines", len(parsed.Lines))
	}

	result := &Result{
		Parsed:    parsed,
		Model:     resp.Model,
		RequestID: resp.RequestID,
		Usage:     resp.Usage,
	}
	if err := c.persist(ctx, result); err != nil {
		return nil, err
	}

	c.logger.Info("Generated competency questions",
		"themes", len(parsed.Set.Themes),
		"questions", parsed.Set.QuestionCount(),
		"text_file", result.TextPath)
	return result, nil
}

func (c *Component) persist(ctx context.Context, result *Result) error {
	if c.artifacts == nil {
		return nil
	}

	if c.config.TextFile != "" {
		path, err := c.artifacts.WriteString(ctx, c.config.TextFile, result.Flattened)
		if err != nil {
			return err
		}
		result.TextPath = path
	}

	if c.config.SetFile != "" {
		data, err := yaml.Marshal(result.Set)
		if err != nil {
			return fmt.Errorf("marshal question set: %w", err)
		}
		path, err := c.artifacts.Write(ctx, c.config.SetFile, data)
		if err != nil {
			return err
		}
		result.SetPath = path
	}
	return nil
}

// LoadSet reads a question set written by Generate.
func LoadSet(data []byte) (*QuestionSet, error) {
	var set QuestionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse question set: %w", err)
	}
	return &set, nil
}

// Package ontologysynthesizer asks the LLM to design an OWL ontology that
// answers the competency questions, recovers the RDF/XML document from the
// response, checks that it parses and stores it twice: verbatim under a
// run/trial name and re-serialized under a stable name.
package ontologysynthesizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/c360studio/ontogenia/export"
	"github.com/c360studio/ontogenia/graph"
	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/ontology"
	"github.com/c360studio/ontogenia/storage"
	"github.com/c360studio/ontogenia/workflow/prompts"
)

// Stage is the stage name used in logs, traces and errors.
const Stage = "ontology-synthesizer"

// fenceLangs are the code fence tags accepted around the ontology.
var fenceLangs = []string{"xml", "owl", "rdf"}

// Result is the output of one synthesis.
type Result struct {
	// Document is the ontology text recovered from the response.
	Document string

	// TrialPath is the verbatim ontology file.
	TrialPath string

	// NormalizedPath is the re-serialized ontology file.
	NormalizedPath string

	// Trial is the trial number used in TrialPath.
	Trial int

	Graph *graph.Graph
	Stats ontology.Stats

	// Attempts counts LLM calls, including correction rounds.
	Attempts int

	Model     string
	RequestID string
	Usage     llm.TokenUsage
}

// Component implements the ontology synthesizer.
type Component struct {
	config    Config
	llmClient llm.Completer
	artifacts *storage.Artifacts
	logger    *slog.Logger
	now       func() time.Time
}

// NewComponent creates an ontology synthesizer.
func NewComponent(config Config, client llm.Completer, artifacts *storage.Artifacts, logger *slog.Logger) (*Component, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Component{
		config:    config,
		llmClient: client,
		artifacts: artifacts,
		logger:    logger.With("component", Stage),
		now:       time.Now,
	}, nil
}

// Synthesize designs an ontology from the procedure at procedurePath (the
// configured procedure file when empty) and the flattened questions.
func (c *Component) Synthesize(ctx context.Context, procedurePath, questions string) (*Result, error) {
	if procedurePath == "" {
		procedurePath = c.config.ProcedureFile
	}
	procedure, err := os.ReadFile(procedurePath)
	if err != nil {
		return nil, fmt.Errorf("read procedure: %w", err)
	}
	if strings.TrimSpace(questions) == "" {
		return nil, fmt.Errorf("competency questions are empty")
	}

	ctx = llm.WithStage(ctx, Stage)
	at := c.now()
	trial := c.config.Trial
	if trial == 0 {
		trial = c.artifacts.NextTrial(c.config.Run, at)
	}
	result := &Result{Trial: trial}

	temperature := c.config.Temperature
	messages := []llm.Message{
		{Role: "user", Content: prompts.OntologyPrompt(string(procedure), questions)},
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.llmClient.Complete(ctx, llm.Request{
			Capability:  c.config.Capability,
			Messages:    messages,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM completion: %w", err)
		}
		result.Attempts++
		result.Model = resp.Model
		result.RequestID = resp.RequestID
		result.Usage.Add(resp.Usage)

		c.logger.Debug("LLM response received",
			"model", resp.Model,
			"tokens_used", resp.Usage.TotalTokens,
			"attempt", attempt+1)

		parseErr := c.accept(ctx, resp.Content, at, result)
		if parseErr == nil {
			break
		}
		if !llm.IsMalformed(parseErr) || attempt >= c.config.ParseRetries {
			return nil, parseErr
		}

		c.logger.Warn("Ontology did not parse, asking for a correction",
			"attempt", attempt+1,
			"max_attempts", c.config.ParseRetries+1,
			"error", parseErr)
		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: prompts.OntologyCorrectionPrompt(parseErr)},
		)
	}

	data, err := export.Marshal(result.Graph, export.FormatRDFXML)
	if err != nil {
		return nil, fmt.Errorf("serialize ontology: %w", err)
	}
	result.NormalizedPath, err = c.artifacts.Write(ctx, c.config.NormalizedFile, data)
	if err != nil {
		return nil, err
	}

	result.Stats = ontology.New(result.Graph).Stats()
	c.logger.Info("Synthesized ontology",
		"trial_file", result.TrialPath,
		"normalized_file", result.NormalizedPath,
		"triples", result.Graph.Len(),
		"classes", len(result.Stats.Classes),
		"object_properties", len(result.Stats.ObjectProperties),
		"attempts", result.Attempts)
	return result, nil
}

// accept recovers the document from content, writes it under its trial
// name and parses it into result. Any shape or syntax problem is a
// MalformedResponseError.
func (c *Component) accept(ctx context.Context, content string, at time.Time, result *Result) error {
	doc, err := c.Unfence(content)
	if err != nil {
		return err
	}

	path, err := c.artifacts.WriteString(ctx, storage.TrialName(c.config.Run, result.Trial, at), doc)
	if err != nil {
		return err
	}

	g, err := graph.ParseString(doc, graph.FormatRDFXML, graph.FileBase(path))
	if err != nil {
		return llm.NewMalformedResponseError(Stage, "ontology is not valid RDF/XML: "+err.Error(), doc)
	}
	if g.Len() == 0 {
		return llm.NewMalformedResponseError(Stage, "ontology contains no statements", doc)
	}

	result.Document = doc
	result.TrialPath = path
	result.Graph = g
	return nil
}

// Unfence returns the ontology text inside an LLM response according to
// the configured fence mode.
func (c *Component) Unfence(content string) (string, error) {
	if c.config.FenceMode == FenceFixed {
		doc := llm.StripFixed(content, c.config.PrefixLen, c.config.SuffixLen)
		if strings.TrimSpace(doc) == "" {
			return "", llm.NewMalformedResponseError(Stage, "response shorter than its fences", content)
		}
		return doc, nil
	}

	doc, ok := llm.ExtractFenced(content, fenceLangs...)
	if !ok {
		return "", llm.NewMalformedResponseError(Stage, "no RDF/XML document or xml code fence in response", content)
	}
	return doc, nil
}

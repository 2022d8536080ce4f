package workflow

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/ontogenia/llm"
)

// Stage names as they appear in summaries and metrics.
const (
	StageExtract    = "extract"
	StageQuestions  = "questions"
	StageSynthesize = "synthesize"
)

// StageRecord is the outcome of one stage.
type StageRecord struct {
	Name      string        `yaml:"name"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`
	Error     string        `yaml:"error,omitempty"`
}

// ArtifactPaths lists the files a run produced.
type ArtifactPaths struct {
	RawText       string `yaml:"raw_text,omitempty"`
	Questions     string `yaml:"questions,omitempty"`
	QuestionSet   string `yaml:"question_set,omitempty"`
	TrialOntology string `yaml:"trial_ontology,omitempty"`
	Ontology      string `yaml:"ontology,omitempty"`
}

// Counts are the sizes of the intermediate results.
type Counts struct {
	Segments         int `yaml:"segments"`
	KeptSegments     int `yaml:"kept_segments"`
	NoiseMatches     int `yaml:"noise_matches"`
	TextChars        int `yaml:"text_chars"`
	Themes           int `yaml:"themes"`
	Questions        int `yaml:"questions"`
	DroppedLines     int `yaml:"dropped_lines"`
	Classes          int `yaml:"classes"`
	ObjectProperties int `yaml:"object_properties"`
	DataProperties   int `yaml:"data_properties"`
	Individuals      int `yaml:"individuals"`
	Triples          int `yaml:"triples"`
}

// RunSummary describes one pipeline run. It is written as YAML next to the
// run's artifacts.
type RunSummary struct {
	RunID      string         `yaml:"run_id"`
	Status     Status         `yaml:"status"`
	Source     string         `yaml:"source"`
	Procedure  string         `yaml:"procedure,omitempty"`
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at,omitempty"`
	Models     []string       `yaml:"models,omitempty"`
	Stages     []StageRecord  `yaml:"stages"`
	Artifacts  ArtifactPaths  `yaml:"artifacts"`
	Counts     Counts         `yaml:"counts"`
	Usage      llm.TokenUsage `yaml:"usage"`
	Error      string         `yaml:"error,omitempty"`
}

// transition moves the run to target, refusing moves the status machine
// does not allow.
func (s *RunSummary) transition(target Status) error {
	if !s.Status.CanTransitionTo(target) {
		return fmt.Errorf("invalid run transition %s -> %s", s.Status, target)
	}
	s.Status = target
	return nil
}

func (s *RunSummary) addModel(model string) {
	if model == "" {
		return
	}
	for _, m := range s.Models {
		if m == model {
			return
		}
	}
	s.Models = append(s.Models, model)
}

// Marshal returns the summary as YAML.
func (s *RunSummary) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal run summary: %w", err)
	}
	return data, nil
}

// LoadSummary parses a summary written by a previous run.
func LoadSummary(data []byte) (*RunSummary, error) {
	var s RunSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse run summary: %w", err)
	}
	return &s, nil
}

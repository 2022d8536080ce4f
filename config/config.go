// Package config provides configuration loading and management for ontogenia.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/ontogenia/llm"
	"github.com/c360studio/ontogenia/model"
	"github.com/c360studio/ontogenia/shacl"
)

// MandiantHeader is the running header LlamaParse leaves on every page of the
// APT41 report.
const MandiantHeader = "R E P O R T |  M A N D I A N T APT41, A Dual Espionage and Cyber Crime Operation"

// Parser names.
const (
	ParserLlamaParse = "llamaparse"
	ParserLocal      = "local"
)

// Fence modes for recovering the ontology from the LLM response.
const (
	FenceDetect = "detect"
	FenceFixed  = "fixed"
)

// Config represents the complete ontogenia configuration.
type Config struct {
	Log        LogConfig             `yaml:"log"`
	Model      ModelConfig           `yaml:"model"`
	Models     *model.RegistryConfig `yaml:"models,omitempty"`
	Extract    ExtractConfig         `yaml:"extract"`
	Questions  QuestionsConfig       `yaml:"questions"`
	Synthesis  SynthesisConfig       `yaml:"synthesis"`
	Validation ValidationConfig      `yaml:"validation"`
	Output     OutputConfig          `yaml:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// ModelConfig configures LLM access.
type ModelConfig struct {
	// Pin forces every capability onto one endpoint (e.g. "gemini-flash").
	Pin string `yaml:"pin,omitempty"`
	// Timeout is the maximum time to wait for one model response.
	Timeout time.Duration `yaml:"timeout"`
	// Retry governs transient failures per endpoint.
	Retry llm.RetryConfig `yaml:"retry"`
}

// ExtractConfig configures the content extractor.
type ExtractConfig struct {
	// Parser selects "llamaparse" (remote) or "local".
	Parser string `yaml:"parser"`
	// LlamaParseURL overrides the hosted parsing API.
	LlamaParseURL string `yaml:"llamaparse_url,omitempty"`
	// Language is the parsing language hint.
	Language string `yaml:"language"`
	// ResultType is "text" or "markdown".
	ResultType string `yaml:"result_type"`
	// NumWorkers bounds concurrent uploads in batch extraction.
	NumWorkers int `yaml:"num_workers"`
	// PollInterval is the delay between parsing job status checks.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Timeout bounds one document parse.
	Timeout time.Duration `yaml:"timeout"`
	// DropSegments lists zero-based segment indices to discard.
	DropSegments []int `yaml:"drop_segments"`
	// Noise lists strings removed wherever they occur.
	Noise []string `yaml:"noise"`
	// NoiseReplacement is substituted for each noise occurrence.
	NoiseReplacement string `yaml:"noise_replacement"`
	// RawTextFile persists the cleaned text when non-empty.
	RawTextFile string `yaml:"raw_text_file,omitempty"`
}

// QuestionsConfig configures competency question generation.
type QuestionsConfig struct {
	Temperature float64 `yaml:"temperature"`
	// MarkerLen is the number of leading characters removed from non-title lines.
	MarkerLen int `yaml:"marker_len"`
	// Strict rejects questions that appear before the first title.
	Strict   bool   `yaml:"strict"`
	TextFile string `yaml:"text_file"`
	SetFile  string `yaml:"set_file"`
}

// FenceConfig configures how the ontology is cut out of the response.
type FenceConfig struct {
	Mode      string `yaml:"mode"`
	PrefixLen int    `yaml:"prefix_len"`
	SuffixLen int    `yaml:"suffix_len"`
}

// SynthesisConfig configures ontology synthesis.
type SynthesisConfig struct {
	ProcedureFile string      `yaml:"procedure_file"`
	Temperature   float64     `yaml:"temperature"`
	Fence         FenceConfig `yaml:"fence"`
	// Run numbers the generated file name.
	Run int `yaml:"run"`
	// Trial numbers the generated file name; 0 picks the next unused trial.
	Trial          int    `yaml:"trial"`
	NormalizedFile string `yaml:"normalized_file"`
	// ParseRetries is the number of correction rounds after an unparseable ontology.
	ParseRetries int `yaml:"parse_retries"`
}

// ValidationConfig configures the validation utility.
type ValidationConfig struct {
	GraphFile       string        `yaml:"graph_file"`
	MermaidFile     string        `yaml:"mermaid_file,omitempty"`
	Shapes          []string      `yaml:"shapes,omitempty"`
	Inference       string        `yaml:"inference"`
	FailOnViolation bool          `yaml:"fail_on_violation"`
	Debounce        time.Duration `yaml:"debounce"`
}

// OutputConfig configures where artifacts go.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	SummaryFile string `yaml:"summary_file"`
	// MetricsFile enables a Prometheus textfile export when non-empty.
	MetricsFile string `yaml:"metrics_file,omitempty"`
	// CallHistory enables the SQLite LLM call log when non-empty.
	CallHistory string `yaml:"call_history,omitempty"`
}

// DefaultConfig returns a Config tuned for the Mandiant APT41 report.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Model: ModelConfig{
			Timeout: 5 * time.Minute,
			Retry:   llm.DefaultRetryConfig(),
		},
		Extract: ExtractConfig{
			Parser:           ParserLlamaParse,
			Language:         "en",
			ResultType:       "text",
			NumWorkers:       4,
			PollInterval:     2 * time.Second,
			Timeout:          10 * time.Minute,
			DropSegments:     []int{4},
			Noise:            []string{MandiantHeader},
			NoiseReplacement: " ",
		},
		Questions: QuestionsConfig{
			Temperature: 0.01,
			MarkerLen:   3,
			TextFile:    "cq_text_flash.txt",
			SetFile:     "cq_set.yaml",
		},
		Synthesis: SynthesisConfig{
			ProcedureFile:  "./data/procedure.txt",
			Temperature:    0.01,
			Fence:          FenceConfig{Mode: FenceDetect, PrefixLen: 7, SuffixLen: 3},
			Run:            1,
			Trial:          1,
			NormalizedFile: "owl_files/output.owl",
		},
		Validation: ValidationConfig{
			GraphFile: "owl_files/apt41_ontology.gv",
			Inference: "rdfs",
			Debounce:  500 * time.Millisecond,
		},
		Output: OutputConfig{
			Dir:         ".",
			SummaryFile: "run_summary.yaml",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Model.Retry.MaxAttempts < 1 {
		return fmt.Errorf("model.retry.max_attempts must be at least 1")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}

	switch c.Extract.Parser {
	case ParserLlamaParse, ParserLocal:
	default:
		return fmt.Errorf("extract.parser must be %q or %q, got %q", ParserLlamaParse, ParserLocal, c.Extract.Parser)
	}
	if c.Extract.NumWorkers < 1 {
		return fmt.Errorf("extract.num_workers must be at least 1")
	}
	for _, idx := range c.Extract.DropSegments {
		if idx < 0 {
			return fmt.Errorf("extract.drop_segments must not contain negative indices, got %d", idx)
		}
	}

	if err := checkTemperature("questions.temperature", c.Questions.Temperature); err != nil {
		return err
	}
	if c.Questions.MarkerLen < 0 {
		return fmt.Errorf("questions.marker_len must not be negative")
	}
	if c.Questions.TextFile == "" {
		return fmt.Errorf("questions.text_file is required")
	}

	if err := checkTemperature("synthesis.temperature", c.Synthesis.Temperature); err != nil {
		return err
	}
	switch c.Synthesis.Fence.Mode {
	case FenceDetect, FenceFixed:
	default:
		return fmt.Errorf("synthesis.fence.mode must be %q or %q, got %q", FenceDetect, FenceFixed, c.Synthesis.Fence.Mode)
	}
	if c.Synthesis.Fence.PrefixLen < 0 || c.Synthesis.Fence.SuffixLen < 0 {
		return fmt.Errorf("synthesis.fence lengths must not be negative")
	}
	if c.Synthesis.Run < 1 {
		return fmt.Errorf("synthesis.run must be at least 1")
	}
	if c.Synthesis.Trial < 0 {
		return fmt.Errorf("synthesis.trial must not be negative")
	}
	if c.Synthesis.ParseRetries < 0 {
		return fmt.Errorf("synthesis.parse_retries must not be negative")
	}

	if _, err := shacl.ParseInference(c.Validation.Inference); err != nil {
		return fmt.Errorf("validation.inference: %w", err)
	}
	if c.Models != nil {
		if err := model.FromConfig(c.Models).Validate(); err != nil {
			return fmt.Errorf("models: %w", err)
		}
	}
	return nil
}

func checkTemperature(field string, v float64) error {
	if v < 0 || v > 2 {
		return fmt.Errorf("%s must be between 0 and 2, got %g", field, v)
	}
	return nil
}

// Registry builds the model registry: built-in endpoints overlaid with the
// models section, then pinned when Model.Pin is set.
func (c *Config) Registry() *model.Registry {
	r := model.FromConfig(c.Models)
	if c.Model.Pin != "" {
		r.Pin(c.Model.Pin)
	}
	return r
}

// LoadFromFile loads a configuration file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.overlay(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay decodes the YAML file at path on top of c. Keys absent from the
// file keep their current values; lists present in the file replace the
// current list.
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

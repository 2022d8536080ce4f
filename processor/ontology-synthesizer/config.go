package ontologysynthesizer

import (
	"fmt"
)

// Fence modes.
const (
	// FenceDetect locates a code fence in the response.
	FenceDetect = "detect"
	// FenceFixed slices a fixed number of characters off both ends.
	FenceFixed = "fixed"
)

// Config holds configuration for the ontology synthesizer.
type Config struct {
	// Capability is the model capability used for synthesis.
	Capability string `json:"capability" yaml:"capability"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// ProcedureFile is the ontology design procedure used when Synthesize
	// is called without an explicit path.
	ProcedureFile string `json:"procedure_file" yaml:"procedure_file"`

	// FenceMode is FenceDetect or FenceFixed.
	FenceMode string `json:"fence_mode" yaml:"fence_mode"`

	// PrefixLen and SuffixLen are the fence lengths cut in FenceFixed mode.
	PrefixLen int `json:"prefix_len" yaml:"prefix_len"`
	SuffixLen int `json:"suffix_len" yaml:"suffix_len"`

	// Run numbers the generated file name.
	Run int `json:"run" yaml:"run"`

	// Trial numbers the generated file name. Zero picks the next unused trial.
	Trial int `json:"trial" yaml:"trial"`

	// NormalizedFile receives the re-serialized ontology.
	NormalizedFile string `json:"normalized_file" yaml:"normalized_file"`

	// ParseRetries is the number of correction rounds after an unparseable
	// ontology. Zero fails on the first malformed document.
	ParseRetries int `json:"parse_retries" yaml:"parse_retries"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Capability:     "ontology",
		Temperature:    0.01,
		ProcedureFile:  "./data/procedure.txt",
		FenceMode:      FenceDetect,
		PrefixLen:      7,
		SuffixLen:      3,
		Run:            1,
		Trial:          1,
		NormalizedFile: "owl_files/output.owl",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Capability == "" {
		return fmt.Errorf("capability is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	switch c.FenceMode {
	case FenceDetect, FenceFixed:
	default:
		return fmt.Errorf("fence_mode must be %q or %q, got %q", FenceDetect, FenceFixed, c.FenceMode)
	}
	if c.PrefixLen < 0 || c.SuffixLen < 0 {
		return fmt.Errorf("fence lengths must not be negative")
	}
	if c.Run < 1 {
		return fmt.Errorf("run must be at least 1")
	}
	if c.Trial < 0 {
		return fmt.Errorf("trial must not be negative")
	}
	if c.NormalizedFile == "" {
		return fmt.Errorf("normalized_file is required")
	}
	if c.ParseRetries < 0 {
		return fmt.Errorf("parse_retries must not be negative")
	}
	return nil
}

package questiongenerator

import (
	"fmt"
)

// Config holds configuration for the question generator.
type Config struct {
	// Capability is the model capability used for generation.
	Capability string `json:"capability" yaml:"capability"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MarkerLen is the number of leading characters removed from question lines.
	MarkerLen int `json:"marker_len" yaml:"marker_len"`

	// Strict rejects questions that precede every title.
	Strict bool `json:"strict" yaml:"strict"`

	// TextFile receives the flattened questions. Empty skips the write.
	TextFile string `json:"text_file" yaml:"text_file"`

	// SetFile receives the question set as YAML. Empty skips the write.
	SetFile string `json:"set_file" yaml:"set_file"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Capability:  "questions",
		Temperature: 0.01,
		MarkerLen:   3,
		TextFile:    "cq_text_flash.txt",
		SetFile:     "cq_set.yaml",
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
	if c.MarkerLen < 0 {
		return fmt.Errorf("marker_len must not be negative")
	}
	return nil
}

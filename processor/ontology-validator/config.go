package ontologyvalidator

import (
	"fmt"
	"time"

	"github.com/c360studio/ontogenia/shacl"
)

// Config holds configuration for the validation utility.
type Config struct {
	// GraphFile receives the DOT class graph. Empty skips it.
	GraphFile string `json:"graph_file" yaml:"graph_file"`

	// MermaidFile receives a Mermaid class diagram. Empty skips it.
	MermaidFile string `json:"mermaid_file,omitempty" yaml:"mermaid_file,omitempty"`

	// Shapes are extra SHACL shapes files merged with the ontology's own shapes.
	Shapes []string `json:"shapes,omitempty" yaml:"shapes,omitempty"`

	// Inference is "rdfs" or "none".
	Inference string `json:"inference" yaml:"inference"`

	// FailOnViolation turns a non-conforming report into a ValidationFailure.
	FailOnViolation bool `json:"fail_on_violation" yaml:"fail_on_violation"`

	// Debounce is the quiet period before re-validating in watch mode.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		GraphFile: "owl_files/apt41_ontology.gv",
		Inference: string(shacl.InferenceRDFS),
		Debounce:  500 * time.Millisecond,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := shacl.ParseInference(c.Inference); err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}

// GetDebounce returns the debounce period, defaulting to 500ms.
func (c *Config) GetDebounce() time.Duration {
	if c.Debounce <= 0 {
		return 500 * time.Millisecond
	}
	return c.Debounce
}

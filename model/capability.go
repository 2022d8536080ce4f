// Package model provides capability-based model selection for the pipeline
// stages. Stages ask for a capability (questions, ontology) and the
// registry resolves it to configured endpoints with a fallback chain.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityQuestions drafts competency questions from report text.
	CapabilityQuestions Capability = "questions"

	// CapabilityOntology turns procedure text and competency questions into OWL.
	CapabilityOntology Capability = "ontology"
)

// StageCapabilities maps pipeline stages to their default capability.
var StageCapabilities = map[string]Capability{
	"question-generator":   CapabilityQuestions,
	"ontology-synthesizer": CapabilityOntology,
}

// CapabilityForStage returns the default capability for a stage.
// Unknown stages get CapabilityOntology, the most demanding one.
func CapabilityForStage(stage string) Capability {
	if c, ok := StageCapabilities[stage]; ok {
		return c
	}
	return CapabilityOntology
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityQuestions, CapabilityOntology:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}

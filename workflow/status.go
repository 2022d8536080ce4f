// Package workflow runs the report-to-ontology pipeline: content extraction,
// competency question generation and ontology synthesis, in order, under a
// single run ID, and records a run summary.
package workflow

// Status represents the current state of a pipeline run.
type Status string

const (
	// StatusCreated indicates the run has been created but no stage has run.
	StatusCreated Status = "created"
	// StatusExtracted indicates the report text has been extracted.
	StatusExtracted Status = "extracted"
	// StatusQuestionsGenerated indicates competency questions exist.
	StatusQuestionsGenerated Status = "questions_generated"
	// StatusSynthesized indicates the ontology has been generated and parsed.
	StatusSynthesized Status = "synthesized"
	// StatusComplete indicates the run finished and its summary was written.
	StatusComplete Status = "complete"
	// StatusFailed indicates a stage failed.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a valid run status.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusExtracted, StatusQuestionsGenerated,
		StatusSynthesized, StatusComplete, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the status can transition to the target status.
// Any non-terminal status can fail.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusFailed {
		return s != StatusComplete && s != StatusFailed
	}
	switch s {
	case StatusCreated:
		return target == StatusExtracted
	case StatusExtracted:
		return target == StatusQuestionsGenerated
	case StatusQuestionsGenerated:
		return target == StatusSynthesized
	case StatusSynthesized:
		return target == StatusComplete
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

package ontologyvalidator

import (
	"errors"
	"fmt"
)

// ValidationFailure reports an ontology that does not conform to its
// shapes when failing on violations was requested.
type ValidationFailure struct {
	Path       string
	Results    int
	Violations int
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%s does not conform: %d results, %d violations", e.Path, e.Results, e.Violations)
}

// IsValidationFailure reports whether err is or wraps a *ValidationFailure.
func IsValidationFailure(err error) bool {
	var vf *ValidationFailure
	return errors.As(err, &vf)
}

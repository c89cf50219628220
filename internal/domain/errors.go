package domain

import (
	"fmt"
	"strings"
)

// DataIntegrityError is a fatal cross-dataset violation: the two feeds have
// drifted and any downstream join would silently lose rows. It always carries
// the full offender list, not just the first one found.
type DataIntegrityError struct {
	Dataset   string
	Problem   string
	Offenders []string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: %s: [%s]", e.Dataset, e.Problem, strings.Join(e.Offenders, ", "))
}

// MissingFieldError is a fatal raw-schema violation: an expected source
// column vanished, almost always an upstream schema change.
type MissingFieldError struct {
	Dataset string
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.Dataset, e.Field)
}

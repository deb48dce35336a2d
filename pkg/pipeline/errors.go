package pipeline

import (
	"fmt"
	"strings"

	"github.com/matzehuels/histatlas/pkg/artifact"
	"github.com/matzehuels/histatlas/pkg/compositor"
)

// PartialError reports a run that completed with per-mask or per-write
// failures.
type PartialError struct {
	Failures []compositor.Failure
	Writes   artifact.Summary
}

func (e *PartialError) Error() string {
	var parts []string
	if n := len(e.Failures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d mask(s) failed", n))
	}
	if n := len(e.Writes.Failed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d write(s) failed", n))
	}
	return "atlas incomplete: " + strings.Join(parts, ", ")
}

// Unwrap exposes every underlying failure to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+len(e.Writes.Failed))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	for _, f := range e.Writes.Failed {
		errs = append(errs, f)
	}
	return errs
}

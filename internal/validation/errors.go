package validation

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every soft validation failure found during a
// run, so one invocation reports all problems instead of the first.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n%s",
		len(e.Problems), strings.Join(e.Problems, "\n"))
}

// Report accumulates validation problems. Checks append to it and keep
// going; the caller turns the collected problems into a single error at the
// end.
type Report struct {
	problems []string
}

// Add records a problem.
func (r *Report) Add(format string, args ...interface{}) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

// Problems returns the recorded problems in order.
func (r *Report) Problems() []string {
	return r.problems
}

// AsError returns nil when the report is clean, otherwise a ValidationError
// carrying every problem.
func (r *Report) AsError() error {
	if len(r.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: r.problems}
}

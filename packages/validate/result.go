package validate

import (
	"fmt"
	"strings"
)

// Failure is one assertion mismatch. Every failure carries the concrete
// expected and actual values so a run can be diagnosed without re-running.
type Failure struct {
	Check    string
	Expected any
	Actual   any
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: expected %v, got %v", f.Check, f.Expected, f.Actual)
}

// Result collects every failed check for one case. Validation does not stop
// at the first failure.
type Result struct {
	Story    string
	Failures []Failure
}

// Passed reports whether every check held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

func (r *Result) fail(check string, expected, actual any) {
	r.Failures = append(r.Failures, Failure{Check: check, Expected: expected, Actual: actual})
}

func (r *Result) String() string {
	if r.Passed() {
		return fmt.Sprintf("%s: passed", r.Story)
	}
	msgs := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		msgs[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", r.Story, strings.Join(msgs, "; "))
}

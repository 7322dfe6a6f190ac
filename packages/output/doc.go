// Package output provides formatters for displaying run results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//
// Each formatter implements the Formatter interface and can optionally
// implement Flushable for formats that accumulate results before output.
package output

import (
	"time"

	"github.com/amblessed/employees-harness/packages/harness"
)

// Formatter renders run results.
type Formatter interface {
	FormatHeader(version string)
	FormatResult(result *harness.RunResult)
	FormatError(err error)
}

// Flushable is implemented by formatters that buffer everything and emit a
// single document at the end of the run.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

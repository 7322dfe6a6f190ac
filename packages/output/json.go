package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/amblessed/employees-harness/packages/harness"
)

// JSONOutput is the machine-readable run report.
type JSONOutput struct {
	Session  string      `json:"session"`
	Summary  JSONSummary `json:"summary"`
	Cases    []JSONCase  `json:"cases"`
	Latency  JSONLatency `json:"latency"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary is the pass/fail tally.
type JSONSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// JSONCase is one executed case.
type JSONCase struct {
	Story      string        `json:"story"`
	Collection string        `json:"collection"`
	Method     string        `json:"method"`
	Endpoint   string        `json:"endpoint"`
	Actor      string        `json:"actor,omitempty"`
	Passed     bool          `json:"passed"`
	Status     int           `json:"status,omitempty"`
	Duration   float64       `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Failures   []JSONFailure `json:"failures,omitempty"`
}

// JSONFailure is one failed check with its concrete values.
type JSONFailure struct {
	Check    string `json:"check"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
}

// JSONLatency is the run's latency distribution in milliseconds.
type JSONLatency struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

// JSONFormatter accumulates run results and writes one JSON document on
// Flush.
type JSONFormatter struct {
	writer  io.Writer
	session string
	cases   []JSONCase
	latency JSONLatency
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		cases:  make([]JSONCase, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *harness.RunResult) {
	f.session = result.SessionID
	f.latency = JSONLatency{
		P50: float64(result.Latency.P50.Milliseconds()),
		P95: float64(result.Latency.P95.Milliseconds()),
		P99: float64(result.Latency.P99.Milliseconds()),
		Max: float64(result.Latency.Max.Milliseconds()),
	}

	for i := range result.Cases {
		r := &result.Cases[i]
		c := JSONCase{
			Story:      r.Case.Story,
			Collection: result.Collection,
			Method:     string(r.Case.Method),
			Endpoint:   r.Case.Endpoint,
			Actor:      r.Actor.UserID,
			Passed:     r.Passed(),
			Duration:   float64(r.Duration.Milliseconds()),
		}
		if r.Err != nil {
			c.Error = r.Err.Error()
		}
		if r.Response != nil {
			c.Status = r.Response.StatusCode
		}
		if r.Result != nil {
			for _, failure := range r.Result.Failures {
				c.Failures = append(c.Failures, JSONFailure{
					Check:    failure.Check,
					Expected: failure.Expected,
					Actual:   failure.Actual,
				})
			}
		}
		f.cases = append(f.cases, c)
	}
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual case results.
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output.
}

// Flush writes the accumulated JSON output.
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var passed int
	for _, c := range f.cases {
		if c.Passed {
			passed++
		}
	}

	output := JSONOutput{
		Session: f.session,
		Summary: JSONSummary{
			Total:  len(f.cases),
			Passed: passed,
			Failed: len(f.cases) - passed,
		},
		Cases:    f.cases,
		Latency:  f.latency,
		Duration: float64(totalDuration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/amblessed/employees-harness/packages/harness"
)

// formatValue formats an expected/actual value for display, truncating long
// strings so one bad body cannot flood the report.
func formatValue(v any, maxLen int) string {
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// FormatResult renders one collection's run: a line per case, failed checks
// with their expected and actual values, then the totals and the latency
// distribution.
func (f *ConsoleFormatter) FormatResult(result *harness.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Running: "+result.Collection))

	for i := range result.Cases {
		r := &result.Cases[i]

		if r.Err != nil {
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), r.Case.Story, red(fmt.Sprintf("(%v)", r.Err)))
			continue
		}

		symbol := green("✓")
		if !r.Passed() {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Case.Story,
			cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

		if f.verbose && r.Response != nil {
			fmt.Fprintf(f.writer, "    %s %s -> %d as %s\n",
				r.Case.Method, r.Case.Endpoint, r.Response.StatusCode, r.Actor.UserID)
		}

		if r.Result != nil {
			for _, failure := range r.Result.Failures {
				fmt.Fprintf(f.writer, "    %s %s\n", red("→"), failure.Check)
				fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(failure.Expected, 100))
				fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(failure.Actual, 100))
			}
		}
	}

	passed := result.PassCount()
	failed := len(result.Cases) - passed

	fmt.Fprintf(f.writer, "\nTests: ")
	if passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(result.Cases))
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Elapsed.Milliseconds())

	if result.Latency.Count > 0 {
		fmt.Fprintf(f.writer, "Latency: p50=%dms p95=%dms p99=%dms max=%dms\n",
			result.Latency.P50.Milliseconds(),
			result.Latency.P95.Milliseconds(),
			result.Latency.P99.Milliseconds(),
			result.Latency.Max.Milliseconds())
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("employees-harness"), version)
}

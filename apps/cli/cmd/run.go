package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amblessed/employees-harness/packages/config"
	"github.com/amblessed/employees-harness/packages/harness"
	"github.com/amblessed/employees-harness/packages/httpexec"
	"github.com/amblessed/employees-harness/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run <cases.json> [more-cases.json...]",
	Short: "Run case collections against the employees API",
	Long: `Run the named case collection files. Files are located under the
resource directory, searched recursively.

Examples:
  employees-harness run get_testcases.json
  employees-harness run get_testcases.json delete_testcases.json --wait
  employees-harness run security_testcases.json --output junit --output-file results.xml
  employees-harness run get_testcases.json --seed 42 --verbose`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

var (
	configFlag      string
	baseURLFlag     string
	healthURLFlag   string
	databaseURLFlag string
	resourceDirFlag string
	seedFlag        int64
	rateFlag        float64
	timeoutFlag     string
	waitFlag        bool
	waitTimeoutFlag string
	verboseFlag     bool
	noColorFlag     bool
	outputFlag      string
	outputFileFlag  string
	bailFlag        bool
)

func init() {
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("HARNESS_CONFIG", ""), "Path to config file (env: HARNESS_CONFIG)")
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", getEnvString("HARNESS_BASE_URL", ""), "Base URL of the employees API (env: HARNESS_BASE_URL)")
	runCmd.Flags().StringVar(&healthURLFlag, "health-url", getEnvString("HARNESS_HEALTH_URL", ""), "Health endpoint polled by --wait (env: HARNESS_HEALTH_URL)")
	runCmd.Flags().StringVar(&databaseURLFlag, "database-url", getEnvString("HARNESS_DATABASE_URL", ""), "Backing store connection string (env: HARNESS_DATABASE_URL)")
	runCmd.Flags().StringVar(&resourceDirFlag, "resource-dir", getEnvString("HARNESS_RESOURCE_DIR", ""), "Directory holding case files and the identity directory (env: HARNESS_RESOURCE_DIR)")
	runCmd.Flags().Int64Var(&seedFlag, "seed", getEnvInt64("HARNESS_SEED", 0), "Randomness seed for reproducible runs, 0 means clock-seeded (env: HARNESS_SEED)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", 0, "Cap on requests per second, 0 means unlimited")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", "", "Per-request timeout (e.g. 20s)")
	runCmd.Flags().BoolVarP(&waitFlag, "wait", "w", false, "Wait for the service health endpoint and the seeded identity file before running")
	runCmd.Flags().StringVar(&waitTimeoutFlag, "wait-timeout", "60s", "How long --wait polls before giving up")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HARNESS_NO_COLOR", false), "Disable colored output (env: HARNESS_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HARNESS_OUTPUT", "console"), "Output format: console, json, junit (env: HARNESS_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	runCmd.Flags().BoolVar(&bailFlag, "bail", false, "Stop after the first failing collection")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func loadRunConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}
	if healthURLFlag != "" {
		cfg.HealthURL = healthURLFlag
	}
	if databaseURLFlag != "" {
		cfg.DatabaseURL = databaseURLFlag
	}
	if resourceDirFlag != "" {
		cfg.ResourceDir = resourceDirFlag
	}
	if seedFlag != 0 {
		cfg.Seed = seedFlag
	}
	if rateFlag > 0 {
		cfg.RateLimit = rateFlag
	}
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", timeoutFlag, err)
		}
		cfg.Timeout = int(d.Milliseconds())
	}
	if verboseFlag {
		cfg.Verbose = true
	}
	if noColorFlag {
		cfg.NoColor = true
	}
	return cfg, nil
}

func newFormatter(cfg *config.Config, w io.Writer) (output.Formatter, error) {
	switch outputFlag {
	case "console":
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(cfg.Verbose),
			output.WithNoColor(cfg.NoColor),
		), nil
	case "json":
		return output.NewJSONFormatter(output.JSONWithWriter(w)), nil
	case "junit":
		return output.NewJUnitFormatter(output.JUnitWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", outputFlag)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadRunConfig()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	if waitFlag {
		if err := waitForService(ctx, cfg); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(ExitNetworkError)
		}
	}

	session, err := harness.NewSession(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}
	defer session.Close()

	w := cmd.OutOrStdout()
	var outFile *os.File
	if outputFileFlag != "" {
		outFile, err = os.Create(outputFileFlag)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(ExitConfigError)
		}
		defer outFile.Close()
		w = outFile
	}
	formatter, err := newFormatter(cfg, w)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(ExitUsageError)
	}

	if outputFlag == "console" {
		formatter.FormatHeader(version)
	}

	runner := harness.NewRunner(session)
	start := time.Now()
	anyFailed := false
	transportOnly := true

	for _, name := range args {
		result, err := runner.RunCollection(ctx, name)
		if err != nil {
			formatter.FormatError(err)
			os.Exit(ExitConfigError)
		}
		formatter.FormatResult(result)

		if result.Failed() {
			anyFailed = true
			for i := range result.Cases {
				var te *httpexec.TransportError
				if !result.Cases[i].Passed() && !errors.As(result.Cases[i].Err, &te) {
					transportOnly = false
				}
			}
			if bailFlag {
				break
			}
		}
	}

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(time.Since(start)); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}

	if anyFailed {
		if transportOnly {
			os.Exit(ExitNetworkError)
		}
		os.Exit(ExitCaseFailure)
	}
	return nil
}

// waitForService blocks until the system under test answers its health
// endpoint and, when a resource directory is known, until the seeded
// identity file exists.
func waitForService(ctx context.Context, cfg *config.Config) error {
	timeout, err := time.ParseDuration(waitTimeoutFlag)
	if err != nil {
		return fmt.Errorf("invalid --wait-timeout %q: %w", waitTimeoutFlag, err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := harness.WaitForHealth(ctx, cfg.HealthURL); err != nil {
		return err
	}
	if cfg.ResourceDir != "" {
		seedPath := filepath.Join(cfg.ResourceDir, harness.IdentityFileName)
		// Any existing identity file counts; freshness only matters when the
		// harness itself observed the boot, which it does not here.
		return harness.WaitForSeedFile(ctx, seedPath, time.Time{})
	}
	return nil
}

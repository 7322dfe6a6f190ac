package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/amblessed/employees-harness/packages/harness"
	"github.com/amblessed/employees-harness/packages/mock"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve a local stand-in for the employees API",
	Long: `Start a local employees API with generated data, so case
collections can be exercised without the real deployment.

Examples:
  employees-harness mock --port 9090 --count 100
  employees-harness mock --seed 42 --resource-dir src/test/resources`,
	RunE: mockCommand,
}

var (
	mockPortFlag  int
	mockCountFlag int
	mockSeedFlag  int64
)

func init() {
	rootCmd.AddCommand(mockCmd)
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", 9090, "Port to listen on")
	mockCmd.Flags().IntVar(&mockCountFlag, "count", 100, "Number of generated employees")
	mockCmd.Flags().Int64Var(&mockSeedFlag, "seed", time.Now().UnixNano(), "Randomness seed for the generated dataset")
	mockCmd.Flags().StringVar(&resourceDirFlag, "resource-dir", getEnvString("HARNESS_RESOURCE_DIR", ""), "Write the identity directory file here (env: HARNESS_RESOURCE_DIR)")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	server := mock.NewServer()
	server.Seed(mockCountFlag, mockSeedFlag)

	if resourceDirFlag != "" {
		path := filepath.Join(resourceDirFlag, harness.IdentityFileName)
		if err := server.WriteUserDetails(path); err != nil {
			return fmt.Errorf("writing identity directory: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	}

	addr := fmt.Sprintf(":%d", mockPortFlag)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d employees on http://localhost%s/api/employees\n",
		mockCountFlag, addr)
	return http.ListenAndServe(addr, server.Handler())
}

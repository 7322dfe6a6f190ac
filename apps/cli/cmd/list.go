package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amblessed/employees-harness/packages/cases"
)

var listCmd = &cobra.Command{
	Use:   "list <cases.json> [more-cases.json...]",
	Short: "List the cases in collection files",
	Long: `List every case defined in the named collection files without
running anything.

Examples:
  employees-harness list get_testcases.json
  employees-harness list get_testcases.json delete_testcases.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&resourceDirFlag, "resource-dir", getEnvString("HARNESS_RESOURCE_DIR", ""), "Directory holding case files (env: HARNESS_RESOURCE_DIR)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var opts []cases.StoreOption
	if resourceDirFlag != "" {
		opts = append(opts, cases.WithResourceDir(resourceDirFlag))
	}
	store, err := cases.NewStore(opts...)
	if err != nil {
		return err
	}

	for _, name := range args {
		col, err := store.Load(name)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error loading %s: %v\n", name, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%d cases):\n", name, col.Len())
		for _, c := range col.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "  - [%s %s] %s\n", c.Method, c.Endpoint, c.Story)
			if c.UserRole != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    role: %s", c.UserRole)
				if c.AccessTarget != cases.AccessNone {
					fmt.Fprintf(cmd.OutOrStdout(), ", target: %s", c.AccessTarget)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n")
			}
		}
	}

	return nil
}

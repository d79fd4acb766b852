package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/taxa/cmd/taxa/commands"
	"github.com/teranos/taxa/logger"
)

var rootCmd = &cobra.Command{
	Use:   "taxa",
	Short: "taxa - taxonomy graph query service",
	Long: `taxa - taxonomy graph query service.

Serves lineage, children, sibling and name-search queries over one or more
taxonomy namespaces, and resolves taxa to the workspace objects they are
associated with at a point in time.

Available commands:
  server  - Start the JSON-RPC gateway
  query   - Run a single operation without starting the gateway
  db      - Migrate, import and inspect the taxonomy store
  am      - Show and initialize configuration
  version - Show build information

Examples:
  taxa db import taxa.yaml
  taxa server -v
  taxa query get_lineage --params '{"id":"562","ns":"ncbi_taxonomy"}'`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON to stdout")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

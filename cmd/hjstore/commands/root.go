package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hjstore",
		Short: "hjstore - key-value access to the rental record store",
		Long: `hjstore reads and writes the rental app's records through the same
key-value interface the app uses.

Collection keys (hj_listings, hj_tenants, hj_orders, hj_contracts) hold arrays
of records and are replaced whole on every write. Settings keys (hj_announce,
hj_contract_template, hj_signature_text) hold single values. Any other key is
treated as a table name.

Records live in a local SQLite database or a PostgREST backend such as
Supabase, selected by the config file or HJSTORE_BACKEND.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default ./"+defaultConfigFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newGetCommand())
	rootCmd.AddCommand(newSetCommand())
	rootCmd.AddCommand(newDelCommand())
	rootCmd.AddCommand(newKeysCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportCommand())

	return rootCmd
}

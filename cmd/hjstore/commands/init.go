package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hjrent/hjstore/pkg/config"
	"github.com/hjrent/hjstore/pkg/stores"
)

func newInitCommand() *cobra.Command {
	var (
		dataDir string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a local record store",
		Long: `Initialize a local hjstore workspace: a data directory, a migrated SQLite
database and a default config file.

An existing config file is left untouched unless --force is given.`,
		Example: `  # Initialize in the current directory
  hjstore init

  # Keep data somewhere else
  hjstore init --data-dir /var/lib/hjstore --config /etc/hjstore/hjstore.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			path := configPath
			if path == "" {
				path = defaultConfigFile
			}

			log.Info().
				Str("data_dir", dataDir).
				Str("config", path).
				Msg("Initializing workspace")

			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dataDir, err)
			}
			fmt.Fprintf(out, "✓ Created directory: %s\n", dataDir)

			cfg := config.Default()
			cfg.SQLite.Path = filepath.Join(dataDir, "hjstore.db")

			store, err := stores.NewSQLiteStore(cfg.SQLiteStoreConfig())
			if err != nil {
				return fmt.Errorf("failed to create store: %w", err)
			}
			defer store.Close()

			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintf(out, "✓ Initialized SQLite database: %s\n", cfg.SQLite.Path)

			if _, err := os.Stat(path); err == nil && !force {
				fmt.Fprintf(out, "✓ Config file already exists: %s\n", path)
				return nil
			}
			if err := cfg.Write(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Created config file: %s\n", path)

			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory for the SQLite database")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

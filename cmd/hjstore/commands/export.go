package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hjrent/hjstore/pkg/recordstore"
	"github.com/hjrent/hjstore/pkg/snapshot"
)

func newExportCommand() *cobra.Command {
	var (
		outFile string
		keys    []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored keys to a JSON snapshot",
		Long: `Capture keys into a JSON snapshot. Without --key every known key is
exported. Keys with nothing stored are left out.

Keys that fail to read are reported after the snapshot is written.`,
		Example: `  # Print every known key
  hjstore export

  # Save two collections to a file
  hjstore export --key hj_tenants --key hj_contracts --out backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(keys) == 0 {
				keys = recordstore.KnownKeys()
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			snap, captureErr := snapshot.Capture(ctx, s.store, keys)

			if outFile == "" || outFile == "-" {
				if err := printJSON(cmd, snap); err != nil {
					return err
				}
			} else {
				if err := snapshot.WriteFile(outFile, snap); err != nil {
					return err
				}
				log.Info().
					Str("out", outFile).
					Int("keys", len(snap)).
					Msg("Snapshot exported")
			}

			return captureErr
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "snapshot file (default stdout)")
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "key to export (repeatable)")

	return cmd
}

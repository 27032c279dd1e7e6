package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hjrent/hjstore/pkg/snapshot"
)

func newImportCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON snapshot",
		Long: `Write every key of a JSON snapshot to the store. Collections are replaced
whole. A failed key does not stop the others; all failures are reported.

With --watch the command keeps running and re-imports the file each time it
changes, until interrupted.`,
		Example: `  hjstore import backup.json
  hjstore import seed.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			snap, err := snapshot.ReadFile(path)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			if err := snapshot.Apply(ctx, s.store, snap); err != nil {
				return err
			}
			log.Info().
				Str("file", path).
				Int("keys", len(snap)).
				Msg("Snapshot imported")

			if !watch {
				return nil
			}

			w := snapshot.NewWatcher(path, func(ctx context.Context, snap snapshot.Snapshot) error {
				return snapshot.Apply(ctx, s.store, snap)
			}, s.tel.Logger)
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Close()

			log.Info().Str("file", path).Msg("Watching for changes, press Ctrl+C to stop")
			<-w.Done()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-import the file whenever it changes")

	return cmd
}

package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "del KEY",
		Short: "Delete the value stored under a key",
		Long: `Delete KEY. For a collection every record is removed; for a setting the
single row is removed. Backend failures are logged and do not fail the
command.`,
		Example: `  hjstore del hj_orders`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			s.store.Del(ctx, args[0])

			log.Info().Str("key", args[0]).Msg("Delete requested")
			return nil
		},
	}

	return cmd
}

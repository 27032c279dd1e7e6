package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hjrent/hjstore/pkg/recordstore"
)

func newGetCommand() *cobra.Command {
	var (
		defaultJSON string
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under a key",
		Long: `Print the value stored under KEY as JSON.

When nothing is stored, or the backend cannot be read, the --default value is
printed instead. With --strict a backend failure is reported as an error.`,
		Example: `  hjstore get hj_listings
  hjstore get hj_announce --default '""'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			var def any
			if defaultJSON != "" {
				v, err := recordstore.DecodeValue([]byte(defaultJSON))
				if err != nil {
					return fmt.Errorf("invalid --default: %w", err)
				}
				def = v
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			res := s.store.Lookup(ctx, key)
			if strict && res.Status == recordstore.StatusFailed {
				return res.Err
			}

			return printJSON(cmd, res.ValueOr(def))
		},
	}

	cmd.Flags().StringVar(&defaultJSON, "default", "", "JSON value printed when the key is empty")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of printing the default on backend errors")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	return nil
}

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hjrent/hjstore/pkg/recordstore"
)

func newSetCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set KEY [JSON]",
		Short: "Store a value under a key",
		Long: `Store a JSON value under KEY.

For collection keys the value must be an array of records and replaces the
whole collection. The value is read from the argument, from --file, or from
standard input when --file is "-".`,
		Example: `  hjstore set hj_announce '"Water off on Friday"'
  hjstore set hj_orders --file orders.json
  cat tenants.json | hjstore set hj_tenants --file -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			data, err := readValueArg(cmd, args, file)
			if err != nil {
				return err
			}
			value, err := recordstore.DecodeValue(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			if err := s.store.Set(ctx, key, value); err != nil {
				return err
			}

			log.Info().Str("key", key).Msg("Value stored")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", `read the value from a file ("-" for stdin)`)

	return cmd
}

func readValueArg(cmd *cobra.Command, args []string, file string) ([]byte, error) {
	switch {
	case len(args) == 2 && file != "":
		return nil, fmt.Errorf("give the value either as an argument or with --file, not both")
	case len(args) == 2:
		return []byte(args[1]), nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read value file: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("missing value: pass JSON as an argument or use --file")
	}
}

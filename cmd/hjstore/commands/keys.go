package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hjrent/hjstore/pkg/recordstore"
)

func newKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the known keys and their tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tTABLE\tKIND")
			for _, key := range recordstore.KnownKeys() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", key, recordstore.ResolveTable(key), recordstore.KindOf(key))
			}
			return w.Flush()
		},
	}

	return cmd
}

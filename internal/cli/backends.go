package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBackendsCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List available backends in auto-detection order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tAUTO-DETECT")
			for _, name := range e.registry.Names() {
				f, _ := e.registry.Lookup(name)
				state := "-"
				if f.Detect != nil {
					state = "no"
					if f.Detect() {
						state = "yes"
					}
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, state)
			}
			return tw.Flush()
		},
	}
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"yogrt/pkg/yogrt"
)

type remainingReport struct {
	Result  yogrt.Result `json:"result"`
	Backend string       `json:"backend,omitempty"`
	Rank    int          `json:"rank"`
}

func newRemainingCmd(rf *rootFlags, e env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "remaining [--json]",
		Short: "Print the seconds left in the allocation.",
		Long: `Print the seconds left in the allocation.

Without a backend, or when the time is unknown, the maximum 32-bit integer is
printed. Tasks other than rank 0 print -1.`,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(rf)
			if err != nil {
				return err
			}
			svc, log := newLogger(cfg, e)
			if svc != nil {
				defer svc.Close()
			}
			c := newClient(cfg, e, log, nil)
			defer c.Close()

			res := c.Remaining(cmd.Context())
			out := cmd.OutOrStdout()
			if !asJSON {
				_, err = fmt.Fprintln(out, res.Int())
				return err
			}
			enc := json.NewEncoder(out)
			return enc.Encode(remainingReport{Result: res, Backend: c.Backend(), Rank: c.Rank()})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON report including the result kind")
	return cmd
}

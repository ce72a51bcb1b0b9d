package cli

import (
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

type policyView struct {
	Backend       string `yaml:"backend"`
	Loaded        bool   `yaml:"loaded"`
	Rank          int    `yaml:"rank"`
	IntervalFar   int    `yaml:"interval_far"`
	IntervalNear  int    `yaml:"interval_near"`
	NearThreshold int    `yaml:"near_threshold"`
	FailedBackoff int    `yaml:"failed_backoff"`
	DefaultLimit  *int   `yaml:"default_limit,omitempty"`
}

func newPolicyCmd(rf *rootFlags, e env) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Show the effective polling policy and bound backend.",
		Args:  cobra.NoArgs,
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

			p := c.Policy()
			v := policyView{
				Backend:       c.Backend(),
				Loaded:        c.Backend() != "",
				Rank:          c.Rank(),
				IntervalFar:   p.IntervalFar,
				IntervalNear:  p.IntervalNear,
				NearThreshold: p.NearThreshold,
				FailedBackoff: c.FailedBackoff(),
				DefaultLimit:  cfg.DefaultLimit,
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(v); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// Package cli implements the yogrt command.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"yogrt/internal/config"
	"yogrt/pkg/backend"
	logx "yogrt/pkg/logx"
)

type rootFlags struct {
	config    string
	verbosity int
	backend   string
}

// env lets tests swap the process environment dependent pieces.
type env struct {
	registry *backend.Registry
	stderr   io.Writer
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(env{registry: backend.DefaultRegistry})
}

func newRootCmd(e env) *cobra.Command {
	rf := new(rootFlags)
	root := &cobra.Command{
		Use:           "yogrt",
		Short:         "Report the time left in the current job allocation.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	fs := root.PersistentFlags()
	fs.StringVarP(&rf.config, "config", "c", "", "config file (default: $YOGRT_CONFIG, else environment only)")
	fs.CountVarP(&rf.verbosity, "verbose", "v", "increase verbosity (repeatable)")
	fs.StringVarP(&rf.backend, "backend", "b", "", "backend name, overrides config (\"auto\" to detect)")

	root.AddCommand(
		newRemainingCmd(rf, e),
		newPolicyCmd(rf, e),
		newBackendsCmd(e),
		newWatchCmd(rf, e),
	)
	return root
}

// loadConfig resolves the configuration for one invocation. A non-empty path
// returns the manager so callers can watch it.
func loadConfig(rf *rootFlags) (*config.Config, *config.ConfigManager, error) {
	path := strings.TrimSpace(rf.config)
	if path == "" {
		path = config.ConfigPathFromEnv()
	}

	var (
		cfg *config.Config
		mgr *config.ConfigManager
		err error
	)
	if path != "" {
		mgr = config.NewConfigManager(path)
		cfg, err = mgr.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg, err = config.FromEnvironment(logx.Nop())
		if err != nil {
			return nil, nil, err
		}
	}
	applyFlags(cfg, rf)
	return cfg, mgr, nil
}

func applyFlags(cfg *config.Config, rf *rootFlags) {
	if rf.verbosity > cfg.Debug {
		cfg.Debug = rf.verbosity
	}
	if b := strings.TrimSpace(rf.backend); b != "" {
		if !strings.EqualFold(b, cfg.Backend.Name) {
			cfg.Backend.Config = nil
		}
		cfg.Backend.Name = b
	}
}

// newLogger builds the logging service for cfg. Library-level messages go to
// stderr so command output stays parseable.
func newLogger(cfg *config.Config, e env) (*logx.Service, logx.Logger) {
	if e.stderr != nil {
		return nil, logx.NewConsoleTo(e.stderr, cfg.LogConfig().Level)
	}
	return logx.New(cfg.LogConfig())
}

package yogrt

import (
	"github.com/prometheus/client_golang/prometheus"

	"yogrt/internal/config"
	"yogrt/pkg/backend"
	"yogrt/pkg/clock"
	logx "yogrt/pkg/logx"
)

// Config is the configuration a Client reads at initialization.
type Config = config.Config

// DefaultConfig returns the built-in configuration (no backend selected).
func DefaultConfig() *Config { return config.Defaults() }

// OptionsFunc is a functional option for New.
type OptionsFunc func(*Options)

// Options configure a Client.
type Options struct {
	Clock clock.Clock
	// Logger defaults to a stderr console logger at the configured verbosity.
	Logger   logx.Logger
	Registry *backend.Registry
	// ConfigLoader is called once, during lazy initialization.
	ConfigLoader func() (*config.Config, error)
	// Metrics, when set, receives the client's collectors.
	Metrics prometheus.Registerer
	// FailedBackoff overrides the configured failed-query retry window (seconds).
	FailedBackoff *int
}

func defaultPreset() []OptionsFunc {
	return []OptionsFunc{
		WithClock(clock.Real{}),
		WithRegistry(backend.DefaultRegistry),
		WithConfigLoader(func() (*config.Config, error) {
			return config.FromEnvironment(logx.Nop())
		}),
	}
}

// WithClock sets the clock used for every refresh decision.
// default: clock.Real
func WithClock(c clock.Clock) OptionsFunc {
	return func(o *Options) { o.Clock = c }
}

func WithLogger(l logx.Logger) OptionsFunc {
	return func(o *Options) { o.Logger = l }
}

// WithRegistry sets where the backend is looked up.
// default: backend.DefaultRegistry
func WithRegistry(r *backend.Registry) OptionsFunc {
	return func(o *Options) { o.Registry = r }
}

// WithConfig uses cfg instead of reading the environment.
func WithConfig(cfg *config.Config) OptionsFunc {
	return WithConfigLoader(func() (*config.Config, error) {
		cp := *cfg
		return &cp, nil
	})
}

// WithConfigLoader sets how the configuration is obtained at initialization.
// default: config.FromEnvironment
func WithConfigLoader(fn func() (*config.Config, error)) OptionsFunc {
	return func(o *Options) { o.ConfigLoader = fn }
}

func WithMetrics(reg prometheus.Registerer) OptionsFunc {
	return func(o *Options) { o.Metrics = reg }
}

// WithFailedBackoff sets how soon a failed backend is retried. Negative clamps to 0.
// default: the configured failed_backoff (300s)
func WithFailedBackoff(seconds int) OptionsFunc {
	return func(o *Options) {
		s := clampSeconds(seconds)
		o.FailedBackoff = &s
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"yogrt/internal/config"
	"yogrt/internal/runtime/supervisor"
	"yogrt/internal/schedule"
	"yogrt/pkg/backend"
	logx "yogrt/pkg/logx"
	"yogrt/pkg/yogrt"
)

type watchFlags struct {
	schedule    string
	metricsAddr string
	warnBelow   time.Duration
	noReload    bool
	pprof       bool
}

func newWatchCmd(rf *rootFlags, e env) *cobra.Command {
	wf := new(watchFlags)
	cmd := &cobra.Command{
		Use:   "watch [--schedule SPEC] [--metrics-addr ADDR]",
		Short: "Log the remaining time periodically and optionally export metrics.",
		Long: `Log the remaining time on a schedule until interrupted.

The schedule is a cron expression ("*/5 * * * *", "@hourly"), or an interval
("30s", "00:05", "@every 1m"). Backend queries still follow the polling
policy; the schedule only controls how often the estimate is reported.

With a config file, policy and logging changes are applied without restart.`,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runWatch(ctx, rf, wf, e)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&wf.schedule, "schedule", "s", "@every 1m", "report schedule (cron or interval)")
	fs.StringVar(&wf.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	fs.DurationVar(&wf.warnBelow, "warn-below", 0, "log a warning once the remaining time drops to this")
	fs.BoolVar(&wf.noReload, "no-reload", false, "do not watch the config file for changes")
	fs.BoolVar(&wf.pprof, "pprof", false, "also serve /debug/pprof on the metrics address")
	return cmd
}

func runWatch(ctx context.Context, rf *rootFlags, wf *watchFlags, e env) error {
	spec, err := schedule.Parse(wf.schedule)
	if err != nil {
		return err
	}

	cfg, mgr, err := loadConfig(rf)
	if err != nil {
		return err
	}
	watchLogLevel(cfg)
	svc, log := newLogger(cfg, e)
	if svc != nil {
		defer svc.Close()
	}

	runner := schedule.NewRunner(spec, hostTag(), time.Local, log.With(logx.String("comp", "schedule")))
	if err := runner.Validate(); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", wf.schedule, err)
	}

	var reg *prometheus.Registry
	if strings.TrimSpace(wf.metricsAddr) != "" {
		reg = newMetricsReg()
	}
	c := newClient(cfg, e, log, reg)
	defer c.Close()

	sup := supervisor.New(ctx,
		supervisor.WithLogger(log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	if reg != nil {
		ln, err := net.Listen("tcp", wf.metricsAddr)
		if err != nil {
			sup.Cancel()
			return fmt.Errorf("metrics server: %w", err)
		}
		srv := &http.Server{Handler: metricsMux(reg, wf.pprof), ReadHeaderTimeout: 5 * time.Second}
		sup.Go("metrics-server", func(context.Context) error {
			log.Info("starting metrics server", logx.String("addr", ln.Addr().String()), logx.Bool("pprof", wf.pprof))
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		sup.Go0("metrics-shutdown", func(ctx context.Context) {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	if mgr != nil && !wf.noReload {
		mgr.SetLogger(log.With(logx.String("comp", "config")))
		mgr.SetValidator(func(_ context.Context, next *config.Config) error {
			return validateBackend(e.registry, next.Backend.Name)
		})
		updates := mgr.Subscribe(1)
		sup.Go("config-watch", mgr.Watch)
		sup.Go0("config-apply", func(ctx context.Context) {
			defer mgr.Unsubscribe(updates)
			applyUpdates(ctx, updates, cfg, rf, c, svc, log)
		})
	}

	w := &reporter{client: c, log: log, warnBelow: int(wf.warnBelow / time.Second)}
	log.Info("watching remaining time",
		logx.String("schedule", spec.String()),
		logx.String("backend", c.Backend()),
		logx.Int("rank", c.Rank()),
	)
	sup.Go("report", func(ctx context.Context) error {
		w.report(ctx)
		return runner.Run(ctx, w.report)
	})

	<-sup.Context().Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return sup.Stop(stopCtx)
}

// applyUpdates pushes reloaded configuration into the running client. The
// backend stays bound for the life of the process.
func applyUpdates(ctx context.Context, updates <-chan *config.Config, cur *config.Config, rf *rootFlags, c *yogrt.Client, svc *logx.Service, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-updates:
			if !ok {
				return
			}
			cp := *next
			applyFlags(&cp, rf)
			watchLogLevel(&cp)
			sections, fields := config.SummarizeConfigChange(cur, &cp)
			if len(sections) == 0 {
				continue
			}
			c.SetPolicy(yogrt.Policy{
				IntervalFar:   cp.IntervalFar,
				IntervalNear:  cp.IntervalNear,
				NearThreshold: cp.NearThreshold,
			})
			c.SetFailedBackoff(cp.FailedBackoff)
			if svc != nil {
				svc.Apply(cp.LogConfig())
			}
			for _, s := range sections {
				if s == "backend" || s == "default_limit" {
					log.Warn("change takes effect after restart", logx.String("section", s))
				}
			}
			log.Info("config applied", append(fields, logx.Any("sections", sections))...)
			cur = &cp
		}
	}
}

// watchLogLevel raises the default level to info so periodic reports are
// visible. An explicit logging.level or debug verbosity is left alone.
func watchLogLevel(cfg *config.Config) {
	if strings.TrimSpace(cfg.Logging.Level) == "" && cfg.Debug == 0 {
		cfg.Logging.Level = "info"
	}
}

func validateBackend(reg *backend.Registry, name string) error {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "auto" {
		return nil
	}
	if _, ok := reg.Lookup(n); !ok {
		return fmt.Errorf("unknown backend %q", name)
	}
	return nil
}

type reporter struct {
	client    *yogrt.Client
	log       logx.Logger
	warnBelow int
	warned    bool
}

// report runs on the schedule; cron's chain keeps invocations from overlapping.
func (r *reporter) report(ctx context.Context) {
	res := r.client.Remaining(ctx)
	fields := []logx.Field{logx.String("kind", res.Kind.String()), logx.Int("value", res.Int())}
	if r.warnBelow > 0 && res.Kind == yogrt.KindSeconds && res.Seconds <= r.warnBelow {
		if !r.warned {
			r.warned = true
			r.log.Warn("allocation ending soon", fields...)
			return
		}
	}
	r.log.Info("remaining time", fields...)
}

func newMetricsReg() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

func metricsMux(reg *prometheus.Registry, withPprof bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if withPprof {
		mux.HandleFunc("/debug/pprof/", hpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)
	}
	return mux
}

func hostTag() string {
	h, _ := os.Hostname()
	return h + "/" + fmt.Sprint(os.Getpid())
}

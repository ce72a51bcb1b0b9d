package yogrt

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics is nil-safe: a Client without a registerer records nothing.
type metrics struct {
	queries   *prometheus.CounterVec
	skipped   prometheus.Counter
	remaining prometheus.Gauge
	loaded    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yogrt_backend_queries_total",
			Help: "Backend queries by outcome (ok or unknown).",
		}, []string{"outcome"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yogrt_refresh_skipped_total",
			Help: "Remaining-time requests answered from the cache without a backend query.",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yogrt_remaining_seconds",
			Help: "Last reported remaining time in seconds.",
		}),
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yogrt_backend_loaded",
			Help: "1 if a backend is bound, 0 otherwise.",
		}),
	}
	m.queries = register(reg, m.queries)
	m.skipped = register(reg, m.skipped)
	m.remaining = register(reg, m.remaining)
	m.loaded = register(reg, m.loaded)
	return m
}

// register reuses an already registered collector of the same description.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	switch o {
	case Refreshed:
		m.queries.WithLabelValues("ok").Inc()
	case Failed:
		m.queries.WithLabelValues("unknown").Inc()
	default:
		m.skipped.Inc()
	}
}

func (m *metrics) setRemaining(r Result) {
	if m == nil || r.Kind != KindSeconds {
		return
	}
	m.remaining.Set(float64(r.Seconds))
}

func (m *metrics) setLoaded(loaded bool) {
	if m == nil {
		return
	}
	if loaded {
		m.loaded.Set(1)
	} else {
		m.loaded.Set(0)
	}
}

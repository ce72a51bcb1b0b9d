package yogrt

import (
	"context"
	"sync"

	"yogrt/internal/config"
	"yogrt/pkg/backend"
	logx "yogrt/pkg/logx"
)

// Client owns the backend handle, polling policy and cached estimate of one process.
//
// Nothing happens at construction: the configuration is read and the backend
// bound on the first call of any method, exactly once. A backend that fails to
// bind is never retried.
type Client struct {
	mu   sync.Mutex
	opts Options

	initialized bool
	handle      backend.Handle
	rank        int
	policy      Policy
	backoff     int
	cache       *Cache
	log         logx.Logger
	metrics     *metrics
}

func New(options ...OptionsFunc) *Client {
	var o Options
	for _, fn := range append(defaultPreset(), options...) {
		fn(&o)
	}
	return &Client{
		opts:    o,
		handle:  backend.Unloaded(),
		policy:  DefaultPolicy(),
		backoff: DefaultFailedBackoff,
		cache:   NewCache(),
	}
}

// init must be called with c.mu held.
func (c *Client) init(ctx context.Context) {
	if c.initialized {
		return
	}
	c.initialized = true

	cfg, err := c.opts.ConfigLoader()
	if err != nil || cfg == nil {
		cfg = config.Defaults()
		log := c.logger(cfg)
		log.Warn("configuration unavailable, using defaults and environment", logx.Err(err))
		config.ApplyEnv(cfg, log)
		cfg.Normalize(log)
	}
	c.log = c.logger(cfg)

	c.policy = Policy{
		IntervalFar:   cfg.IntervalFar,
		IntervalNear:  cfg.IntervalNear,
		NearThreshold: cfg.NearThreshold,
	}.Clamped()
	c.backoff = clampSeconds(cfg.FailedBackoff)
	if c.opts.FailedBackoff != nil {
		c.backoff = *c.opts.FailedBackoff
	}
	if cfg.DefaultLimit != nil {
		c.cache.Seed(*cfg.DefaultLimit, c.opts.Clock.Now())
	}
	c.log.Debug("policy configured",
		logx.Int("interval_far", c.policy.IntervalFar),
		logx.Int("interval_near", c.policy.IntervalNear),
		logx.Int("near_threshold", c.policy.NearThreshold),
		logx.Int("failed_backoff", c.backoff),
		logx.Bool("default_limit_set", cfg.DefaultLimit != nil),
	)

	c.metrics = newMetrics(c.opts.Metrics)
	c.handle = c.opts.Registry.Open(ctx, cfg.Backend.Name, cfg.Backend.Config, cfg.Debug, c.log)
	c.rank = c.handle.Rank()
	c.metrics.setLoaded(c.handle.Loaded())
	if c.handle.Loaded() {
		c.log.Debug("backend ready", logx.String("backend", c.handle.Name()), logx.Int("rank", c.rank))
	}
}

func (c *Client) logger(cfg *config.Config) logx.Logger {
	if !c.opts.Logger.IsZero() {
		return c.opts.Logger
	}
	return logx.NewConsole(cfg.LogConfig().Level)
}

// Remaining returns the estimated time left in the allocation.
//
// Unbounded when no backend is bound or no estimate was ever obtained,
// NotApplicable on a non-authoritative rank (the backend is not queried).
func (c *Client) Remaining(ctx context.Context) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(ctx)

	if !c.handle.Loaded() {
		return Unbounded()
	}
	if c.rank != 0 {
		c.log.Debug("not the authoritative rank", logx.Int("rank", c.rank))
		return NotApplicableResult()
	}

	now := c.opts.Clock.Now()
	outcome, err := c.cache.RefreshIfNeeded(ctx, now, c.handle, c.policy, c.backoff)
	c.metrics.observe(outcome)
	if outcome == Failed {
		c.log.Debug("update failed, will retry later",
			logx.Int("retry_after_sec", c.backoff),
			logx.Err(err),
		)
	}

	v, ok := c.cache.CurrentValue(now)
	if !ok {
		return Unbounded()
	}
	res := Seconds(v)
	c.metrics.setRemaining(res)
	c.log.Trace("reporting remaining time", logx.Int("seconds", v), logx.String("refresh", outcome.String()))
	return res
}

// RemainingSeconds is Remaining in the legacy integer encoding.
func (c *Client) RemainingSeconds() int {
	return c.Remaining(context.Background()).Int()
}

// GetTime is an alias of RemainingSeconds kept for older callers.
func (c *Client) GetTime() int { return c.RemainingSeconds() }

func (c *Client) SetIntervalFar(seconds int) {
	c.update("interval_far", func(p *Policy) *int { return &p.IntervalFar }, seconds)
}

func (c *Client) SetIntervalNear(seconds int) {
	c.update("interval_near", func(p *Policy) *int { return &p.IntervalNear }, seconds)
}

func (c *Client) SetNearThreshold(secondsBeforeEnd int) {
	c.update("near_threshold", func(p *Policy) *int { return &p.NearThreshold }, secondsBeforeEnd)
}

func (c *Client) update(name string, field func(*Policy) *int, v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	*field(&c.policy) = clampSeconds(v)
	c.log.Debug("policy changed", logx.String("field", name), logx.Int("value", *field(&c.policy)))
}

func (c *Client) IntervalFar() int   { return c.Policy().IntervalFar }
func (c *Client) IntervalNear() int  { return c.Policy().IntervalNear }
func (c *Client) NearThreshold() int { return c.Policy().NearThreshold }

func (c *Client) Policy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	return c.policy
}

// SetPolicy replaces the whole policy; each field is clamped independently.
func (c *Client) SetPolicy(p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	c.policy = p.Clamped()
}

func (c *Client) FailedBackoff() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	return c.backoff
}

func (c *Client) SetFailedBackoff(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	c.backoff = clampSeconds(seconds)
}

// Backend returns the bound backend's name, or "" when none is bound.
func (c *Client) Backend() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	return c.handle.Name()
}

func (c *Client) Rank() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	return c.rank
}

// Estimate returns a copy of the cached estimate and whether the last query failed.
func (c *Client) Estimate() (Estimate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init(context.Background())
	return c.cache.Estimate(), c.cache.LastQueryFailed()
}

// Close releases the backend. The client keeps answering Unbounded afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil
	}
	err := c.handle.Close()
	c.handle = backend.Unloaded()
	c.metrics.setLoaded(false)
	return err
}

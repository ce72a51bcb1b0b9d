package yogrt

import (
	"context"
	"time"

	"yogrt/pkg/backend"
)

// Estimate is a remaining-time value captured at a point in time.
// Value is backend.Unknown until a valid estimate has been obtained.
type Estimate struct {
	Value      int
	CapturedAt time.Time
}

// Known reports whether the estimate holds a real value.
func (e Estimate) Known() bool { return e.Value != backend.Unknown }

// Captured reports whether anything was ever recorded.
func (e Estimate) Captured() bool { return !e.CapturedAt.IsZero() }

// At projects the estimate to now. It never goes below 0.
func (e Estimate) At(now time.Time) int {
	elapsed := now.Unix() - e.CapturedAt.Unix()
	if elapsed < 0 {
		elapsed = 0
	}
	rem := int64(e.Value) - elapsed
	if rem < 0 {
		return 0
	}
	return int(rem)
}

// Outcome describes what a refresh attempt did.
type Outcome int

const (
	// Skipped means the policy did not call for a query.
	Skipped Outcome = iota
	// Refreshed means the backend answered and the estimate was replaced.
	Refreshed
	// Failed means the backend could not answer; a known estimate was extrapolated.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Refreshed:
		return "refreshed"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Cache holds the single cached estimate and whether the last query failed.
type Cache struct {
	est             Estimate
	lastQueryFailed bool
}

func NewCache() *Cache {
	return &Cache{est: Estimate{Value: backend.Unknown}}
}

// Seed stores an initial estimate without querying the backend.
func (c *Cache) Seed(value int, at time.Time) {
	if value < 0 {
		return
	}
	c.est = Estimate{Value: value, CapturedAt: at}
}

func (c *Cache) Estimate() Estimate   { return c.est }
func (c *Cache) LastQueryFailed() bool { return c.lastQueryFailed }

// RefreshIfNeeded queries h when the policy calls for it and updates the cache.
// On failure a known estimate is counted down to now, so it keeps decreasing
// instead of freezing; an unknown estimate stays unknown.
func (c *Cache) RefreshIfNeeded(ctx context.Context, now time.Time, h backend.Handle, p Policy, failedBackoff int) (Outcome, error) {
	// Captured timestamps never move backwards.
	if c.est.Captured() && now.Before(c.est.CapturedAt) {
		now = c.est.CapturedAt
	}

	if !NeedsUpdate(now, c.est, p, c.lastQueryFailed, failedBackoff) {
		return Skipped, nil
	}

	v, err := h.Query(ctx, backend.Query{Now: now, LastUpdate: c.est.CapturedAt, Cached: c.est.Value})
	if err == nil && v >= 0 {
		c.lastQueryFailed = false
		c.est = Estimate{Value: v, CapturedAt: now}
		return Refreshed, nil
	}
	if err == nil {
		err = backend.ErrUnknown
	}

	c.lastQueryFailed = true
	if c.est.Known() {
		// At floors at 0, so an expired estimate can never collide with Unknown.
		c.est = Estimate{Value: c.est.At(now), CapturedAt: now}
	}
	return Failed, err
}

// CurrentValue returns the projected remaining seconds at now, floored at 0.
// ok is false when no estimate was ever obtained (no bound known).
func (c *Cache) CurrentValue(now time.Time) (v int, ok bool) {
	if !c.est.Known() {
		return 0, false
	}
	return c.est.At(now), true
}

package yogrt

import "yogrt/internal/config"

// Policy selects how often the backend may be queried. All values are seconds.
type Policy struct {
	// IntervalFar is the refresh cadence while the projected remaining time
	// exceeds NearThreshold.
	IntervalFar int `json:"interval_far"`
	// IntervalNear is the refresh cadence once within NearThreshold of the end.
	IntervalNear  int `json:"interval_near"`
	NearThreshold int `json:"near_threshold"`
}

func DefaultPolicy() Policy {
	return Policy{
		IntervalFar:   config.DefaultIntervalFar,
		IntervalNear:  config.DefaultIntervalNear,
		NearThreshold: config.DefaultNearThreshold,
	}
}

// Clamped returns p with every negative field set to 0.
func (p Policy) Clamped() Policy {
	return Policy{
		IntervalFar:   clampSeconds(p.IntervalFar),
		IntervalNear:  clampSeconds(p.IntervalNear),
		NearThreshold: clampSeconds(p.NearThreshold),
	}
}

func clampSeconds(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

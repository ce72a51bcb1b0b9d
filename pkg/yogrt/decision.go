package yogrt

import "time"

// DefaultFailedBackoff is how long after a failed query the backend may be retried,
// regardless of the normal cadence.
const DefaultFailedBackoff = 300

// NeedsUpdate reports whether the backend should be queried at now.
//
// The first call (nothing captured yet) always queries. Otherwise the regime is
// chosen from the projected remaining time, not the last captured value, so an
// estimate drifts from far to near cadence purely by elapsed time. A failed last
// query additionally allows a retry once failedBackoff seconds have passed.
func NeedsUpdate(now time.Time, est Estimate, p Policy, lastQueryFailed bool, failedBackoff int) bool {
	if !est.Captured() {
		return true
	}

	elapsed := int(now.Unix() - est.CapturedAt.Unix())
	projected := est.Value - elapsed

	if projected > p.NearThreshold {
		if elapsed >= p.IntervalFar {
			return true
		}
	} else if elapsed >= p.IntervalNear {
		return true
	}

	return lastQueryFailed && elapsed >= failedBackoff
}

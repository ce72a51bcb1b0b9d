package yogrt

import "sync"

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns the process-wide client, configured from the environment and
// backend.DefaultRegistry.
func Default() *Client {
	defaultOnce.Do(func() { defaultClient = New() })
	return defaultClient
}

// Remaining returns the remaining seconds of the current job: Infinite when
// unknown, NotApplicable (-1) on a non-authoritative rank.
func Remaining() int { return Default().RemainingSeconds() }

// GetTime is an alias of Remaining.
func GetTime() int { return Default().GetTime() }

func SetIntervalFar(seconds int)           { Default().SetIntervalFar(seconds) }
func SetIntervalNear(seconds int)          { Default().SetIntervalNear(seconds) }
func SetNearThreshold(secondsBeforeEnd int) { Default().SetNearThreshold(secondsBeforeEnd) }

func GetIntervalFar() int   { return Default().IntervalFar() }
func GetIntervalNear() int  { return Default().IntervalNear() }
func GetNearThreshold() int { return Default().NearThreshold() }

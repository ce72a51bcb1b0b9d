package yogrt

import (
	"encoding/json"
	"math"
	"strconv"
)

// Legacy integer encodings of a Result.
const (
	// Infinite is reported when no bound on the remaining time is known.
	Infinite = math.MaxInt32
	// NotApplicable is reported to tasks that are not the authoritative rank.
	NotApplicable = -1
)

type Kind int

const (
	KindSeconds Kind = iota
	// KindUnbounded: no backend, or the backend never produced an estimate.
	KindUnbounded
	// KindNotApplicable: this task is not the authoritative rank.
	KindNotApplicable
)

func (k Kind) String() string {
	switch k {
	case KindUnbounded:
		return "unbounded"
	case KindNotApplicable:
		return "not_applicable"
	default:
		return "seconds"
	}
}

// Result is the answer to a remaining-time query.
type Result struct {
	Kind    Kind
	Seconds int
}

func Seconds(n int) Result        { return Result{Kind: KindSeconds, Seconds: n} }
func Unbounded() Result           { return Result{Kind: KindUnbounded} }
func NotApplicableResult() Result { return Result{Kind: KindNotApplicable} }

// Int returns the legacy integer encoding: Infinite, NotApplicable or the seconds.
// Seconds are capped at Infinite-1 so a finite answer never reads as unbounded.
func (r Result) Int() int {
	switch r.Kind {
	case KindUnbounded:
		return Infinite
	case KindNotApplicable:
		return NotApplicable
	default:
		return min(r.Seconds, Infinite-1)
	}
}

func (r Result) String() string {
	if r.Kind == KindSeconds {
		return strconv.Itoa(r.Seconds) + "s"
	}
	return r.Kind.String()
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    string `json:"kind"`
		Seconds *int   `json:"seconds,omitempty"`
	}{Kind: r.Kind.String()}
	if r.Kind == KindSeconds {
		s := r.Seconds
		out.Seconds = &s
	}
	return json.Marshal(out)
}

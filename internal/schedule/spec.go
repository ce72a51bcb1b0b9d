package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	KindCron Kind = iota
	KindInterval
)

func (k Kind) String() string {
	if k == KindInterval {
		return "interval"
	}
	return "cron"
}

// Spec is a parsed schedule string.
//
// Accepted forms:
//   - cron: "*/5 * * * *", "0 */2 * * * *", "@hourly", "@every 1m"
//   - interval: "55m", "2h30m", or HH:MM such as "00:05"
//
// The prefixes "cron:" and "interval:"/"every:" force a form.
type Spec struct {
	Kind  Kind
	Cron  string
	Every time.Duration
}

func (s Spec) String() string {
	if s.Kind == KindInterval {
		return "every " + s.Every.String()
	}
	return s.Cron
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Spec{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return Spec{Kind: KindCron, Cron: expr}, nil
	case strings.HasPrefix(low, "interval:"):
		return parseInterval(s[len("interval:"):])
	case strings.HasPrefix(low, "every:"):
		return parseInterval(s[len("every:"):])
	}

	// "@every 1m" is cron syntax but behaves as an interval; keep the spread.
	if strings.HasPrefix(low, "@every") {
		return parseInterval(s[len("@every"):])
	}
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return Spec{Kind: KindCron, Cron: s}, nil
	}

	sp, err := parseInterval(s)
	if err != nil {
		return Spec{}, fmt.Errorf(
			"invalid schedule %q (use cron like '*/5 * * * *', HH:MM like '00:05', or duration like '1m')",
			raw,
		)
	}
	return sp, nil
}

func parseInterval(v string) (Spec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Spec{}, fmt.Errorf("interval required")
	}
	var d time.Duration
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return Spec{}, fmt.Errorf("invalid minutes in %q", v)
		}
		d = time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	} else {
		var err error
		d, err = time.ParseDuration(v)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid interval %q (use HH:MM or Go duration like '30s'/'5m')", v)
		}
	}
	if d <= 0 {
		return Spec{}, fmt.Errorf("interval must be > 0")
	}
	return Spec{Kind: KindInterval, Every: d}, nil
}

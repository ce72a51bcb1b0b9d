package backend

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseRemaining parses a remaining-time string into whole seconds.
//
// Accepted forms:
//   - "[D-]HH:MM:SS", "[D-]HH:MM", "MM:SS" (squeue %L style)
//   - "D-HH" (days and hours)
//   - plain seconds: "3600"
//   - Go duration: "1h30m"
//
// UNLIMITED, NOT_SET, INVALID and N/A (any case) report ErrUnknown.
func ParseRemaining(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "", "UNLIMITED", "NOT_SET", "INVALID", "N/A":
		return Unknown, fmt.Errorf("remaining %q: %w", raw, ErrUnknown)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Unknown, fmt.Errorf("remaining %q: %w", raw, ErrUnknown)
		}
		return n, nil
	}

	if !strings.ContainsAny(s, ":-") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Unknown, fmt.Errorf("remaining %q: invalid format", raw)
		}
		if d < 0 {
			return Unknown, fmt.Errorf("remaining %q: %w", raw, ErrUnknown)
		}
		return int(d / time.Second), nil
	}

	days := 0
	clock := s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		d, err := strconv.Atoi(s[:i])
		if err != nil || d < 0 {
			return Unknown, fmt.Errorf("remaining %q: invalid days", raw)
		}
		days = d
		clock = s[i+1:]
	}

	parts := strings.Split(clock, ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Unknown, fmt.Errorf("remaining %q: invalid field %q", raw, p)
		}
		nums[i] = n
	}

	var h, m, sec int
	switch {
	case len(nums) == 1 && clock != s:
		h = nums[0]
	case len(nums) == 2 && clock != s:
		h, m = nums[0], nums[1]
	case len(nums) == 2:
		m, sec = nums[0], nums[1]
	case len(nums) == 3:
		h, m, sec = nums[0], nums[1], nums[2]
	default:
		return Unknown, fmt.Errorf("remaining %q: invalid format", raw)
	}
	return days*86400 + h*3600 + m*60 + sec, nil
}

// ParseEndTime parses an absolute end time: Unix seconds or RFC 3339.
func ParseEndTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("end time: empty")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, fmt.Errorf("end time %q: %w", raw, ErrUnknown)
		}
		return time.Unix(n, 0), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("end time %q: %w", raw, err)
	}
	return t, nil
}

// Until converts an end time into remaining seconds at now, floored at 0.
func Until(end, now time.Time) int {
	d := end.Unix() - now.Unix()
	if d < 0 {
		return 0
	}
	return int(d)
}

// ExpandJobID replaces every "{job_id}" in s.
func ExpandJobID(s, jobID string) string {
	return strings.ReplaceAll(s, "{job_id}", jobID)
}

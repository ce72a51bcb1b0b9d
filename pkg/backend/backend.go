package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Unknown is the value reported when the remaining time cannot be determined.
const Unknown = -1

var (
	ErrUnknown   = errors.New("remaining time unknown")
	ErrNotFound  = errors.New("backend not registered")
	ErrThrottled = errors.New("backend query throttled")
)

// Query carries what the caller knows when asking for a fresh estimate.
// LastUpdate is the zero time and Cached is Unknown if no estimate was ever obtained.
type Query struct {
	Now        time.Time
	LastUpdate time.Time
	Cached     int
}

// Backend is the capability set a resource-manager plugin provides.
//
// Remaining returns whole seconds left in the allocation. An error or a negative
// value is treated as Unknown by the caller.
type Backend interface {
	Init(ctx context.Context, verbosity int) error
	Name() string
	Remaining(ctx context.Context, q Query) (int, error)
	Rank() int
}

// Factory constructs a backend from its raw JSON config.
type Factory struct {
	Name string
	// Detect reports whether the backend looks usable in this environment.
	// Factories without Detect are never picked automatically.
	Detect func() bool
	New    func(raw json.RawMessage) (Backend, error)
}

// DecodeConfig decodes raw into dst, rejecting unknown fields. Empty raw leaves dst untouched.
func DecodeConfig(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode backend config: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("decode backend config: trailing data")
		}
		return fmt.Errorf("decode backend config: %w", err)
	}
	return nil
}

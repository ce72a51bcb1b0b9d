//go:build linux

package systemd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingFromRuntimeMax(t *testing.T) {
	t.Parallel()
	started := time.Unix(1_700_000_000, 0)
	props := map[string]interface{}{"ActiveEnterTimestamp": uint64(started.Unix()) * 1_000_000}

	got := parseTimestamp(props, "ActiveEnterTimestamp")
	assert.Equal(t, started.Unix(), got.Unix())
	assert.True(t, parseTimestamp(props, "InactiveEnterTimestamp").IsZero())

	limit := uint64(2 * time.Hour / time.Microsecond)
	assert.Equal(t, 3600, remaining(started, limit, started.Add(time.Hour)))
	assert.Equal(t, 0, remaining(started, limit, started.Add(3*time.Hour)))
}

func TestUnitType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Scope", unitType("run-u12.scope"))
	assert.Equal(t, "Service", unitType("run-u12.service"))
	assert.Equal(t, "Service", unitType("job"))
}

func TestDetectNeedsInvocationID(t *testing.T) {
	t.Setenv("INVOCATION_ID", "")
	assert.False(t, Factory().Detect())
	t.Setenv("INVOCATION_ID", "3f0c")
	assert.True(t, Factory().Detect())
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "yogrt/pkg/logx"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"YOGRT_DEBUG", "YOGRT_INTERVAL1", "YOGRT_INTERVAL2", "YOGRT_INTERVAL2_START",
		"YOGRT_DEFAULT_LIMIT", "YOGRT_BACKEND", "YOGRT_FAILED_BACKOFF", "YOGRT_CONFIG",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFromEnvironmentDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnvironment(logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultIntervalFar, cfg.IntervalFar)
	assert.Equal(t, DefaultIntervalNear, cfg.IntervalNear)
	assert.Equal(t, DefaultNearThreshold, cfg.NearThreshold)
	assert.Equal(t, DefaultFailedBackoff, cfg.FailedBackoff)
	assert.Nil(t, cfg.DefaultLimit)
	assert.Equal(t, "warn", cfg.LogConfig().Level)
}

func TestFromEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOGRT_DEBUG", "2")
	t.Setenv("YOGRT_INTERVAL1", "60")
	t.Setenv("YOGRT_INTERVAL2", "-5")
	t.Setenv("YOGRT_INTERVAL2_START", "-1")
	t.Setenv("YOGRT_DEFAULT_LIMIT", "7200")
	t.Setenv("YOGRT_BACKEND", " env ")

	cfg, err := FromEnvironment(logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Debug)
	assert.Equal(t, 60, cfg.IntervalFar)
	assert.Equal(t, 0, cfg.IntervalNear)
	// Each field clamps on its own; a negative threshold must not touch the near interval.
	assert.Equal(t, 0, cfg.NearThreshold)
	require.NotNil(t, cfg.DefaultLimit)
	assert.Equal(t, 7200, *cfg.DefaultLimit)
	assert.Equal(t, "env", cfg.Backend.Name)
	assert.Equal(t, "debug", cfg.LogConfig().Level)
}

func TestNegativeThresholdLeavesOtherFields(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOGRT_INTERVAL2_START", "-100")
	cfg, err := FromEnvironment(logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.NearThreshold)
	assert.Equal(t, DefaultIntervalNear, cfg.IntervalNear)
	assert.Equal(t, DefaultIntervalFar, cfg.IntervalFar)
}

func TestNegativeDefaultLimitDropped(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOGRT_DEFAULT_LIMIT", "-3")
	cfg, err := FromEnvironment(logx.Nop())
	require.NoError(t, err)
	assert.Nil(t, cfg.DefaultLimit)
}

func TestNonNumericEnvReadsAsZero(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOGRT_INTERVAL1", "soon")
	cfg, err := FromEnvironment(logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.IntervalFar)
}

func TestParseYAMLWithEnvOverlay(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	p := writeFile(t, dir, "yogrt.yaml", `
debug: 1
interval_far: 1200
near_threshold: 600
default_limit: 3600
backend:
  name: file
  config:
    path: /tmp/deadline
`)
	t.Setenv("YOGRT_INTERVAL1", "100")

	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Debug)
	assert.Equal(t, 100, cfg.IntervalFar, "environment wins over file")
	assert.Equal(t, DefaultIntervalNear, cfg.IntervalNear, "omitted keys keep defaults")
	assert.Equal(t, 600, cfg.NearThreshold)
	require.NotNil(t, cfg.DefaultLimit)
	assert.Equal(t, 3600, *cfg.DefaultLimit)
	assert.Equal(t, "file", cfg.Backend.Name)
	assert.JSONEq(t, `{"path":"/tmp/deadline"}`, string(cfg.Backend.Config))
}

func TestParseYAMLNonStringKeysAndEmptyFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	p := writeFile(t, dir, "yogrt.yml", `
backend:
  name: command
  config:
    argv: [squeue, --noheader]
    1: one
`)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	assert.Equal(t, "command", cfg.Backend.Name)
	assert.JSONEq(t, `{"argv":["squeue","--noheader"],"1":"one"}`, string(cfg.Backend.Config))

	cfg, err = NewConfigManager(writeFile(t, dir, "empty.yaml", "")).Parse()
	require.NoError(t, err)
	assert.Equal(t, Defaults().IntervalFar, cfg.IntervalFar)

	_, err = NewConfigManager(writeFile(t, dir, "bad.yaml", "debug: [1")).Parse()
	assert.Error(t, err)
}

func TestParseRejectsUnknownAndTrailing(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := NewConfigManager(writeFile(t, dir, "a.json", `{"interval_farr": 5}`)).Parse()
	assert.Error(t, err)

	_, err = NewConfigManager(writeFile(t, dir, "b.json", `{"debug": 1}{"debug": 2}`)).Parse()
	assert.Error(t, err)
}

func TestFromEnvironmentReadsConfigFile(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, t.TempDir(), "c.json", `{"interval_near": 42}`)
	t.Setenv("YOGRT_CONFIG", p)

	cfg, err := FromEnvironment(logx.Nop())
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.IntervalNear)
}

func TestSummarizeConfigChange(t *testing.T) {
	a := Defaults()
	b := Defaults()
	changed, _ := SummarizeConfigChange(a, b)
	assert.Empty(t, changed)

	b.IntervalNear = 10
	b.Backend.Name = "env"
	limit := 5
	b.DefaultLimit = &limit
	changed, attrs := SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"policy", "backend", "default_limit"}, changed)
	assert.NotEmpty(t, attrs)
}

func TestWatchPublishesChanges(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	p := writeFile(t, dir, "w.json", `{"interval_far": 100}`)

	m := NewConfigManager(p)
	_, err := m.Load()
	require.NoError(t, err)
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher time to attach before writing.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, dir, "w.json", `{"interval_far": 200}`)

	select {
	case cfg := <-sub:
		assert.Equal(t, 200, cfg.IntervalFar)
		assert.Equal(t, 200, m.Get().IntervalFar)
	case <-time.After(5 * time.Second):
		t.Fatal("no config published")
	}

	cancel()
	<-done
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/basiceq/pkg/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, BackendMemory, cfg.Backend.Kind)
	assert.Equal(t, transition.DefaultDuration, cfg.Transition.Duration)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  kind: redis
  redis:
    addr: cache:6379
    db: 2
    lock: true
transition:
  duration: 150ms
  easing: linear
presets:
  allow_duplicate_names: true
  library: ./library
http:
  port: 9090
log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend.Kind)
	assert.Equal(t, "cache:6379", cfg.Backend.Redis.Addr)
	assert.Equal(t, 2, cfg.Backend.Redis.DB)
	assert.True(t, cfg.Backend.Redis.Lock)
	assert.Equal(t, Default().Backend.Redis.Prefix, cfg.Backend.Redis.Prefix)
	assert.Equal(t, 150*time.Millisecond, cfg.Transition.Duration)
	assert.Equal(t, transition.DefaultFrameInterval, cfg.Transition.FrameInterval)
	assert.Equal(t, "linear", cfg.Transition.Easing)
	assert.True(t, cfg.Presets.AllowDuplicateNames)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ZeroDurationDisablesAnimation(t *testing.T) {
	cfg, err := Load(writeConfig(t, "transition:\n  duration: 0s\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Transition.Duration)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown backend": "backend:\n  kind: etcd\n",
		"unknown easing":  "transition:\n  easing: bounce\n",
		"negative":        "transition:\n  duration: -1s\n",
		"bad level":       "log_level: loud\n",
		"bad yaml":        "backend: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

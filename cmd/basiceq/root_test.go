package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/basiceq/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	addConfigFlags(cmd.Flags())
	cmd.Flags().Int("port", 8080, "")

	require.NoError(t, cmd.Flags().Parse([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--backend", "file",
		"--duration", "120ms",
		"--port", "9999",
	}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.BackendFile, cfg.Backend.Kind)
	assert.Equal(t, 120*time.Millisecond, cfg.Transition.Duration)
	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, config.Default().Backend.File.Path, cfg.Backend.File.Path)
}

func TestLoadConfig_RejectsBadFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "presets"}
	addConfigFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--backend", "etcd",
	}))

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "unknown backend kind")
}

func TestCommands_MemoryBackend(t *testing.T) {
	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	assert.Contains(t, run("version"), "basiceq version")
	assert.Contains(t, run("presets", "select", "bass_boost"), "Preset 'Bass Boost' (bass_boost) selected.")
	assert.Contains(t, run("presets", "ls", "--json"), `"id": "vocal_boost"`)
	assert.True(t, strings.Contains(run("gain", "set", "mid", "2.5", "--duration", "0s"), "+2.5dB"))
}

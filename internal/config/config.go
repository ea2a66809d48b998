// Package config loads the basiceq.yaml settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/adapters/file"
	"github.com/aretw0/basiceq/pkg/adapters/redis"
	"github.com/aretw0/basiceq/pkg/session"
	"github.com/aretw0/basiceq/pkg/transition"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the settings file looked up in the working directory.
const DefaultPath = "basiceq.yaml"

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the root of basiceq.yaml.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Transition TransitionConfig `yaml:"transition"`
	Presets    PresetsConfig    `yaml:"presets"`
	Scripts    ScriptsConfig    `yaml:"scripts"`
	HTTP       HTTPConfig       `yaml:"http"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	LogLevel   string           `yaml:"log_level"`
}

// BackendConfig selects and configures the preset backend.
type BackendConfig struct {
	Kind  string      `yaml:"kind"`
	File  FileConfig  `yaml:"file"`
	Redis RedisConfig `yaml:"redis"`
}

// FileConfig configures the YAML file backend.
type FileConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the Redis backend and its session lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	Lock     bool          `yaml:"lock"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// TransitionConfig configures the Transition Engine. A zero duration disables animation.
type TransitionConfig struct {
	Duration      time.Duration `yaml:"duration"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	Easing        string        `yaml:"easing"`
}

// PresetsConfig configures the Preset Store.
type PresetsConfig struct {
	AllowDuplicateNames bool   `yaml:"allow_duplicate_names"`
	Library             string `yaml:"library"`
}

// ScriptsConfig configures the privileged script runner.
type ScriptsConfig struct {
	Dir    string `yaml:"dir"`
	Config string `yaml:"config"`
}

// HTTPConfig configures the REST surface.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Kind: BackendMemory,
			File: FileConfig{Path: file.DefaultPath},
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  redis.DefaultPrefix,
				LockTTL: session.DefaultLockTTL,
			},
		},
		Transition: TransitionConfig{
			Duration:      transition.DefaultDuration,
			FrameInterval: transition.DefaultFrameInterval,
			Easing:        "smoothstep",
		},
		Scripts: ScriptsConfig{
			Dir:    "scripts",
			Config: "scripts.yaml",
		},
		HTTP:     HTTPConfig{Port: 8080},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "basiceq"},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults refills values a file cleared with empty strings.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Backend.Kind == "" {
		c.Backend.Kind = def.Backend.Kind
	}
	if c.Backend.File.Path == "" {
		c.Backend.File.Path = def.Backend.File.Path
	}
	if c.Backend.Redis.Addr == "" {
		c.Backend.Redis.Addr = def.Backend.Redis.Addr
	}
	if c.Backend.Redis.Prefix == "" {
		c.Backend.Redis.Prefix = def.Backend.Redis.Prefix
	}
	if c.Backend.Redis.LockTTL <= 0 {
		c.Backend.Redis.LockTTL = def.Backend.Redis.LockTTL
	}
	if c.Transition.FrameInterval <= 0 {
		c.Transition.FrameInterval = def.Transition.FrameInterval
	}
	if c.Transition.Easing == "" {
		c.Transition.Easing = def.Transition.Easing
	}
	if c.Scripts.Dir == "" {
		c.Scripts.Dir = def.Scripts.Dir
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = def.HTTP.Port
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Backend.Kind {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown backend kind %q (want memory, file or redis)", c.Backend.Kind)
	}
	if c.Transition.Duration < 0 {
		return fmt.Errorf("transition duration must not be negative, got %s", c.Transition.Duration)
	}
	if _, err := transition.EasingByName(c.Transition.Easing); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	return nil
}

package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LauncherConfig is the command a script path is handed to.
// An argument containing {script} receives the path in place; otherwise the
// path is appended.
type LauncherConfig struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args" json:"args"`
}

// ScriptConfig registers a script and the environment it runs with.
type ScriptConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Environment map[string]string `yaml:"env" json:"env"`
}

// ConfigFile represents the structure of scripts.yaml.
type ConfigFile struct {
	Dir     string          `yaml:"dir" json:"dir"`
	Sudo    *LauncherConfig `yaml:"sudo" json:"sudo"`
	Apple   *LauncherConfig `yaml:"apple" json:"apple"`
	Scripts []ScriptConfig  `yaml:"scripts" json:"scripts"`
}

// LoadConfig reads a configuration file (YAML or JSON).
// A missing file yields an empty configuration.
func LoadConfig(path string) (ConfigFile, error) {
	var cfg ConfigFile

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read scripts config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse scripts.json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse scripts.yaml: %w", err)
		}
	}

	// Relative script directories are resolved against the config file.
	if cfg.Dir != "" && !filepath.IsAbs(cfg.Dir) {
		cfg.Dir = filepath.Join(filepath.Dir(path), cfg.Dir)
	}
	return cfg, nil
}

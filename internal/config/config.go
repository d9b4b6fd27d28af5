// Package config loads the ggufcheck configuration file
// (~/.config/ggufcheck/config.yaml).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samcharles93/ggufcheck/internal/gguf"
)

// EnvModelsDir overrides models_dir from the file.
const EnvModelsDir = "GGUFCHECK_MODELS_DIR"

// Config mirrors the YAML file. Zero values mean "not set".
type Config struct {
	// Sanity ceilings
	MaxTensorCount uint64 `yaml:"max_tensor_count"`
	MaxKVCount     uint64 `yaml:"max_kv_count"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	ModelsDir     string `yaml:"models_dir"`
}

// Limits returns the configured ceilings; unset fields keep their defaults.
func (c Config) Limits() gguf.Limits {
	l := gguf.DefaultLimits()
	if c.MaxTensorCount != 0 {
		l.MaxTensorCount = c.MaxTensorCount
	}
	if c.MaxKVCount != 0 {
		l.MaxKVCount = c.MaxKVCount
	}
	return l
}

// DefaultPath returns the per-user config location, or "" when the platform
// has no config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ggufcheck", "config.yaml")
}

// Load reads the file at path. An explicit path must exist and parse.
// With an empty path the default location is tried and any problem with it
// yields a zero Config.
func Load(path string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(path) == "" {
		cfg = loadDefault()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if dir := strings.TrimSpace(os.Getenv(EnvModelsDir)); dir != "" {
		cfg.ModelsDir = dir
	}
	return cfg, nil
}

func loadDefault() Config {
	path := DefaultPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

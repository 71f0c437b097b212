// Package config loads todo-board settings from a TOML or YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// These are the environment variables that override file settings.
const (
	EnvURL      = "TODO_BOARD_URL"
	EnvToken    = "TODO_BOARD_TOKEN"
	EnvLogLevel = "TODO_BOARD_LOG_LEVEL"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "todo-board.toml"

// Config holds the client and stub server settings.
type Config struct {
	// BaseURL is the root of the board REST API.
	BaseURL  string   `toml:"base_url" yaml:"base_url"`
	Token    string   `toml:"token" yaml:"token"`
	Timeout  Duration `toml:"timeout" yaml:"timeout"`
	LogFile  string   `toml:"log_file" yaml:"log_file"`
	LogLevel string   `toml:"log_level" yaml:"log_level"`

	// Listen and Database are only used by the stub server.
	Listen   string `toml:"listen" yaml:"listen"`
	Database string `toml:"database" yaml:"database"`
}

// Duration is a time.Duration written as a string such as "10s" in config files.
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalText writes the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML parses a duration string; yaml.v3 does not use encoding.TextUnmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		BaseURL:  "http://localhost:8080/api/kanban",
		Timeout:  Duration(10 * time.Second),
		LogFile:  "todo-board.log",
		LogLevel: "info",
		Listen:   ":8080",
		Database: "todo-board.sqlite",
	}
}

// Load reads the config file at path on top of the defaults, then applies environment
// overrides. The format is chosen by extension: .yaml/.yml for YAML, anything else TOML.
// A missing file is not an error when path is the default.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)

	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}

	if err != nil {
		return fmt.Errorf("error parsing config %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvURL)); v != "" {
		c.BaseURL = v
	}

	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		c.Token = v
	}

	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must not be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", time.Duration(c.Timeout))
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}

	return nil
}

// Level returns the configured zerolog level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}

	return level
}

// Package config loads runcost settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds settings shared by every command. Command-line flags
// override these values.
type Config struct {
	DB        string `env:"RUNCOST_DB"         envDefault:"runcost.db"`
	LogLevel  string `env:"RUNCOST_LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"RUNCOST_LOG_FORMAT" envDefault:"text"`
	Timezone  string `env:"RUNCOST_TIMEZONE"   envDefault:"UTC"`
	MaxSteps  int    `env:"RUNCOST_MAX_STEPS"  envDefault:"1000000"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment and checks it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: must be %s or %s", c.LogFormat, LogFormatText, LogFormatJSON)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("invalid max steps %d: must be non-negative", c.MaxSteps)
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Location loads the configured IANA time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewLogger builds a logger writing to w. verbose forces debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, LogFormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

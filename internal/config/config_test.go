package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "runcost.db", cfg.DB)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 1000000, cfg.MaxSteps)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("RUNCOST_DB", "/tmp/lib.db")
	t.Setenv("RUNCOST_LOG_LEVEL", "debug")
	t.Setenv("RUNCOST_LOG_FORMAT", "json")
	t.Setenv("RUNCOST_TIMEZONE", "America/New_York")
	t.Setenv("RUNCOST_MAX_STEPS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/lib.db", cfg.DB)
	assert.Equal(t, 50, cfg.MaxSteps)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("RUNCOST_MAX_STEPS", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	valid := Config{LogLevel: "info", LogFormat: "text", Timezone: "UTC"}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"json uppercase", func(c *Config) { c.LogFormat = "JSON" }, ""},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Base" }, "invalid timezone"},
		{"negative max steps", func(c *Config) { c.MaxSteps = -1 }, "invalid max steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := Config{LogLevel: "info", LogFormat: "json"}.NewLogger(&buf, false)
		require.NoError(t, err)

		logger.Info("hello", "k", 1)
		logger.Debug("hidden")
		assert.Contains(t, buf.String(), `"msg":"hello"`)
		assert.NotContains(t, buf.String(), "hidden")
	})

	t.Run("text handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := Config{LogLevel: "warn", LogFormat: "text"}.NewLogger(&buf, false)
		require.NoError(t, err)

		logger.Warn("careful")
		assert.Contains(t, buf.String(), "msg=careful")
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := Config{LogLevel: "error", LogFormat: "text"}.NewLogger(&buf, true)
		require.NoError(t, err)

		logger.Debug("detail")
		assert.Contains(t, buf.String(), "msg=detail")
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := Config{LogLevel: "nope"}.NewLogger(&bytes.Buffer{}, false)
		assert.Error(t, err)
	})
}

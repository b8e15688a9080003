package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.InsecureSkipVerify, "TLS verification must be on by default")
	assert.False(t, cfg.BrowserFallback)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxContentSize)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, "whisper", cfg.TranscribeBackend)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 10*time.Minute, cfg.InvocationTimeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DOCBRIDGE_INSECURE_SKIP_VERIFY", "true")
	t.Setenv("DOCBRIDGE_MAX_TOKENS", "256")
	t.Setenv("DOCBRIDGE_HTTP_TIMEOUT", "5s")
	t.Setenv("DOCBRIDGE_TRANSCRIBE_BACKEND", "openai")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, 256, cfg.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "openai", cfg.TranscribeBackend)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestConfig_With(t *testing.T) {
	cfg := Config{}.WithMaxTokens(128).WithWorkers(0).WithInsecureSkipVerify(true)

	assert.Equal(t, 128, cfg.MaxTokens)
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.InsecureSkipVerify)
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "LogFormat"},
		{"backend", func(c *Config) { c.TranscribeBackend = "vosk" }, "TranscribeBackend"},
		{"max tokens", func(c *Config) { c.MaxTokens = -5 }, "MaxTokens"},
		{"workers", func(c *Config) { c.Workers = -1 }, "Workers"},
		{"port", func(c *Config) { c.Port = 70000 }, "Port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("DOCBRIDGE_TRANSCRIBE_BACKEND", "vosk")

	_, err := Load()
	assert.Error(t, err)
}

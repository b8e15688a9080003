package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the environment configuration shared by every subcommand.
// Positional arguments always take precedence over these values.
type Config struct {
	LogFormat string `env:"LOG_FORMAT" env-default:"text" env-description:"Log output format (text or json)"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info" env-description:"Log level (debug, info, warn, error)"`

	MarkitdownPath  string `env:"DOCBRIDGE_MARKITDOWN_PATH" env-description:"Path to the markitdown binary (default: looked up in PATH)"`
	BrowserFallback bool   `env:"DOCBRIDGE_BROWSER_FALLBACK" env-default:"false" env-description:"Render HTML with a headless browser when static extraction finds nothing"`

	InsecureSkipVerify bool          `env:"DOCBRIDGE_INSECURE_SKIP_VERIFY" env-default:"false" env-description:"Disable TLS certificate verification for outbound requests made by docbridge"`
	HTTPTimeout        time.Duration `env:"DOCBRIDGE_HTTP_TIMEOUT" env-default:"30s" env-description:"Timeout for outbound HTTP requests"`
	MaxContentSize     int64         `env:"DOCBRIDGE_MAX_CONTENT_SIZE" env-default:"10485760" env-description:"Maximum size in bytes of a fetched URL body"`
	MaxRedirects       int           `env:"DOCBRIDGE_MAX_REDIRECTS" env-default:"10" env-description:"Maximum number of redirects to follow"`
	UserAgent          string        `env:"DOCBRIDGE_USER_AGENT" env-default:"Mozilla/5.0 (compatible; docbridge/1.0)" env-description:"User agent for outbound HTTP requests"`

	MaxTokens int `env:"DOCBRIDGE_MAX_TOKENS" env-default:"512" env-description:"Default token budget per chunk"`

	TranscribeBackend string `env:"DOCBRIDGE_TRANSCRIBE_BACKEND" env-default:"whisper" env-description:"Transcription backend (whisper or openai)"`
	WhisperPath       string `env:"DOCBRIDGE_WHISPER_PATH" env-description:"Path to the whisper binary (default: looked up in PATH)"`
	WhisperModel      string `env:"DOCBRIDGE_WHISPER_MODEL" env-default:"turbo" env-description:"Whisper model name"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" env-description:"API key for the openai transcription backend"`
	OpenAIModel       string `env:"DOCBRIDGE_OPENAI_MODEL" env-default:"whisper-1" env-description:"Model for the openai transcription backend"`
	OpenAIBaseURL     string `env:"DOCBRIDGE_OPENAI_BASE_URL" env-default:"https://api.openai.com/v1" env-description:"Base URL of an OpenAI-compatible API"`

	Workers           int           `env:"DOCBRIDGE_WORKERS" env-default:"4" env-description:"Concurrent bridge processes for batch runs"`
	InvocationTimeout time.Duration `env:"DOCBRIDGE_INVOCATION_TIMEOUT" env-default:"10m" env-description:"Timeout applied by callers to one bridge process"`
	Port              int           `env:"PORT" env-default:"8080" env-description:"HTTP port for the MCP server"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values no subcommand could run with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.TranscribeBackend, validation.In("whisper", "openai")),
		validation.Field(&c.MaxTokens, validation.Min(1)),
		validation.Field(&c.MaxRedirects, validation.Min(0)),
		validation.Field(&c.MaxContentSize, validation.Min(int64(1))),
		validation.Field(&c.Workers, validation.Min(1)),
		validation.Field(&c.HTTPTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
	)
}

// WithMaxTokens sets the default chunk budget
func (c Config) WithMaxTokens(n int) Config {
	c.MaxTokens = n
	return c
}

// WithWorkers sets the batch worker count
func (c Config) WithWorkers(n int) Config {
	if n < 1 {
		n = 1
	}
	c.Workers = n
	return c
}

// WithInsecureSkipVerify toggles TLS verification for outbound requests
func (c Config) WithInsecureSkipVerify(skip bool) Config {
	c.InsecureSkipVerify = skip
	return c
}

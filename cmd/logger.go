package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog"

	"github.com/kfreiman/docbridge/internal/config"
)

// createLogger creates a slog logger from the configuration. Logs always go
// to stderr because stdout carries the result frame.
func createLogger(conf config.Config) *slog.Logger {
	var level slog.Level
	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var zerologLogger zerolog.Logger
	if conf.LogFormat == "json" {
		zerologLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		zerologLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Caller().Logger()
	}

	handler := slogzerolog.Option{
		Level:  level,
		Logger: &zerologLogger,
	}.NewZerologHandler()

	logger := slog.New(handler)

	log.SetFlags(0)
	log.SetOutput(os.Stderr)
	slog.SetDefault(logger)

	return logger
}

// loadConfig reads the environment and builds the logger. An invalid
// environment still yields a usable stderr logger.
func loadConfig(ctx context.Context) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		logger := createLogger(config.Config{LogFormat: "text", LogLevel: "info"})
		logger.ErrorContext(ctx, "failed to load config", "error", err)
		return cfg, logger, fmt.Errorf("load config: %w", err)
	}
	return cfg, createLogger(cfg), nil
}

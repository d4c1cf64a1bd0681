// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"mercator-hq/ganymede/pkg/config"
)

// Setup builds a slog.Logger from the logging configuration and installs it
// as the process default. The handler reads its level from the supplied
// LevelVar, so level changes applied by the config watcher take effect
// without rebuilding the logger.
//
// If w is nil, output goes to stdout.
func Setup(cfg *config.LoggingConfig, level *slog.LevelVar, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stdout
	}

	if level == nil {
		level = &slog.LevelVar{}
		parsed, err := config.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level.Set(parsed)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

package contract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the minimum log level to write
	Level slog.Level
	// Format is text or json
	Format string
	// Writer defaults to os.Stderr so stdout stays clean for reports
	Writer io.Writer
}

// NewLogger builds a logger from the given configuration.
func NewLogger(cfg LogConfig) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// InitLogger sets the process-wide logger. Only the first call has an effect.
func InitLogger(cfg LogConfig) *slog.Logger {
	loggerOnce.Do(func() {
		logger = NewLogger(cfg)
	})
	return logger
}

// GetLogger returns the process-wide logger, or a discarding logger before InitLogger runs.
func GetLogger() *slog.Logger {
	if logger == nil {
		return DiscardLogger()
	}
	return logger
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLogLevel parses debug, info, warn or error. An empty value means info.
func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", raw)
	}
}

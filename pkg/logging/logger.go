// Package logging provides the process-wide structured logger for recfile.
//
// It wraps log/slog. Init configures the level, format and destination once at
// startup; GetLogger lazily falls back to an INFO text logger on stderr so that
// packages may log before Init runs.
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug}); err != nil {
//	    return err
//	}
//	logging.WithComponent("store").Info("opened", "file", path)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	logger   *slog.Logger
	loggerMu sync.RWMutex
	logFile  *os.File
)

// LogLevel represents logging verbosity
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	Format     string    // "json" or "text"
	OutputPath string    // empty for Writer
	Writer     io.Writer // defaults to stderr
}

// ParseLevel maps a level name to a slog level, defaulting to INFO
func ParseLevel(level LogLevel) slog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init replaces the global logger. Any log file opened by a previous Init is
// closed.
func Init(config Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}

	var file *os.File
	if config.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writer = f
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(config.Level)}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	logger = slog.New(handler)
	return nil
}

// Close closes the log file, if any, and resets to the default logger
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	var err error
	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}
	logger = nil
	return err
}

// GetLogger returns the global logger
func GetLogger() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

// WithComponent creates a logger tagged with a subsystem name
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithFile creates a logger tagged with a data file path
func WithFile(path string) *slog.Logger {
	return GetLogger().With("file", path)
}

// Discard returns a logger that drops everything, for tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

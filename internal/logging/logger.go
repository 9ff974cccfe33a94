// Package logging wraps zerolog for application-wide structured logging.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog for application logging.
type Logger struct {
	zerolog.Logger
	rotator     *lumberjack.Logger
	broadcaster *RingBroadcaster
}

// Config holds logger configuration.
type Config struct {
	Level           string
	Format          string // "console" or "json"
	Path            string // directory for log files; empty disables file logging
	MaxSizeMB       int
	MaxBackups      int
	MaxAgeDays      int
	Compress        bool
	EnableStreaming bool
	BufferSize      int
}

// New creates a new logger instance from cfg.
func New(cfg Config) *Logger {
	consoleOutput := newConsoleOutput(cfg.Format)
	level := parseLevel(cfg.Level)

	output := consoleOutput
	var rotator *lumberjack.Logger
	var ring *RingBroadcaster

	if cfg.Path != "" {
		rotator, output = setupFileLogging(cfg, consoleOutput)
	}

	if cfg.EnableStreaming {
		ring = NewRingBroadcaster(cfg.BufferSize)
		output = io.MultiWriter(output, ring)
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()

	return &Logger{Logger: logger, rotator: rotator, broadcaster: ring}
}

func newConsoleOutput(format string) io.Writer {
	if format == "json" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}

func setupFileLogging(cfg Config, consoleOutput io.Writer) (*lumberjack.Logger, io.Writer) {
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "logging: failed to create log directory %s: %v\n", cfg.Path, err)
		return nil, consoleOutput
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Path, "orchestrd.log"),
		MaxSize:    positiveOrDefault(cfg.MaxSizeMB, 10),
		MaxBackups: positiveOrDefault(cfg.MaxBackups, 5),
		MaxAge:     positiveOrDefault(cfg.MaxAgeDays, 30),
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	fileWriter := zerolog.ConsoleWriter{Out: rotator, TimeFormat: time.RFC3339, NoColor: true}
	return rotator, io.MultiWriter(consoleOutput, fileWriter)
}

func positiveOrDefault(val, def int) int {
	if val <= 0 {
		return def
	}
	return val
}

// Close closes the rotated log file, if one is open.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// RecentLogs returns buffered log lines from the ring broadcaster, if streaming is enabled.
func (l *Logger) RecentLogs() []string {
	if l.broadcaster == nil {
		return nil
	}
	return l.broadcaster.Recent()
}

// WithComponent returns a derived logger tagged with a component field.
func (l *Logger) WithComponent(component string) zerolog.Logger {
	return l.Logger.With().Str("component", component).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

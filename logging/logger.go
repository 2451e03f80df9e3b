package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/vivooifo-droid/defacto-backend/config"
)

var (
	mu           sync.RWMutex
	globalLogger = zerolog.Nop()
)

// Format names
const (
	FormatHuman = "human"
	FormatJSON  = "json"
)

// New builds a logger from cfg. Records go to out (stderr when nil) in the
// configured format and, when cfg.File is set, as JSON lines to a rotating
// file. The returned closer releases the file and is never nil.
func New(cfg config.LoggingConfig, out io.Writer, noColor bool) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, FormatHuman) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: noColor}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
		out = zerolog.MultiLevelWriter(out, fileLogger)
		closer = fileLogger
	}

	return NewLogger(level, out), closer, nil
}

// NewLogger creates a zerolog logger writing JSON records at or above level.
func NewLogger(level zerolog.Level, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stderr
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// ParseLevel accepts zerolog level names in any case; "" means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

// SetGlobal replaces the process-wide logger returned by GetLogger.
func SetGlobal(l zerolog.Logger) {
	mu.Lock()
	globalLogger = l
	mu.Unlock()
}

// GetLogger returns the global logger instance. It discards everything until
// SetGlobal is called.
func GetLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// WithComponent returns a logger with the component field set
func WithComponent(component string) zerolog.Logger {
	return GetLogger().With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

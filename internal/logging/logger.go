// Package logging provides structured logging with file output support.
// It uses environment variables for configuration and supports file cleanup.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// FileName is the log file written inside the configuration directory.
const FileName = "siglocate.log"

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(levelFromEnv())

	prefix := os.Getenv("SIGLOCATE_LOG_PREFIX")
	if prefix == "" {
		prefix = "siglocate "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a new logger based on environment variables
// SIGLOCATE_LOG_LEVEL: debug, info, warn, error (default: info)
// SIGLOCATE_LOG_PREFIX: prefix for log messages (default: "siglocate ")
// SIGLOCATE_LOG_TO_FILE: when set to "1", logs to FileName in dir instead of stderr
func NewLogger(dir string) *LoggerCloser {
	if os.Getenv("SIGLOCATE_LOG_TO_FILE") == "1" {
		if lg, err := NewFileLogger(dir); err == nil {
			return lg
		}
		// If file creation fails, fall back to stderr
	}
	return NewLoggerWithWriter(os.Stderr)
}

// NewFileLogger appends to FileName in dir, creating dir if needed. Lines
// are logfmt so the file stays greppable.
func NewFileLogger(dir string) (*LoggerCloser, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(Path(dir), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	lg := NewLoggerWithWriter(f)
	lg.SetFormatter(log.LogfmtFormatter)
	lg.SetTimeFormat(time.RFC3339)
	return lg, nil
}

// Discard returns a logger that drops everything.
func Discard() *LoggerCloser {
	return NewLoggerWithWriter(io.Discard)
}

// Path returns the log file location for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return os.Getenv("SIGLOCATE_LOG_LEVEL") == "debug"
}

func levelFromEnv() log.Level {
	switch os.Getenv("SIGLOCATE_LOG_LEVEL") {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

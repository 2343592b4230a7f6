// Package logging prefixes log lines with a subsystem tag. The terminal is
// owned by the UI, so Setup sends output to a file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelOff
)

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
	if os.Getenv("DEBUG") == "true" {
		level.Store(int32(LevelDebug))
	}
}

// ParseLevel accepts debug, info, warn and off. Anything else is info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "off", "none":
		return LevelOff
	}
	return LevelInfo
}

func SetLevel(l Level) {
	level.Store(int32(l))
}

// SetOutput redirects every subsystem logger.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Setup opens (appending) the log file at path and makes it the output.
// An empty path discards output. The returned closer releases the file.
func Setup(path string) (io.Closer, error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}

func logf(l Level, subsystem, format string, args ...any) {
	if Level(level.Load()) > l {
		return
	}
	log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
}

// Info logs an informational message
func Info(subsystem, format string, args ...any) {
	logf(LevelInfo, subsystem, format, args...)
}

// Debug logs a debug message (only shown at debug level or with DEBUG=true)
func Debug(subsystem, format string, args ...any) {
	logf(LevelDebug, subsystem, format, args...)
}

// Warn logs a recoverable failure
func Warn(subsystem, format string, args ...any) {
	logf(LevelWarn, subsystem, "WARN "+format, args...)
}

// Truncate shortens s to maxLen for one-line logs
func Truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

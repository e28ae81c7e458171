// Package logging provides the leveled, structured logger used across the service.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
)

// Level is the minimum severity a Logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
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

// Fields is a set of key/value pairs attached to a log line
type Fields map[string]interface{}

// WithField returns a single-entry field set
func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

// WithFields wraps an existing map as a field set
func WithFields(fields map[string]interface{}) Fields {
	return Fields(fields)
}

// Logger writes JSON lines to its output
type Logger struct {
	level Level
	inner *slog.Logger
}

// New creates a logger writing to stderr, so stdout stays free for MCP stdio traffic
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(level Level, w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{level: level, inner: slog.New(handler)}
}

// Level returns the configured minimum level
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(slog.LevelError, msg, fields)
}

func (l *Logger) log(level slog.Level, msg string, fields []Fields) {
	if l == nil || l.inner == nil {
		return
	}
	ctx := context.Background()
	if !l.inner.Enabled(ctx, level) {
		return
	}
	l.inner.LogAttrs(ctx, level, msg, attrs(fields)...)
}

// attrs flattens field sets; later sets win on duplicate keys and keys are sorted for stable output
func attrs(fields []Fields) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	merged := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, merged[k]))
	}
	return out
}

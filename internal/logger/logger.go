// Package logger is the structured logger shared by the training loop, its
// callbacks, the status server and the CLI. Records go through log/slog and
// are rendered by one of three handlers chosen by name.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats understood by FromFormat.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatText   = "text"
)

var ErrUnknownLevel = errors.New("logger: unknown level")

// Logger is the subset of slog.Logger the rest of the module depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

// slogLogger adapts *slog.Logger to Logger. The level methods are promoted
// from the embedded logger.
type slogLogger struct {
	*slog.Logger
}

// New returns a Logger writing through handler.
func New(handler slog.Handler) Logger {
	return slogLogger{slog.New(handler)}
}

func (l slogLogger) With(args ...any) Logger {
	return slogLogger{l.Logger.With(args...)}
}

func (l slogLogger) WithGroup(name string) Logger {
	return slogLogger{l.Logger.WithGroup(name)}
}

// Default is the pretty stderr logger at info level that the CLI falls
// back to when nothing else was configured.
func Default() Logger {
	return Pretty(os.Stderr, slog.LevelInfo)
}

// Discard drops every record. Callbacks use it when built without a logger.
func Discard() Logger {
	return New(slog.DiscardHandler)
}

// JSON writes one object per record, for log shippers.
func JSON(w io.Writer, level slog.Level) Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Text writes logfmt key=value lines.
func Text(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Pretty writes colored single-line records for a terminal.
func Pretty(w io.Writer, level slog.Level) Logger {
	return New(NewPrettyHandler(w, &slog.HandlerOptions{Level: level}))
}

// KnownFormat reports whether FromFormat accepts format by name. The empty
// string selects pretty.
func KnownFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", FormatPretty, FormatJSON, FormatText:
		return true
	}
	return false
}

// FromFormat picks a handler by name, ignoring case. Unknown names fall
// back to pretty.
func FromFormat(w io.Writer, format string, level slog.Level) Logger {
	switch strings.ToLower(format) {
	case FormatJSON:
		return JSON(w, level)
	case FormatText:
		return Text(w, level)
	default:
		return Pretty(w, level)
	}
}

// ParseLevel accepts the slog level names in any case ("debug", "INFO",
// "warn+2"), "warning" as an alias of warn, and "" for info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return level, nil
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying log.
func WithContext(ctx context.Context, log Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored by WithContext, or Default.
func FromContext(ctx context.Context) Logger {
	if log, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return log
	}
	return Default()
}

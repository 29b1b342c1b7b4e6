package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Format selects the log output encoding.
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

var active atomic.Pointer[slog.Logger]

func init() {
	active.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Setup configures the process-wide logger. Level is one of
// debug/info/warn/error; unknown values fall back to info.
func Setup(level string, format Format) {
	SetupWithOutput(level, format, os.Stderr)
}

// SetupWithOutput is Setup with an explicit destination, used by tests.
func SetupWithOutput(level string, format Format, w io.Writer) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch Format(strings.ToLower(string(format))) {
	case JSONFormat:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	active.Store(l)
	slog.SetDefault(l)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) { active.Load().Debug(msg, args...) }
func Info(msg string, args ...any)  { active.Load().Info(msg, args...) }
func Warn(msg string, args ...any)  { active.Load().Warn(msg, args...) }
func Error(msg string, args ...any) { active.Load().Error(msg, args...) }

// DebugCF logs a component-tagged message with structured fields.
func DebugCF(component, msg string, fields map[string]any) {
	active.Load().Debug(msg, fieldArgs(component, fields)...)
}

func InfoCF(component, msg string, fields map[string]any) {
	active.Load().Info(msg, fieldArgs(component, fields)...)
}

func WarnCF(component, msg string, fields map[string]any) {
	active.Load().Warn(msg, fieldArgs(component, fields)...)
}

func ErrorCF(component, msg string, fields map[string]any) {
	active.Load().Error(msg, fieldArgs(component, fields)...)
}

func fieldArgs(component string, fields map[string]any) []any {
	args := make([]any, 0, 2+2*len(fields))
	args = append(args, "component", component)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

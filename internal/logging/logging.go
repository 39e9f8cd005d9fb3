// Package logging provides structured logging using Go's slog package.
//
// Logs go to stderr so that commands which print results (query, export to
// stdout) keep a clean stdout. Events carry a request id on the query path
// and a run id during a decomposition pass.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level is a slog level; only the four named ones are configurable.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	runIDKey
)

var current atomic.Pointer[slog.Logger]

func init() {
	InitLogger(LevelInfo, FormatJSON)
}

// ParseLevel maps a config or flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat maps a config or flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format %q", s)
}

// InitLogger replaces the global logger with one writing to stderr.
func InitLogger(level Level, format Format) {
	InitLoggerTo(os.Stderr, level, format)
}

// InitLoggerTo replaces the global logger with one writing to w. Timestamps
// are RFC3339 in whole seconds.
func InitLoggerTo(w io.Writer, level Level, format Format) {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if format == FormatText {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	current.Store(logger)
	slog.SetDefault(logger)
}

// WithRequestID tags ctx with the id of the HTTP request being served.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id on ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRunID tags ctx with the id of the decomposition run in progress.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// GetRunID returns the run id on ctx, or "".
func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// FromContext returns the global logger with ctx's ids attached.
func FromContext(ctx context.Context) *slog.Logger {
	logger := current.Load()
	if id := GetRequestID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if id := GetRunID(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	return logger
}

func Debug(msg string, args ...any) { current.Load().Debug(msg, args...) }
func Info(msg string, args ...any)  { current.Load().Info(msg, args...) }
func Warn(msg string, args ...any)  { current.Load().Warn(msg, args...) }
func Error(msg string, args ...any) { current.Load().Error(msg, args...) }

func DebugContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

// event logs a named event: the fixed attributes first, then the caller's.
func event(ctx context.Context, level Level, name string, fixed []any, args []any) {
	FromContext(ctx).Log(ctx, level, name, append(fixed, args...)...)
}

// HTTPRequest logs one served request. Server errors log at error level.
func HTTPRequest(ctx context.Context, method, path, remoteAddr string, status int, elapsed time.Duration, args ...any) {
	level := LevelInfo
	if status >= 500 {
		level = LevelError
	}
	event(ctx, level, "http_request", []any{
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", status,
		"duration_ms", elapsed.Milliseconds(),
	}, args)
}

// BatchPhase logs a pipeline phase (ingest, seed, decompose, export)
// starting or finishing.
func BatchPhase(ctx context.Context, phase, state string, args ...any) {
	event(ctx, LevelInfo, "batch_phase", []any{"phase", phase, "state", state}, args)
}

// WordFailure logs a word the pass could not decompose or store. The pass
// goes on.
func WordFailure(ctx context.Context, word, operation string, err error, args ...any) {
	event(ctx, LevelError, "word_failure", []any{"word", word, "operation", operation, "error", err.Error()}, args)
}

func WebSocketEvent(name string, clients int, args ...any) {
	event(context.Background(), LevelInfo, "websocket_event", []any{"event", name, "client_count", clients}, args)
}

func ServerStartup(serverType, protocol string, port int, args ...any) {
	event(context.Background(), LevelInfo, "server_startup", []any{"server_type", serverType, "protocol", protocol, "port", port}, args)
}

// SecurityEvent logs a rejected or noteworthy request at warn level.
func SecurityEvent(name, component string, args ...any) {
	event(context.Background(), LevelWarn, "security_event", []any{"event", name, "component", component}, args)
}

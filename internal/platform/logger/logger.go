// Package logger provides structured JSON logging on top of log/slog.
package logger

import (
	"context"
	"io"
	"log"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLogLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slog() slog.Level {
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

type Logger struct {
	handler slog.Handler
	service string
}

func New(w io.Writer, minLevel Level, service string) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: minLevel.slog(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.TimeValue(a.Value.Time().UTC())
			}
			return a
		},
	})
	return &Logger{
		handler: h.WithAttrs([]slog.Attr{slog.String("service", service)}),
		service: service,
	}
}

func (l *Logger) Log(ctx context.Context, level Level, msg string, args ...any) {
	l.write(ctx, level, msg, args)
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, msg, args)
}

// BuildInfo logs Go version and VCS revision when available.
func (l *Logger) BuildInfo(ctx context.Context) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	args := []any{"go_version", info.GoVersion}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			args = append(args, "revision", s.Value)
		}
	}
	l.Info(ctx, "build info", args...)
}

func (l *Logger) write(ctx context.Context, level Level, msg string, args []any) {
	sl := level.slog()
	if !l.handler.Enabled(ctx, sl) {
		return
	}
	r := slog.NewRecord(time.Now(), sl, msg, 0)
	r.Add(args...)
	_ = l.handler.Handle(ctx, r)
}

// NewStdLogger adapts Logger for consumers that require a *log.Logger,
// such as http.Server.ErrorLog.
func NewStdLogger(l *Logger, level Level) *log.Logger {
	return log.New(stdWriter{l: l, level: level}, "", 0)
}

type stdWriter struct {
	l     *Logger
	level Level
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.l.write(context.Background(), w.level, strings.TrimSpace(string(p)), nil)
	return len(p), nil
}

package logkit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

// Fields represents structured logging fields.
type Fields map[string]any

// Logger is the logging surface shared by the sync pipeline.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	Error(ctx context.Context, err error, fields Fields)
}

type logxLogger struct {
	scope string
}

// New returns a Logger backed by go-zero's logx. scope prefixes every line.
func New(scope string) Logger {
	return &logxLogger{scope: strings.TrimSpace(scope)}
}

// SetLevel adjusts the process-wide logx level from a config string.
func SetLevel(level string) {
	logx.SetLevel(parseLevel(level))
}

func (l *logxLogger) Debug(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Debug(l.format(msg, fields))
}

func (l *logxLogger) Info(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Info(l.format(msg, fields))
}

// Warn goes through logx's slow channel; logx has no dedicated warning level.
func (l *logxLogger) Warn(ctx context.Context, msg string, fields Fields) {
	logx.WithContext(ctx).Slow(l.format(msg, fields))
}

func (l *logxLogger) Error(ctx context.Context, err error, fields Fields) {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	logx.WithContext(ctx).Error(l.format(msg, fields))
}

func (l *logxLogger) format(msg string, fields Fields) string {
	if l.scope != "" {
		msg = l.scope + ": " + msg
	}
	if len(fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return fmt.Sprintf("%s | %s", msg, strings.Join(parts, " "))
}

func parseLevel(level string) uint32 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logx.DebugLevel
	case "info":
		return logx.InfoLevel
	case "error":
		return logx.ErrorLevel
	case "severe", "fatal":
		return logx.SevereLevel
	default:
		return logx.InfoLevel
	}
}

// Nop discards everything; handy in tests.
type Nop struct{}

func (Nop) Debug(context.Context, string, Fields) {}
func (Nop) Info(context.Context, string, Fields)  {}
func (Nop) Warn(context.Context, string, Fields)  {}
func (Nop) Error(context.Context, error, Fields)  {}

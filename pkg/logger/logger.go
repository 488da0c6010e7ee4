// Package logger provides structured logging backed by logrus.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	// RequestIDKey is the context key holding the request id.
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key holding the authenticated user id.
	UserIDKey contextKey = "user_id"
	// RoleKey is the context key holding the authenticated user's role.
	RoleKey contextKey = "role"
)

// Logger wraps a logrus entry pre-populated with the service name.
type Logger struct {
	*logrus.Entry
	service string
}

// New creates a logger for the named service. Level is any logrus level name;
// format is "json" or "text".
func New(service, level, format string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}

	return FromLogrus(base, service)
}

// NewDefault creates an info-level JSON logger.
func NewDefault(service string) *Logger {
	return New(service, "info", "json")
}

// FromLogrus wraps an existing logrus logger. Tests use it with hooks/test.
func FromLogrus(base *logrus.Logger, service string) *Logger {
	return &Logger{
		Entry:   base.WithField("service", service),
		service: service,
	}
}

// Discard returns a logger that writes nowhere.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return FromLogrus(base, "discard")
}

// Service returns the service name the logger was created with.
func (l *Logger) Service() string {
	return l.service
}

// Named returns a child logger for a subcomponent.
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		Entry:   l.Entry.WithField("component", component),
		service: l.service,
	}
}

// WithContext returns an entry carrying the request and user ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Entry.WithContext(ctx)
	if ctx == nil {
		return entry
	}
	if id := GetRequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if id := GetUserID(ctx); id != 0 {
		entry = entry.WithField("user_id", id)
	}
	return entry
}

// LogRequest emits one line per completed HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("request completed")
	case status >= 400:
		entry.Warn("request completed")
	default:
		entry.Info("request completed")
	}
}

// NewRequestID generates a new request id.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID returns the request id from ctx, or "".
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// GetUserID returns the user id from ctx, or 0.
func GetUserID(ctx context.Context) int64 {
	if v, ok := ctx.Value(UserIDKey).(int64); ok {
		return v
	}
	return 0
}

// WithRole stores the authenticated user's role in ctx.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// GetRole returns the role from ctx, or "".
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(RoleKey).(string); ok {
		return v
	}
	return ""
}

// LogSecurityEvent records an auth or abuse related event at warn level.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.WithContext(ctx).WithField("security_event", event).WithFields(logrus.Fields(fields)).Warn("security event")
}

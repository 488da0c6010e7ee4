package logger

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestNew_LevelAndFormat(t *testing.T) {
	l := New("gateway", "debug", "text")
	if l.Logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", l.Logger.GetLevel())
	}
	if _, ok := l.Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.TextFormatter", l.Logger.Formatter)
	}

	l = New("gateway", "nonsense", "json")
	if l.Logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info fallback", l.Logger.GetLevel())
	}
	if _, ok := l.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.JSONFormatter", l.Logger.Formatter)
	}
}

func TestWithContext_Fields(t *testing.T) {
	base, hook := test.NewNullLogger()
	l := FromLogrus(base, "gateway")

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, 42)
	l.WithContext(ctx).Info("hello")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no entry logged")
	}
	if entry.Data["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry.Data["request_id"])
	}
	if entry.Data["user_id"] != int64(42) {
		t.Errorf("user_id = %v, want 42", entry.Data["user_id"])
	}
	if entry.Data["service"] != "gateway" {
		t.Errorf("service = %v, want gateway", entry.Data["service"])
	}
}

func TestLogRequest_LevelByStatus(t *testing.T) {
	base, hook := test.NewNullLogger()
	l := FromLogrus(base, "gateway")

	tests := []struct {
		status int
		want   logrus.Level
	}{
		{http.StatusOK, logrus.InfoLevel},
		{http.StatusNotFound, logrus.WarnLevel},
		{http.StatusInternalServerError, logrus.ErrorLevel},
	}
	for _, tt := range tests {
		l.LogRequest(context.Background(), http.MethodGet, "/x", tt.status, time.Millisecond)
		if got := hook.LastEntry().Level; got != tt.want {
			t.Errorf("status %d logged at %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetUserID(ctx) != 0 || GetRole(ctx) != "" {
		t.Error("empty context should yield zero values")
	}
	if NewRequestID() == NewRequestID() {
		t.Error("request ids should be unique")
	}
}

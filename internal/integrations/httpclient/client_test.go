package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestClient_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{Provider: "test", Retry: fastRetry(), Logger: logger.Discard()})
	req, err := NewJSONRequest(context.Background(), http.MethodPost, srv.URL, map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("NewJSONRequest: %v", err)
	}

	var out struct{ OK bool }
	if err := c.DoJSON(req, "ping", &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if !out.OK {
		t.Error("OK = false, want true")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	for i, b := range bodies {
		if b != `{"a":"b"}` {
			t.Errorf("attempt %d body = %q, want replayed body", i+1, b)
		}
	}
}

func TestClient_NonRetryableStatusIsUpstreamError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{Provider: "garmin", Retry: fastRetry(), Logger: logger.Discard()})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	err := c.DoJSON(req, "token exchange", nil)

	if !apperrors.IsUpstream(err) {
		t.Fatalf("err = %v, want upstream error", err)
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", StatusCode(err))
	}
	if !strings.Contains(err.Error(), "bad code") {
		t.Errorf("error %q should carry the response body", err.Error())
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute})
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	if cb.State() != CircuitClosed {
		t.Fatalf("state = %s, want closed", cb.State())
	}
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	if err := cb.Allow(); err != ErrCircuitOpen {
		t.Fatalf("Allow() = %v, want ErrCircuitOpen", err)
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %s, want half-open", cb.State())
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}

func TestBackoff_RespectsMax(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffMultiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{6, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(cfg, tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

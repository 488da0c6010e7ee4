package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/tools/planner", "/tools"},
		{"/api/resistance-training/programs", "/api/resistance-training/programs"},
		{"/api/resistance-training/programs/17", "/api/resistance-training/programs/:id"},
		{"/api/resistance-training/programs/17/session-results", "/api/resistance-training/programs/:id"},
		{"/api/stripe/checkout-sessions/cs_test_123", "/api/stripe/checkout-sessions/:id"},
		{"/api/admin/users/5/programs", "/api/admin/users/:id"},
	}
	for _, tt := range tests {
		if got := canonicalPath(tt.in); got != tt.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/reference-lifts", "418"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reference-lifts", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/reference-lifts", "418"))

	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(dbLongCheckouts)
	RecordLongCheckout()
	if testutil.ToFloat64(dbLongCheckouts)-before != 1 {
		t.Error("RecordLongCheckout should increment the counter")
	}

	ObserveCheckout(20 * time.Millisecond)

	RecordSyncRun("strava", 3, true)
	if got := testutil.ToFloat64(syncActivities.WithLabelValues("strava")); got < 3 {
		t.Errorf("sync activities = %v, want >= 3", got)
	}

	hitsBefore := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	RecordCacheLookup(true)
	if testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))-hitsBefore != 1 {
		t.Error("RecordCacheLookup(true) should count a hit")
	}
}

func TestHandler(t *testing.T) {
	RecordCacheLookup(false)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "endeavors_cms_cache_lookups_total") {
		t.Error("metrics output missing cms cache counter")
	}
}

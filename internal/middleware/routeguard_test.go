package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const testCookie = "authjs.session-token"

type captured struct {
	called bool
	req    *http.Request
}

func (c *captured) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.req = r
		w.WriteHeader(http.StatusOK)
	})
}

func newGuard() *RouteGuard {
	return NewRouteGuard(config.DefaultRoutesConfig(), testCookie, "test", logger.Discard())
}

func TestRouteGuard_ProtectedWithoutCookieRedirects(t *testing.T) {
	var next captured
	h := newGuard().Handler(next.handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/settings", nil))

	assert.False(t, next.called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/access-redirect?redirect=/user/settings", rec.Header().Get("Location"))
}

func TestRouteGuard_ProtectedBareSegmentRedirects(t *testing.T) {
	var next captured
	h := newGuard().Handler(next.handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.False(t, next.called)
	assert.Equal(t, "/access-redirect?redirect=/admin", rec.Header().Get("Location"))
}

func TestRouteGuard_ProtectedWithCookieInjectsHeaders(t *testing.T) {
	var next captured
	h := newGuard().Handler(next.handler())

	req := httptest.NewRequest(http.MethodGet, "/tools/calculator", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "abc"})
	req.Header.Set("User-Agent", "guard-test")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, next.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", next.req.Header.Get(HeaderEnvironment))
	assert.Equal(t, "203.0.113.9", next.req.Header.Get(HeaderClientIP))
	assert.Equal(t, "guard-test", next.req.Header.Get(HeaderClientUserAgent))
	id := next.req.Header.Get(HeaderRequestID)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, id, logger.GetRequestID(next.req.Context()))
}

func TestRouteGuard_ChunkedCookieCounts(t *testing.T) {
	var next captured
	h := newGuard().Handler(next.handler())

	req := httptest.NewRequest(http.MethodGet, "/guide/start", nil)
	req.AddCookie(&http.Cookie{Name: testCookie + ".0", Value: "part"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, next.called)
}

func TestRouteGuard_EmptyCookieRedirects(t *testing.T) {
	var next captured
	h := newGuard().Handler(next.handler())

	req := httptest.NewRequest(http.MethodGet, "/sales/leads", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: ""})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, next.called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestRouteGuard_PublicRoutes(t *testing.T) {
	tests := []struct {
		path     string
		injected bool
	}{
		{"/", true},
		{"/about", true},
		{"/api/auth/session", true},
		{"/_next/static/chunk.js", true},
		{"/about/team", false},
		{"/api/exercises", false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			var next captured
			h := newGuard().Handler(next.handler())

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.True(t, next.called)
			assert.Equal(t, http.StatusOK, rec.Code)
			if tc.injected {
				assert.Equal(t, "test", next.req.Header.Get(HeaderEnvironment))
				assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
			} else {
				assert.Empty(t, next.req.Header.Get(HeaderEnvironment))
				assert.Empty(t, rec.Header().Get(HeaderRequestID))
			}
		})
	}
}

func TestRouteGuard_ForwardedRequestIDKept(t *testing.T) {
	var next captured
	h := newGuard().Handler(next.handler())

	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", next.req.Header.Get(HeaderRequestID))
	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
}

func TestRouteGuard_RedirectEscapesQueryCharacters(t *testing.T) {
	g := newGuard()
	assert.Equal(t, "/access-redirect?redirect=/user/a%20b", g.redirectTarget("/user/a b"))
	assert.Equal(t, "/access-redirect?redirect=/user/a%26b", g.redirectTarget("/user/a&b"))
}

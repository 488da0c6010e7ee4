package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuard_RequireSession(t *testing.T) {
	m, store := newTestManager(t)
	_, token := signIn(t, m, store, "ada@example.com")
	g := NewGuard(m, logger.Discard())
	h := g.RequireSession(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestWithCookie(m, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestWithCookie(m, token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_AttachStoresSession(t *testing.T) {
	m, store := newTestManager(t)
	u, token := signIn(t, m, store, "ada@example.com")
	g := NewGuard(m, logger.Discard())

	var got *Session
	h := g.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
		assert.Equal(t, u.ID, logger.GetUserID(r.Context()))
	}))
	h.ServeHTTP(httptest.NewRecorder(), requestWithCookie(m, token))
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.UserID)
}

func TestGuard_RequireRole(t *testing.T) {
	m, store := newTestManager(t)
	member, memberToken := signIn(t, m, store, "member@example.com")
	admin, adminToken := signIn(t, m, store, "admin@example.com")
	_, noneToken := signIn(t, m, store, "none@example.com")
	store.SetRole(member.ID, user.RoleUser)
	store.SetRole(admin.ID, user.RoleAdmin)

	g := NewGuard(m, logger.Discard())
	adminOnly := g.RequireRole(user.RoleAdmin)(okHandler())
	usersOnly := g.RequireRole(user.RoleUser)(okHandler())

	cases := []struct {
		name  string
		h     http.Handler
		token string
		want  int
	}{
		{"admin route anonymous", adminOnly, "", http.StatusUnauthorized},
		{"admin route member", adminOnly, memberToken, http.StatusForbidden},
		{"admin route admin", adminOnly, adminToken, http.StatusOK},
		{"user route no role", usersOnly, noneToken, http.StatusForbidden},
		{"user route member", usersOnly, memberToken, http.StatusOK},
		{"user route admin", usersOnly, adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.h.ServeHTTP(w, requestWithCookie(m, tc.token))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestAuthorizeUser(t *testing.T) {
	self := &Session{UserID: 7, Role: user.RoleUser}
	admin := &Session{UserID: 1, Role: user.RoleAdmin}

	assert.NoError(t, AuthorizeUser(self, 7))
	assert.NoError(t, AuthorizeUser(admin, 7))
	assert.True(t, apperrors.IsOwnershipError(AuthorizeUser(self, 8)))
	assert.True(t, apperrors.IsUnauthorized(AuthorizeUser(nil, 7)))
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"":                     "/",
		"/tools/anything":      "/tools/anything",
		"https://evil.example": "/",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"relative":             "/",
	}
	for in, want := range cases {
		if got := SafeRedirect(in); got != want {
			t.Errorf("SafeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAdminAllowlist(t *testing.T) {
	a := NewAdminAllowlist([]string{" Coach@Example.com ", ""})
	assert.True(t, a.Contains("coach@example.com"))
	assert.True(t, a.Contains("COACH@example.com"))
	assert.False(t, a.Contains("athlete@example.com"))
	assert.False(t, a.Contains(""))
}

package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/httputil"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// Resolver resolves the session of a request; nil means unauthenticated.
type Resolver interface {
	Resolve(r *http.Request) (*Session, error)
}

type sessionKey struct{}

// WithSession stores s in ctx along with the logging user and role fields.
func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey{}, s)
	if s != nil {
		ctx = logger.WithUserID(ctx, s.UserID)
		ctx = logger.WithRole(ctx, s.Role)
	}
	return ctx
}

// SessionFromContext returns the session stored by Attach, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// Guard is the single place routes authorize requests.
type Guard struct {
	resolver Resolver
	log      *logger.Logger
}

func NewGuard(resolver Resolver, log *logger.Logger) *Guard {
	if log == nil {
		log = logger.NewDefault("guard")
	}
	return &Guard{resolver: resolver, log: log}
}

// Attach resolves the session once per request and stores it in the context.
func (g *Guard) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(sessionKey{}).(*Session); ok {
			next.ServeHTTP(w, r)
			return
		}
		s, err := g.resolver.Resolve(r)
		if err != nil {
			httputil.WriteError(w, r, g.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// Session returns the request's session, resolving it if Attach did not run.
func (g *Guard) Session(r *http.Request) (*Session, error) {
	if s, ok := r.Context().Value(sessionKey{}).(*Session); ok {
		return s, nil
	}
	return g.resolver.Resolve(r)
}

// RequireSession rejects unauthenticated requests with 401.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return g.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireRole rejects requests whose current role is not role. Admins satisfy
// every role.
func (g *Guard) RequireRole(role string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return g.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := SessionFromContext(r.Context())
			if s.Role != role && !s.IsAdmin() {
				g.log.LogSecurityEvent(r.Context(), "role_denied", map[string]interface{}{
					"required": role,
					"role":     s.Role,
					"path":     r.URL.Path,
				})
				httputil.Error(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// AuthorizeUser allows access to targetUserID's data for that user and admins.
func AuthorizeUser(s *Session, targetUserID int64) error {
	if s == nil {
		return apperrors.ErrUnauthorized
	}
	if s.UserID == targetUserID || s.IsAdmin() {
		return nil
	}
	return apperrors.NewOwnershipError("user", strconv.FormatInt(targetUserID, 10), s.UserID)
}

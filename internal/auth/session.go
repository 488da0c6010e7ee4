// Package auth resolves sessions, authorizes requests and signs users in via
// the hosted identity provider or an emailed magic link.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	"github.com/higher-endeavors/endeavors/internal/crypto"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/httputil"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const (
	issuer          = "higher-endeavors"
	maxCookieChunks = 10
)

// Claims are carried by a session token. Role is informational; the user row
// is authoritative.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Session is a resolved, server-verified login.
type Session struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	token     string
}

// IsAdmin reports whether the session user currently holds the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == user.RoleAdmin
}

// Token returns the raw session token.
func (s *Session) Token() string {
	return s.token
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Manager issues, resolves and revokes sessions.
type Manager struct {
	users    storage.UserStore
	sessions storage.SessionStore
	key      []byte
	ttl      time.Duration
	cookie   string
	secure   bool
	now      func() time.Time
	log      *logger.Logger
}

func NewManager(cfg ManagerConfig, users storage.UserStore, sessions storage.SessionStore, log *logger.Logger) (*Manager, error) {
	key, err := crypto.DeriveKey([]byte(cfg.Secret), crypto.PurposeSession)
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		key:      key,
		ttl:      cfg.TTL,
		cookie:   cfg.CookieName,
		secure:   cfg.Secure,
		now:      time.Now,
		log:      log,
	}, nil
}

// CookieName returns the session cookie name.
func (m *Manager) CookieName() string { return m.cookie }

// Issue signs a session token for u and persists its hash.
func (m *Manager) Issue(ctx context.Context, u user.User, r *http.Request) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}

	sess := user.Session{TokenHash: HashToken(token), UserID: u.ID, ExpiresAt: expires}
	if r != nil {
		sess.IP = httputil.ClientIP(r)
		sess.UserAgent = r.UserAgent()
	}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Resolve returns the request's session, or nil when the request is
// unauthenticated. Only storage failures are errors.
func (m *Manager) Resolve(r *http.Request) (*Session, error) {
	token := m.TokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	ctx := r.Context()

	claims, err := m.parse(token)
	if err != nil {
		m.log.WithContext(ctx).WithError(err).Debug("rejected session token")
		return nil, nil
	}

	if _, err := m.sessions.GetSession(ctx, HashToken(token)); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	u, err := m.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return &Session{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		ExpiresAt: claims.ExpiresAt.Time,
		token:     token,
	}, nil
}

func (m *Manager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Revoke deletes the session row for token.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.sessions.DeleteSession(ctx, HashToken(token))
}

// TokenFromRequest reads the session cookie, or its chunks joined in order
// (<name>.0, <name>.1, ...), falling back to a bearer token.
func (m *Manager) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(m.cookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token := m.chunkedToken(r); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (m *Manager) chunkedToken(r *http.Request) string {
	var b strings.Builder
	for i := 0; i < maxCookieChunks; i++ {
		c, err := r.Cookie(m.cookie + "." + strconv.Itoa(i))
		if err != nil || c.Value == "" {
			break
		}
		b.WriteString(c.Value)
	}
	return b.String()
}

// SetCookie writes the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie and its first chunk.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	for _, name := range []string{m.cookie, m.cookie + ".0"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// HashToken is the persisted form of a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

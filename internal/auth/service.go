package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// Issued is the outcome of a successful sign-in.
type Issued struct {
	User      user.User
	Token     string
	ExpiresAt time.Time
	Redirect  string
}

// Authenticator turns provider identities into users and sessions.
type Authenticator struct {
	users    storage.UserStore
	sessions *Manager
	admins   AdminAllowlist
	cognito  *Cognito
	magic    *MagicLinks
	log      *logger.Logger
}

// NewAuthenticator wires sign-in. cognito and magic may be nil when the
// corresponding method is not configured.
func NewAuthenticator(users storage.UserStore, sessions *Manager, admins AdminAllowlist, cognito *Cognito, magic *MagicLinks, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Authenticator{
		users:    users,
		sessions: sessions,
		admins:   admins,
		cognito:  cognito,
		magic:    magic,
		log:      log,
	}
}

// Sessions returns the session manager.
func (a *Authenticator) Sessions() *Manager { return a.sessions }

// SignIn upserts the user behind id and issues a session. Allowlisted emails
// are promoted to admin.
func (a *Authenticator) SignIn(ctx context.Context, id user.Identity, r *http.Request) (Issued, error) {
	promote := a.admins.Contains(id.Email)
	u, err := a.users.UpsertIdentity(ctx, id, promote)
	if err != nil {
		return Issued{}, err
	}
	token, expires, err := a.sessions.Issue(ctx, u, r)
	if err != nil {
		return Issued{}, err
	}
	a.log.WithContext(ctx).WithFields(map[string]interface{}{
		"user_id":  u.ID,
		"provider": id.Provider,
		"role":     u.Role,
	}).Info("user signed in")
	return Issued{User: u, Token: token, ExpiresAt: expires}, nil
}

// CognitoSignInURL returns the hosted UI URL.
func (a *Authenticator) CognitoSignInURL(redirect string) (string, error) {
	if a.cognito == nil {
		return "", apperrors.NewNotFoundError("sign-in method", ProviderCognito)
	}
	return a.cognito.SignInURL(redirect)
}

// CompleteCognito finishes a hosted UI sign-in.
func (a *Authenticator) CompleteCognito(ctx context.Context, code, state string, r *http.Request) (Issued, error) {
	if a.cognito == nil {
		return Issued{}, apperrors.NewNotFoundError("sign-in method", ProviderCognito)
	}
	id, redirect, err := a.cognito.Exchange(ctx, code, state)
	if err != nil {
		return Issued{}, err
	}
	issued, err := a.SignIn(ctx, id, r)
	issued.Redirect = redirect
	return issued, err
}

// RequestMagicLink emails a sign-in link.
func (a *Authenticator) RequestMagicLink(ctx context.Context, address, redirect string) error {
	if a.magic == nil {
		return apperrors.NewNotFoundError("sign-in method", ProviderEmail)
	}
	return a.magic.Send(ctx, address, redirect)
}

// VerifyMagicLink signs in the owner of a link token.
func (a *Authenticator) VerifyMagicLink(ctx context.Context, token string, r *http.Request) (Issued, error) {
	if a.magic == nil {
		return Issued{}, apperrors.NewNotFoundError("sign-in method", ProviderEmail)
	}
	id, redirect, err := a.magic.Verify(token)
	if err != nil {
		return Issued{}, err
	}
	issued, err := a.SignIn(ctx, id, r)
	issued.Redirect = redirect
	return issued, err
}

// SignOut revokes the request's session token.
func (a *Authenticator) SignOut(ctx context.Context, r *http.Request) error {
	return a.sessions.Revoke(ctx, a.sessions.TokenFromRequest(r))
}

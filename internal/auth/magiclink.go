package auth

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	"github.com/higher-endeavors/endeavors/internal/crypto"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/email"
)

// ProviderEmail is the auth_provider value of magic link sign-ins.
const ProviderEmail = "email"

const (
	magicAudience = "magic-link"
	verifyPath    = "/api/auth/email/verify"
)

type magicClaims struct {
	Email    string `json:"email"`
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

// MagicLinks signs and verifies emailed sign-in links.
type MagicLinks struct {
	key     []byte
	ttl     time.Duration
	baseURL string
	sender  email.Sender
	now     func() time.Time
}

func NewMagicLinks(secret string, ttl time.Duration, baseURL string, sender email.Sender) (*MagicLinks, error) {
	key, err := crypto.DeriveKey([]byte(secret), crypto.PurposeMagicLink)
	if err != nil {
		return nil, fmt.Errorf("magic link key: %w", err)
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MagicLinks{
		key:     key,
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		sender:  sender,
		now:     time.Now,
	}, nil
}

// Send emails a sign-in link for address.
func (m *MagicLinks) Send(ctx context.Context, address, redirect string) error {
	parsed, err := mail.ParseAddress(strings.TrimSpace(address))
	if err != nil {
		return apperrors.NewValidationError("email", "invalid email address")
	}
	addr := user.NormalizeEmail(parsed.Address)

	now := m.now()
	claims := magicClaims{
		Email:    addr,
		Redirect: SafeRedirect(redirect),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{magicAudience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return fmt.Errorf("sign magic link: %w", err)
	}

	link := m.baseURL + verifyPath + "?token=" + url.QueryEscape(token)
	minutes := int(m.ttl.Minutes())
	return m.sender.Send(ctx, email.Message{
		To:      addr,
		Subject: "Sign in to Higher Endeavors",
		Text:    fmt.Sprintf("Use this link to sign in. It expires in %d minutes.\n\n%s\n", minutes, link),
		HTML:    fmt.Sprintf(`<p>Use this link to sign in. It expires in %d minutes.</p><p><a href="%s">Sign in</a></p>`, minutes, link),
	})
}

// Verify checks a link token and returns the identity and redirect it carries.
func (m *MagicLinks) Verify(token string) (user.Identity, string, error) {
	if token == "" {
		return user.Identity{}, "", apperrors.RequiredError("token")
	}
	claims := &magicClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(magicAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.Email == "" {
		return user.Identity{}, "", apperrors.NewValidationError("token", "invalid or expired sign-in link")
	}
	return user.Identity{
		Provider: ProviderEmail,
		Subject:  claims.Email,
		Email:    claims.Email,
	}, SafeRedirect(claims.Redirect), nil
}

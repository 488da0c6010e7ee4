// Package devices links Garmin and Strava accounts and mirrors their
// activities.
package devices

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	"github.com/higher-endeavors/endeavors/internal/crypto"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/strava"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// GarminAPI is the Garmin Connect surface the service uses.
type GarminAPI interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	UserID(ctx context.Context, accessToken string) (string, error)
	Deregister(ctx context.Context, accessToken string) error
}

// StravaAPI is the Strava surface the service uses.
type StravaAPI interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (strava.Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Activities(ctx context.Context, accessToken string, since time.Time) ([]device.Activity, error)
	Deauthorize(ctx context.Context, accessToken string) error
}

const (
	stateMaxAge     = 10 * time.Minute
	initialLookback = 30 * 24 * time.Hour
	// Strava filters on start time, so late uploads need an overlapping window.
	syncOverlap = 24 * time.Hour
	refreshSkew     = time.Minute
)

// Service owns device connections. Either provider may be nil when it is
// not configured.
type Service struct {
	store  storage.DeviceStore
	garmin GarminAPI
	strava StravaAPI
	state  *crypto.Sealer
	tokens *crypto.Sealer
	now    func() time.Time
	log    *logger.Logger
}

// New constructs the service. secret seeds the keys for OAuth state and
// tokens at rest.
func New(store storage.DeviceStore, garmin GarminAPI, strava StravaAPI, secret []byte, log *logger.Logger) (*Service, error) {
	state, err := crypto.NewSealer(secret, crypto.PurposeOAuthState)
	if err != nil {
		return nil, err
	}
	tokens, err := crypto.NewSealer(secret, crypto.PurposeTokenAtRest)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewDefault("devices")
	}
	return &Service{
		store:  store,
		garmin: garmin,
		strava: strava,
		state:  state,
		tokens: tokens,
		now:    time.Now,
		log:    log,
	}, nil
}

// Statuses reports each provider's connection state for the user.
func (s *Service) Statuses(ctx context.Context, userID int64) ([]device.Status, error) {
	conns, err := s.store.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []device.Status{
		{Provider: device.ProviderGarmin, Configured: s.garmin != nil},
		{Provider: device.ProviderStrava, Configured: s.strava != nil},
	}
	for i := range out {
		for _, c := range conns {
			if c.Provider == out[i].Provider && c.Active {
				out[i].Connected = true
				out[i].LastSyncAt = c.LastSyncAt
			}
		}
	}
	return out, nil
}

// Activities lists the user's mirrored activities.
func (s *Service) Activities(ctx context.Context, userID int64, f device.ActivityFilter) ([]device.Activity, error) {
	if f.Provider != "" && f.Provider != device.ProviderGarmin && f.Provider != device.ProviderStrava {
		return nil, apperrors.NewValidationError("provider", "must be garmin or strava")
	}
	return s.store.ListActivities(ctx, userID, f)
}

// saveGrant stores a new active connection with sealed tokens.
func (s *Service) saveGrant(ctx context.Context, userID int64, provider, providerUserID string, tok *oauth2.Token, scopes []string) (device.Connection, error) {
	access, err := s.seal(tok.AccessToken)
	if err != nil {
		return device.Connection{}, err
	}
	refresh, err := s.seal(tok.RefreshToken)
	if err != nil {
		return device.Connection{}, err
	}
	conn, err := s.store.SaveConnection(ctx, device.Connection{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: expiry(tok),
		Scopes:         scopes,
		Active:         true,
	})
	if err != nil {
		return device.Connection{}, err
	}
	s.log.WithContext(ctx).WithField("provider", provider).Info("device connected")
	return conn, nil
}

// accessToken returns a usable access token for conn, refreshing and
// persisting new tokens when the stored one is about to expire.
func (s *Service) accessToken(ctx context.Context, conn device.Connection, refresh func(context.Context, string) (*oauth2.Token, error)) (string, error) {
	access, err := s.open(conn.AccessToken)
	if err != nil {
		return "", err
	}
	if conn.TokenExpiresAt == nil || s.now().Add(refreshSkew).Before(*conn.TokenExpiresAt) {
		return access, nil
	}
	refreshToken, err := s.open(conn.RefreshToken)
	if err != nil || refreshToken == "" {
		return access, err
	}

	tok, err := refresh(ctx, refreshToken)
	if err != nil {
		return "", apperrors.NewUpstreamError(conn.Provider, "refresh token", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	sealedAccess, err := s.seal(tok.AccessToken)
	if err != nil {
		return "", err
	}
	sealedRefresh, err := s.seal(tok.RefreshToken)
	if err != nil {
		return "", err
	}
	if err := s.store.UpdateConnectionTokens(ctx, conn.ID, sealedAccess, sealedRefresh, expiry(tok)); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (s *Service) seal(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	return s.tokens.SealString(token, nil)
}

func (s *Service) open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	return s.tokens.OpenString(sealed, nil)
}

func expiry(tok *oauth2.Token) *time.Time {
	if tok.Expiry.IsZero() {
		return nil
	}
	t := tok.Expiry.UTC()
	return &t
}

func notConfigured(provider string) error {
	return apperrors.NewNotFoundError("device provider", provider)
}

package devices

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/garmin"
)

// GarminAuthURL starts a PKCE authorization for the signed-in user.
func (s *Service) GarminAuthURL(email string) (string, error) {
	if s.garmin == nil {
		return "", notConfigured(device.ProviderGarmin)
	}
	verifier := oauth2.GenerateVerifier()
	state, err := s.sealState(device.ProviderGarmin, email, verifier)
	if err != nil {
		return "", err
	}
	return s.garmin.AuthCodeURL(state, verifier), nil
}

// GarminCallback finishes authorization and stores the connection.
func (s *Service) GarminCallback(ctx context.Context, userID int64, email, code, state string) (device.Connection, error) {
	if s.garmin == nil {
		return device.Connection{}, notConfigured(device.ProviderGarmin)
	}
	st, err := s.openState(device.ProviderGarmin, state, email)
	if err != nil {
		return device.Connection{}, err
	}
	if code == "" {
		return device.Connection{}, apperrors.RequiredError("code")
	}

	tok, err := s.garmin.Exchange(ctx, code, st.Verifier)
	if err != nil {
		return device.Connection{}, apperrors.NewUpstreamError(device.ProviderGarmin, "exchange code", err)
	}
	garminUserID, err := s.garmin.UserID(ctx, tok.AccessToken)
	if err != nil {
		return device.Connection{}, err
	}
	return s.saveGrant(ctx, userID, device.ProviderGarmin, garminUserID, tok, nil)
}

// GarminDisconnect revokes consent with Garmin when it can, then clears the
// local connection whatever the remote outcome was. It reports whether an
// active connection existed.
func (s *Service) GarminDisconnect(ctx context.Context, userID int64) (bool, error) {
	log := s.log.WithContext(ctx).WithField("provider", device.ProviderGarmin)

	conn, err := s.store.GetActiveConnection(ctx, userID, device.ProviderGarmin)
	switch {
	case apperrors.IsNotFound(err):
		return false, nil
	case err != nil:
		return false, err
	}

	if s.garmin != nil {
		access, err := s.accessToken(ctx, conn, s.garmin.Refresh)
		if err == nil && access != "" {
			err = s.garmin.Deregister(ctx, access)
		}
		if err != nil {
			log.WithError(err).Warn("garmin deregistration failed; clearing connection locally")
		}
	}

	return s.store.DeactivateConnection(ctx, userID, device.ProviderGarmin)
}

// GarminPush stores activity summaries pushed by Garmin. Summaries for users
// without an active connection are skipped.
func (s *Service) GarminPush(ctx context.Context, body []byte) (int, error) {
	pushed := garmin.ParseActivityPush(body)
	if len(pushed) == 0 {
		return 0, nil
	}

	conns := make(map[string]*device.Connection)
	var acts []device.Activity
	for _, p := range pushed {
		conn, seen := conns[p.GarminUserID]
		if !seen {
			c, err := s.store.FindActiveConnectionByProviderUser(ctx, device.ProviderGarmin, p.GarminUserID)
			switch {
			case apperrors.IsNotFound(err):
				conn = nil
			case err != nil:
				return 0, err
			default:
				conn = &c
			}
			conns[p.GarminUserID] = conn
		}
		if conn == nil {
			continue
		}
		a := p.Activity
		a.UserID = conn.UserID
		a.ConnectionID = conn.ID
		a.SyncedAt = s.now().UTC()
		acts = append(acts, a)
	}
	if len(acts) == 0 {
		return 0, nil
	}
	n, err := s.store.UpsertActivities(ctx, acts)
	if err != nil {
		return 0, err
	}
	for _, c := range conns {
		if c != nil {
			if err := s.store.MarkSynced(ctx, c.ID, s.now().UTC()); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

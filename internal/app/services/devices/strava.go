package devices

import (
	"context"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/internal/app/metrics"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/integrations/strava"
)

// StravaAuthURL starts authorization for the signed-in user.
func (s *Service) StravaAuthURL(email string) (string, error) {
	if s.strava == nil {
		return "", notConfigured(device.ProviderStrava)
	}
	state, err := s.sealState(device.ProviderStrava, email, "")
	if err != nil {
		return "", err
	}
	return s.strava.AuthCodeURL(state), nil
}

// StravaCallback finishes authorization and stores the connection.
func (s *Service) StravaCallback(ctx context.Context, userID int64, email, code, state string) (device.Connection, error) {
	if s.strava == nil {
		return device.Connection{}, notConfigured(device.ProviderStrava)
	}
	if _, err := s.openState(device.ProviderStrava, state, email); err != nil {
		return device.Connection{}, err
	}
	if code == "" {
		return device.Connection{}, apperrors.RequiredError("code")
	}
	grant, err := s.strava.Exchange(ctx, code)
	if err != nil {
		return device.Connection{}, apperrors.NewUpstreamError(device.ProviderStrava, "exchange code", err)
	}
	return s.saveGrant(ctx, userID, device.ProviderStrava, grant.AthleteID, grant.Token, strava.Scopes)
}

// SyncUser pulls new Strava activities for one user.
func (s *Service) SyncUser(ctx context.Context, userID int64) (int, error) {
	if s.strava == nil {
		return 0, notConfigured(device.ProviderStrava)
	}
	conn, err := s.store.GetActiveConnection(ctx, userID, device.ProviderStrava)
	if err != nil {
		return 0, err
	}
	return s.SyncConnection(ctx, conn)
}

// SyncTargets lists the connections a periodic sync pass pulls from.
// Garmin pushes its activities and is not polled.
func (s *Service) SyncTargets(ctx context.Context) ([]device.Connection, error) {
	if s.strava == nil {
		return nil, nil
	}
	return s.store.ListActiveConnections(ctx, device.ProviderStrava)
}

// SyncConnection pulls activities started within a day before the last
// sync, or the last thirty days on a first sync, and upserts them.
// Activities seen twice are deduplicated by the upsert.
func (s *Service) SyncConnection(ctx context.Context, conn device.Connection) (n int, err error) {
	defer func() { metrics.RecordSyncRun(conn.Provider, n, err == nil) }()

	if conn.Provider != device.ProviderStrava {
		return 0, apperrors.NewValidationError("provider", "only strava connections are polled")
	}
	if s.strava == nil {
		return 0, notConfigured(device.ProviderStrava)
	}

	access, err := s.accessToken(ctx, conn, s.strava.Refresh)
	if err != nil {
		return 0, err
	}
	started := s.now().UTC()
	since := started.Add(-initialLookback)
	if conn.LastSyncAt != nil {
		since = conn.LastSyncAt.Add(-syncOverlap)
	}

	acts, err := s.strava.Activities(ctx, access, since)
	if err != nil {
		return 0, err
	}
	for i := range acts {
		acts[i].UserID = conn.UserID
		acts[i].ConnectionID = conn.ID
		acts[i].SyncedAt = started
	}
	if len(acts) > 0 {
		if n, err = s.store.UpsertActivities(ctx, acts); err != nil {
			return 0, err
		}
	}
	if err := s.store.MarkSynced(ctx, conn.ID, started); err != nil {
		return n, err
	}
	s.log.WithContext(ctx).WithField("connection_id", conn.ID).WithField("activities", n).Debug("strava sync complete")
	return n, nil
}

// StravaDisconnect deauthorizes best-effort, then clears the connection.
func (s *Service) StravaDisconnect(ctx context.Context, userID int64) (bool, error) {
	conn, err := s.store.GetActiveConnection(ctx, userID, device.ProviderStrava)
	switch {
	case apperrors.IsNotFound(err):
		return false, nil
	case err != nil:
		return false, err
	}

	if s.strava != nil {
		access, err := s.accessToken(ctx, conn, s.strava.Refresh)
		if err == nil && access != "" {
			err = s.strava.Deauthorize(ctx, access)
		}
		if err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("strava deauthorization failed; clearing connection locally")
		}
	}
	return s.store.DeactivateConnection(ctx, userID, device.ProviderStrava)
}

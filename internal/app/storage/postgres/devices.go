package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/internal/database"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

const connectionColumns = `connection_id, user_id, provider, provider_user_id, access_token, refresh_token,
	token_expires_at, scopes, is_active, last_sync_at, created_at, updated_at`

const activityColumns = `activity_id, connection_id, user_id, provider, external_id, activity_type, name,
	start_time, duration_seconds, distance_meters, calories, avg_heart_rate, raw, synced_at`

// SaveConnection deactivates any active row for the user and provider, then
// inserts c as the active connection.
func (s *Store) SaveConnection(ctx context.Context, c device.Connection) (device.Connection, error) {
	scopes := c.Scopes
	if scopes == nil {
		scopes = pq.StringArray{}
	}
	var out device.Connection
	err := s.pool.WithTx(ctx, func(tx database.Queryer) error {
		if _, err := tx.Exec(ctx, `
			UPDATE device_connections
			SET is_active = FALSE, access_token = '', refresh_token = '', updated_at = now()
			WHERE user_id = $1 AND provider = $2 AND is_active
		`, c.UserID, c.Provider); err != nil {
			return err
		}
		return tx.Get(ctx, &out, `
			INSERT INTO device_connections
				(user_id, provider, provider_user_id, access_token, refresh_token, token_expires_at, scopes, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			RETURNING `+connectionColumns,
			c.UserID, c.Provider, c.ProviderUserID, c.AccessToken, c.RefreshToken, c.TokenExpiresAt, scopes)
	})
	if err != nil {
		return device.Connection{}, err
	}
	return out, nil
}

func (s *Store) GetActiveConnection(ctx context.Context, userID int64, provider string) (device.Connection, error) {
	var c device.Connection
	err := s.pool.Get(ctx, &c, `
		SELECT `+connectionColumns+` FROM device_connections
		WHERE user_id = $1 AND provider = $2 AND is_active
	`, userID, provider)
	if isNoRows(err) {
		return device.Connection{}, apperrors.NewNotFoundError(provider+" connection", "")
	}
	return c, err
}

func (s *Store) FindActiveConnectionByProviderUser(ctx context.Context, provider, providerUserID string) (device.Connection, error) {
	var c device.Connection
	err := s.pool.Get(ctx, &c, `
		SELECT `+connectionColumns+` FROM device_connections
		WHERE provider = $1 AND provider_user_id = $2 AND is_active
		ORDER BY connection_id DESC
		LIMIT 1
	`, provider, providerUserID)
	if isNoRows(err) {
		return device.Connection{}, apperrors.NewNotFoundError(provider+" connection", providerUserID)
	}
	return c, err
}

func (s *Store) ListConnections(ctx context.Context, userID int64) ([]device.Connection, error) {
	result := []device.Connection{}
	err := s.pool.Select(ctx, &result, `
		SELECT `+connectionColumns+` FROM device_connections
		WHERE user_id = $1 AND is_active
		ORDER BY provider
	`, userID)
	return result, err
}

func (s *Store) ListActiveConnections(ctx context.Context, provider string) ([]device.Connection, error) {
	result := []device.Connection{}
	err := s.pool.Select(ctx, &result, `
		SELECT `+connectionColumns+` FROM device_connections
		WHERE provider = $1 AND is_active
		ORDER BY connection_id
	`, provider)
	return result, err
}

func (s *Store) UpdateConnectionTokens(ctx context.Context, id int64, access, refresh string, expiresAt *time.Time) error {
	n, err := s.pool.Exec(ctx, `
		UPDATE device_connections
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = now()
		WHERE connection_id = $1 AND is_active
	`, id, access, refresh, expiresAt)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError("connection", strconv.FormatInt(id, 10))
	}
	return nil
}

func (s *Store) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE device_connections SET last_sync_at = $2, updated_at = now() WHERE connection_id = $1
	`, id, at)
	return err
}

func (s *Store) DeactivateConnection(ctx context.Context, userID int64, provider string) (bool, error) {
	n, err := s.pool.Exec(ctx, `
		UPDATE device_connections
		SET is_active = FALSE, access_token = '', refresh_token = '', token_expires_at = NULL, updated_at = now()
		WHERE user_id = $1 AND provider = $2 AND is_active
	`, userID, provider)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertActivities inserts or refreshes activities keyed by provider and
// external id, all in one transaction. It returns the number written.
func (s *Store) UpsertActivities(ctx context.Context, acts []device.Activity) (int, error) {
	if len(acts) == 0 {
		return 0, nil
	}
	written := 0
	err := s.pool.WithTx(ctx, func(tx database.Queryer) error {
		written = 0
		for _, a := range acts {
			raw := string(a.Raw)
			if raw == "" {
				raw = "{}"
			}
			n, err := tx.Exec(ctx, `
				INSERT INTO device_activities
					(connection_id, user_id, provider, external_id, activity_type, name, start_time,
					 duration_seconds, distance_meters, calories, avg_heart_rate, raw)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
				ON CONFLICT (provider, external_id) DO UPDATE
				SET activity_type = EXCLUDED.activity_type,
				    name = EXCLUDED.name,
				    start_time = EXCLUDED.start_time,
				    duration_seconds = EXCLUDED.duration_seconds,
				    distance_meters = EXCLUDED.distance_meters,
				    calories = EXCLUDED.calories,
				    avg_heart_rate = EXCLUDED.avg_heart_rate,
				    raw = EXCLUDED.raw,
				    synced_at = now()
			`, a.ConnectionID, a.UserID, a.Provider, a.ExternalID, a.Type, a.Name, a.StartTime,
				a.DurationSeconds, a.DistanceMeters, a.Calories, a.AvgHeartRate, raw)
			if err != nil {
				return err
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func (s *Store) ListActivities(ctx context.Context, userID int64, f device.ActivityFilter) ([]device.Activity, error) {
	result := []device.Activity{}
	err := s.pool.Select(ctx, &result, `
		SELECT `+activityColumns+` FROM device_activities
		WHERE user_id = $1
		  AND ($2 = '' OR provider = $2)
		  AND ($3::timestamptz IS NULL OR start_time >= $3)
		ORDER BY start_time DESC
		LIMIT $4
	`, userID, f.Provider, f.Since, clampLimit(f.Limit, 50, 200))
	return result, err
}

package postgres

import (
	"context"
	"encoding/json"

	"github.com/higher-endeavors/endeavors/internal/app/domain/settings"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

const settingsColumns = `user_id, weight_unit, length_unit, distance_unit, timezone,
	email_notifications, push_notifications, pillar_settings, updated_at`

func (s *Store) GetSettings(ctx context.Context, userID int64) (settings.UserSettings, error) {
	var us settings.UserSettings
	err := s.pool.Get(ctx, &us, `SELECT `+settingsColumns+` FROM user_settings WHERE user_id = $1`, userID)
	if isNoRows(err) {
		return settings.UserSettings{}, apperrors.NewNotFoundError("user settings", "")
	}
	return us, err
}

func (s *Store) UpsertSettings(ctx context.Context, us settings.UserSettings) (settings.UserSettings, error) {
	pillars, err := json.Marshal(us.PillarSettings)
	if err != nil {
		return settings.UserSettings{}, err
	}

	var out settings.UserSettings
	err = s.pool.Get(ctx, &out, `
		INSERT INTO user_settings
			(user_id, weight_unit, length_unit, distance_unit, timezone, email_notifications, push_notifications, pillar_settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		ON CONFLICT (user_id) DO UPDATE
		SET weight_unit = EXCLUDED.weight_unit,
		    length_unit = EXCLUDED.length_unit,
		    distance_unit = EXCLUDED.distance_unit,
		    timezone = EXCLUDED.timezone,
		    email_notifications = EXCLUDED.email_notifications,
		    push_notifications = EXCLUDED.push_notifications,
		    pillar_settings = EXCLUDED.pillar_settings,
		    updated_at = now()
		RETURNING `+settingsColumns,
		us.UserID, us.WeightUnit, us.LengthUnit, us.DistanceUnit, us.Timezone,
		us.EmailNotifications, us.PushNotifications, string(pillars))
	return out, err
}

// Package settings models per-user preferences.
package settings

import (
	"time"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// UserSettings is the single settings row of a user.
type UserSettings struct {
	UserID             int64          `db:"user_id" json:"user_id"`
	WeightUnit         string         `db:"weight_unit" json:"weight_unit"`
	LengthUnit         string         `db:"length_unit" json:"length_unit"`
	DistanceUnit       string         `db:"distance_unit" json:"distance_unit"`
	Timezone           string         `db:"timezone" json:"timezone"`
	EmailNotifications bool           `db:"email_notifications" json:"email_notifications"`
	PushNotifications  bool           `db:"push_notifications" json:"push_notifications"`
	PillarSettings     PillarSettings `db:"pillar_settings" json:"pillar_settings"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Defaults returns the settings a user has before saving any.
func Defaults(userID int64) UserSettings {
	return UserSettings{
		UserID:             userID,
		WeightUnit:         "kg",
		LengthUnit:         "cm",
		DistanceUnit:       "km",
		Timezone:           "UTC",
		EmailNotifications: true,
	}
}

// Validate checks the settings before they are written.
func (s UserSettings) Validate() error {
	if s.WeightUnit != "kg" && s.WeightUnit != "lb" {
		return apperrors.NewValidationError("weight_unit", "must be kg or lb")
	}
	if s.LengthUnit != "cm" && s.LengthUnit != "in" {
		return apperrors.NewValidationError("length_unit", "must be cm or in")
	}
	if s.DistanceUnit != "km" && s.DistanceUnit != "mi" {
		return apperrors.NewValidationError("distance_unit", "must be km or mi")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return apperrors.NewValidationError("timezone", "must be an IANA time zone")
	}
	return s.PillarSettings.Validate()
}

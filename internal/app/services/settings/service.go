// Package settings reads and saves user preferences.
package settings

import (
	"context"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	domain "github.com/higher-endeavors/endeavors/internal/app/domain/settings"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// ConnectionReporter reports a user's device connection state.
type ConnectionReporter interface {
	Statuses(ctx context.Context, userID int64) ([]device.Status, error)
}

// View is the settings page payload.
type View struct {
	Settings    domain.UserSettings `json:"settings"`
	Connections []device.Status     `json:"device_connections"`
}

// Service manages the settings row of each user.
type Service struct {
	store   storage.SettingsStore
	devices ConnectionReporter
	log     *logger.Logger
}

// New constructs a settings service. devices may be nil.
func New(store storage.SettingsStore, devices ConnectionReporter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settings")
	}
	return &Service{store: store, devices: devices, log: log}
}

// Get returns the user's settings, or the defaults when none were saved.
func (s *Service) Get(ctx context.Context, userID int64) (domain.UserSettings, error) {
	us, err := s.store.GetSettings(ctx, userID)
	if apperrors.IsNotFound(err) {
		return domain.Defaults(userID), nil
	}
	return us, err
}

// View returns settings together with device connection state.
func (s *Service) View(ctx context.Context, userID int64) (View, error) {
	us, err := s.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	v := View{Settings: us, Connections: []device.Status{}}
	if s.devices != nil {
		statuses, err := s.devices.Statuses(ctx, userID)
		if err != nil {
			return View{}, err
		}
		v.Connections = statuses
	}
	return v, nil
}

// Save validates and upserts the settings row.
func (s *Service) Save(ctx context.Context, userID int64, us domain.UserSettings) (domain.UserSettings, error) {
	us.UserID = userID
	if err := us.Validate(); err != nil {
		return domain.UserSettings{}, err
	}
	saved, err := s.store.UpsertSettings(ctx, us)
	if err != nil {
		return domain.UserSettings{}, err
	}
	s.log.WithContext(ctx).Debug("settings saved")
	return saved, nil
}

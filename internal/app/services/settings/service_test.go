package settings

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	domain "github.com/higher-endeavors/endeavors/internal/app/domain/settings"
	"github.com/higher-endeavors/endeavors/internal/app/storage/memory"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

type fakeReporter []device.Status

func (f fakeReporter) Statuses(context.Context, int64) ([]device.Status, error) {
	return f, nil
}

func TestService_DefaultsThenSave(t *testing.T) {
	svc := New(memory.New(), fakeReporter{{Provider: device.ProviderGarmin, Connected: true}}, logger.Discard())
	ctx := context.Background()

	v, err := svc.View(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, domain.Defaults(9), v.Settings)
	require.Len(t, v.Connections, 1)
	assert.True(t, v.Connections[0].Connected)

	var in domain.UserSettings
	require.NoError(t, json.Unmarshal([]byte(`{
		"weight_unit": "lb", "length_unit": "in", "distance_unit": "mi", "timezone": "America/Denver",
		"pillar_settings": {"fitness": {"training_days_per_week": 4}, "mindset": {"journal": true}}
	}`), &in))

	saved, err := svc.Save(ctx, 9, in)
	require.NoError(t, err)
	assert.Equal(t, int64(9), saved.UserID)

	got, err := svc.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "lb", got.WeightUnit)
	require.NotNil(t, got.PillarSettings.Fitness)
	assert.JSONEq(t, `{"journal": true}`, string(got.PillarSettings.Extra["mindset"]))
}

func TestService_SaveRejectsInvalid(t *testing.T) {
	svc := New(memory.New(), nil, logger.Discard())
	us := domain.Defaults(9)
	us.Timezone = "Mars/Olympus"
	_, err := svc.Save(context.Background(), 9, us)
	assert.True(t, apperrors.IsValidationError(err))

	v, err := svc.View(context.Background(), 9)
	require.NoError(t, err)
	assert.Empty(t, v.Connections)
}

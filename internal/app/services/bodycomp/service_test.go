package bodycomp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/higher-endeavors/endeavors/internal/app/domain/bodycomp"
	"github.com/higher-endeavors/endeavors/internal/app/storage/memory"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

func TestService_RecordListDelete(t *testing.T) {
	svc := New(memory.New(), logger.Discard())
	ctx := context.Background()
	fat := 20.0

	got, err := svc.Record(ctx, 3, domain.NewEntry{
		Weight: 80, WeightUnit: "kg", BodyFatPct: &fat, Method: "dexa",
		Circumferences: domain.Circumferences{"waist": 84},
	})
	require.NoError(t, err)
	require.NotNil(t, got.FatMass)
	assert.Equal(t, 16.0, *got.FatMass)
	assert.Equal(t, 64.0, *got.LeanMass)

	list, err := svc.List(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 84.0, list[0].Circumferences["waist"])

	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, 4, got.ID)))
	require.NoError(t, svc.Delete(ctx, 3, got.ID))
	list, err = svc.List(ctx, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_RecordValidates(t *testing.T) {
	svc := New(memory.New(), logger.Discard())
	_, err := svc.Record(context.Background(), 3, domain.NewEntry{Weight: 0, WeightUnit: "kg"})
	assert.True(t, apperrors.IsValidationError(err))
	_, err = svc.Record(context.Background(), 3, domain.NewEntry{Weight: 70, WeightUnit: "kg", Method: "guess"})
	assert.True(t, apperrors.IsValidationError(err))
}

package postgres

import (
	"context"
	"strconv"

	"github.com/higher-endeavors/endeavors/internal/app/domain/lifts"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

func (s *Store) ListReferenceLifts(ctx context.Context) ([]lifts.ReferenceLift, error) {
	result := []lifts.ReferenceLift{}
	err := s.pool.Select(ctx, &result, `
		SELECT reference_lift_id, name, reference_load, exercise_library_id
		FROM reference_lifts
		ORDER BY reference_load DESC, reference_lift_id
	`)
	return result, err
}

func (s *Store) GetReferenceLift(ctx context.Context, id int64) (lifts.ReferenceLift, error) {
	var r lifts.ReferenceLift
	err := s.pool.Get(ctx, &r, `
		SELECT reference_lift_id, name, reference_load, exercise_library_id
		FROM reference_lifts WHERE reference_lift_id = $1
	`, id)
	if isNoRows(err) {
		return lifts.ReferenceLift{}, apperrors.NewNotFoundError("reference lift", strconv.FormatInt(id, 10))
	}
	return r, err
}

func (s *Store) ListBalancedLifts(ctx context.Context, userID int64) ([]lifts.BalancedLift, error) {
	result := []lifts.BalancedLift{}
	err := s.pool.Select(ctx, &result, `
		SELECT b.struct_balanced_id, b.user_id, b.reference_lift_id, r.name AS reference_name,
		       b.load, b.load_unit, b.reps, b.created_at
		FROM struct_balanced_lifts b
		JOIN reference_lifts r ON r.reference_lift_id = b.reference_lift_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.struct_balanced_id DESC
	`, userID)
	return result, err
}

func (s *Store) CreateBalancedLift(ctx context.Context, userID int64, n lifts.NewBalancedLift) (lifts.BalancedLift, error) {
	var b lifts.BalancedLift
	err := s.pool.Get(ctx, &b, `
		WITH inserted AS (
			INSERT INTO struct_balanced_lifts (user_id, reference_lift_id, load, load_unit, reps, created_at)
			VALUES ($1, $2, $3, $4, $5, COALESCE($6::date, CURRENT_DATE))
			RETURNING struct_balanced_id, user_id, reference_lift_id, load, load_unit, reps, created_at
		)
		SELECT i.struct_balanced_id, i.user_id, i.reference_lift_id, r.name AS reference_name,
		       i.load, i.load_unit, i.reps, i.created_at
		FROM inserted i
		JOIN reference_lifts r ON r.reference_lift_id = i.reference_lift_id
	`, userID, n.ReferenceLiftID, n.Load, n.LoadUnit, n.Reps, n.Date)
	return b, err
}

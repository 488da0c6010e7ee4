package postgres

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/higher-endeavors/endeavors/internal/app/domain/bodycomp"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

const bodyCompColumns = `entry_id, user_id, entry_date, weight, weight_unit, body_fat_pct, method, circumferences, notes, created_at`

func (s *Store) ListBodyComposition(ctx context.Context, userID int64, limit int) ([]bodycomp.Entry, error) {
	result := []bodycomp.Entry{}
	err := s.pool.Select(ctx, &result, `
		SELECT `+bodyCompColumns+`
		FROM body_composition_entries
		WHERE user_id = $1
		ORDER BY entry_date DESC, entry_id DESC
		LIMIT $2
	`, userID, clampLimit(limit, 50, 365))
	return result, err
}

func (s *Store) CreateBodyComposition(ctx context.Context, userID int64, n bodycomp.NewEntry) (bodycomp.Entry, error) {
	circ := n.Circumferences
	if circ == nil {
		circ = bodycomp.Circumferences{}
	}
	data, err := json.Marshal(circ)
	if err != nil {
		return bodycomp.Entry{}, err
	}

	var e bodycomp.Entry
	err = s.pool.Get(ctx, &e, `
		INSERT INTO body_composition_entries
			(user_id, entry_date, weight, weight_unit, body_fat_pct, method, circumferences, notes)
		VALUES ($1, COALESCE($2::date, CURRENT_DATE), $3, $4, $5, $6, $7::jsonb, $8)
		RETURNING `+bodyCompColumns,
		userID, n.Date, n.Weight, n.WeightUnit, n.BodyFatPct, n.Method, string(data), n.Notes)
	return e, err
}

func (s *Store) DeleteBodyComposition(ctx context.Context, userID, id int64) error {
	n, err := s.pool.Exec(ctx, `DELETE FROM body_composition_entries WHERE entry_id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError("body composition entry", strconv.FormatInt(id, 10))
	}
	return nil
}

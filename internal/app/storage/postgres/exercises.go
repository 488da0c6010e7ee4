package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/higher-endeavors/endeavors/internal/app/domain/training"
	"github.com/higher-endeavors/endeavors/internal/database"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

type catalogRow struct {
	training.CatalogEntry
	MusclesArr   pq.StringArray `db:"muscles"`
	EquipmentArr pq.StringArray `db:"equipment"`
}

func (s *Store) SearchCatalog(ctx context.Context, f training.CatalogFilter) ([]training.CatalogEntry, error) {
	var rows []catalogRow
	err := s.pool.Select(ctx, &rows, `
		SELECT exercise_library_id, name, description, movement, category, muscles, equipment
		FROM exercise_library
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR lower(category) = lower($2))
		ORDER BY name
		LIMIT $3
	`, strings.TrimSpace(f.Name), strings.TrimSpace(f.Category), clampLimit(f.Limit, 100, 500))
	if err != nil {
		return nil, err
	}

	result := make([]training.CatalogEntry, 0, len(rows))
	for _, r := range rows {
		e := r.CatalogEntry
		e.Muscles = []string(r.MusclesArr)
		e.Equipment = []string(r.EquipmentArr)
		if e.Muscles == nil {
			e.Muscles = []string{}
		}
		if e.Equipment == nil {
			e.Equipment = []string{}
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) ListUserExercises(ctx context.Context, userID int64) ([]training.UserExercise, error) {
	result := []training.UserExercise{}
	err := s.pool.Select(ctx, &result, `
		SELECT user_exercise_library_id, user_id, exercise_name, created_at
		FROM user_exercise_library
		WHERE user_id = $1
		ORDER BY lower(exercise_name)
	`, userID)
	return result, err
}

// CreateUserExercise adds a custom exercise. A case-insensitive duplicate for
// the same user is a ConflictError; the unique index backs the check under
// concurrent inserts.
func (s *Store) CreateUserExercise(ctx context.Context, userID int64, name string) (training.UserExercise, error) {
	name = strings.TrimSpace(name)
	var ex training.UserExercise

	err := s.pool.WithTx(ctx, func(tx database.Queryer) error {
		var exists bool
		if err := tx.Get(ctx, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM user_exercise_library WHERE user_id = $1 AND lower(exercise_name) = lower($2)
			)
		`, userID, name); err != nil {
			return err
		}
		if exists {
			return apperrors.NewConflictError("user exercise", name, "already exists")
		}

		return tx.Get(ctx, &ex, `
			INSERT INTO user_exercise_library (user_id, exercise_name)
			VALUES ($1, $2)
			RETURNING user_exercise_library_id, user_id, exercise_name, created_at
		`, userID, name)
	})
	if err != nil {
		var ce *apperrors.ConflictError
		if !apperrors.As(err, &ce) && apperrors.IsConflict(err) {
			return training.UserExercise{}, apperrors.NewConflictError("user exercise", name, "already exists")
		}
		return training.UserExercise{}, err
	}
	return ex, nil
}

func (s *Store) DeleteUserExercise(ctx context.Context, userID, id int64) error {
	n, err := s.pool.Exec(ctx, `
		DELETE FROM user_exercise_library WHERE user_exercise_library_id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError("user exercise", strconv.FormatInt(id, 10))
	}
	return nil
}

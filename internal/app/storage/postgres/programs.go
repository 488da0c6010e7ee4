package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/higher-endeavors/endeavors/internal/app/domain/training"
	"github.com/higher-endeavors/endeavors/internal/database"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

const programColumns = `program_id, user_id, program_name, periodization_type_id, phase_id, tier_continuum_id,
	template_category_id, notes, start_date, created_at, updated_at`

const exerciseColumns = `program_exercises_id, program_id, exercise_source, exercise_library_id, user_exercise_library_id,
	exercise_name, pairing, exercise_order, sets, reps, load, load_unit, tempo, rest_seconds, notes, actual_sets`

// programWithExercises reads programs with their exercises aggregated into a
// JSON array, ordered by exercise_order, in one grouped query.
const programWithExercises = `
	SELECT p.program_id, p.user_id, p.program_name, p.periodization_type_id, p.phase_id, p.tier_continuum_id,
	       p.template_category_id, p.notes, p.start_date, p.created_at, p.updated_at,
	       COALESCE(
	           json_agg(to_jsonb(e) ORDER BY e.exercise_order, e.program_exercises_id)
	               FILTER (WHERE e.program_exercises_id IS NOT NULL),
	           '[]'
	       ) AS exercises
	FROM resist_training_program p
	LEFT JOIN resist_training_program_exercises e ON e.program_id = p.program_id`

type programRow struct {
	training.Program
	ExercisesJSON []byte `db:"exercises"`
}

func (r programRow) toProgram() (training.Program, error) {
	p := r.Program
	p.Exercises = []training.Exercise{}
	if len(r.ExercisesJSON) > 0 {
		if err := json.Unmarshal(r.ExercisesJSON, &p.Exercises); err != nil {
			return training.Program{}, fmt.Errorf("decode exercises of program %d: %w", p.ID, err)
		}
	}
	for i := range p.Exercises {
		if p.Exercises[i].ActualSets == nil {
			p.Exercises[i].ActualSets = training.ActualSets{}
		}
	}
	return p, nil
}

// CreateProgram inserts the program and every exercise in one transaction.
// A failure on any row rolls back the whole program.
func (s *Store) CreateProgram(ctx context.Context, userID int64, np training.NewProgram) (training.Program, error) {
	var prog training.Program

	err := s.pool.WithTx(ctx, func(tx database.Queryer) error {
		if err := tx.Get(ctx, &prog, `
			INSERT INTO resist_training_program
				(user_id, program_name, periodization_type_id, phase_id, tier_continuum_id, template_category_id, notes, start_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+programColumns,
			userID, np.Name, np.PeriodizationTypeID, np.PhaseID, np.TierContinuumID, np.TemplateCategoryID, np.Notes, np.StartDate,
		); err != nil {
			return err
		}

		prog.Exercises = make([]training.Exercise, 0, len(np.Exercises))
		for i, e := range np.Exercises {
			var ex training.Exercise
			if err := tx.Get(ctx, &ex, `
				INSERT INTO resist_training_program_exercises
					(program_id, exercise_source, exercise_library_id, user_exercise_library_id, exercise_name,
					 pairing, exercise_order, sets, reps, load, load_unit, tempo, rest_seconds, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
				RETURNING `+exerciseColumns,
				prog.ID, e.Source, e.ExerciseLibraryID, e.UserExerciseLibraryID, e.Name,
				e.Pairing, e.Order, e.Sets, e.Reps, e.Load, e.LoadUnit, e.Tempo, e.RestSeconds, e.Notes,
			); err != nil {
				return fmt.Errorf("insert exercise %d: %w", i+1, err)
			}
			prog.Exercises = append(prog.Exercises, ex)
		}
		return nil
	})
	if err != nil {
		return training.Program{}, err
	}
	return prog, nil
}

func (s *Store) ListPrograms(ctx context.Context, userID int64) ([]training.Program, error) {
	var rows []programRow
	if err := s.pool.Select(ctx, &rows, programWithExercises+`
		WHERE p.user_id = $1
		GROUP BY p.program_id
		ORDER BY p.created_at DESC, p.program_id DESC
	`, userID); err != nil {
		return nil, err
	}

	result := make([]training.Program, 0, len(rows))
	for _, r := range rows {
		p, err := r.toProgram()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *Store) GetProgram(ctx context.Context, userID, programID int64) (training.Program, error) {
	var row programRow
	err := s.pool.Get(ctx, &row, programWithExercises+`
		WHERE p.program_id = $1 AND p.user_id = $2
		GROUP BY p.program_id
	`, programID, userID)
	if isNoRows(err) {
		return training.Program{}, apperrors.NewNotFoundError("program", strconv.FormatInt(programID, 10))
	}
	if err != nil {
		return training.Program{}, err
	}
	return row.toProgram()
}

// DeleteProgram removes the program's exercises and then the program, both
// filtered by owner. Zero deleted program rows rolls back and reports not found.
func (s *Store) DeleteProgram(ctx context.Context, userID, programID int64) error {
	return s.pool.WithTx(ctx, func(tx database.Queryer) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM resist_training_program_exercises
			WHERE program_id IN (
				SELECT program_id FROM resist_training_program WHERE program_id = $1 AND user_id = $2
			)
		`, programID, userID); err != nil {
			return err
		}

		n, err := tx.Exec(ctx, `DELETE FROM resist_training_program WHERE program_id = $1 AND user_id = $2`, programID, userID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.NewNotFoundError("program", strconv.FormatInt(programID, 10))
		}
		return nil
	})
}

// RecordSessionResults writes actual_sets for each referenced exercise. Every
// referenced exercise must belong to the program; otherwise nothing is written.
func (s *Store) RecordSessionResults(ctx context.Context, userID, programID int64, results []training.SessionResult) error {
	return s.pool.WithTx(ctx, func(tx database.Queryer) error {
		var owner int64
		err := tx.Get(ctx, &owner, `SELECT user_id FROM resist_training_program WHERE program_id = $1 FOR UPDATE`, programID)
		if isNoRows(err) {
			return apperrors.NewNotFoundError("program", strconv.FormatInt(programID, 10))
		}
		if err != nil {
			return err
		}
		if err := apperrors.EnsureOwnership(owner, userID, "program", strconv.FormatInt(programID, 10)); err != nil {
			return err
		}

		var ids []int64
		if err := tx.Select(ctx, &ids, `
			SELECT program_exercises_id FROM resist_training_program_exercises WHERE program_id = $1
		`, programID); err != nil {
			return err
		}
		belongs := make(map[int64]bool, len(ids))
		for _, id := range ids {
			belongs[id] = true
		}
		for _, r := range results {
			if !belongs[r.ProgramExercisesID] {
				return apperrors.NewNotFoundError("program exercise", strconv.FormatInt(r.ProgramExercisesID, 10))
			}
		}

		for _, r := range results {
			data, err := r.ActualSets.JSON()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE resist_training_program_exercises
				SET actual_sets = $1::jsonb
				WHERE program_exercises_id = $2 AND program_id = $3
			`, string(data), r.ProgramExercisesID, programID); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `UPDATE resist_training_program SET updated_at = now() WHERE program_id = $1`, programID)
		return err
	})
}

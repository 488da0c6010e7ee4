// Package training manages resistance training programs, the exercise
// catalog and user exercise libraries.
package training

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	domain "github.com/higher-endeavors/endeavors/internal/app/domain/training"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const maxNameLength = 100

// Service owns program and exercise workflows.
type Service struct {
	programs  storage.ProgramStore
	exercises storage.ExerciseStore
	reference storage.ReferenceStore
	log       *logger.Logger
}

// New constructs a training service.
func New(programs storage.ProgramStore, exercises storage.ExerciseStore, reference storage.ReferenceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("training")
	}
	return &Service{programs: programs, exercises: exercises, reference: reference, log: log}
}

// CreateProgram writes a program and all of its exercises, or nothing.
func (s *Service) CreateProgram(ctx context.Context, userID int64, p domain.NewProgram) (domain.Program, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return domain.Program{}, err
	}
	if err := checkName("program_name", p.Name); err != nil {
		return domain.Program{}, err
	}

	created, err := s.programs.CreateProgram(ctx, userID, p)
	if err != nil {
		return domain.Program{}, err
	}
	s.log.WithContext(ctx).
		WithField("program_id", created.ID).
		WithField("exercises", len(created.Exercises)).
		Info("program created")
	return created, nil
}

func (s *Service) ListPrograms(ctx context.Context, userID int64) ([]domain.Program, error) {
	return s.programs.ListPrograms(ctx, userID)
}

func (s *Service) GetProgram(ctx context.Context, userID, programID int64) (domain.Program, error) {
	if programID <= 0 {
		return domain.Program{}, apperrors.RequiredError("program_id")
	}
	return s.programs.GetProgram(ctx, userID, programID)
}

// DeleteProgram removes a program owned by userID. Programs of other users
// are reported as not found.
func (s *Service) DeleteProgram(ctx context.Context, userID, programID int64) error {
	if programID <= 0 {
		return apperrors.RequiredError("program_id")
	}
	if err := s.programs.DeleteProgram(ctx, userID, programID); err != nil {
		return err
	}
	s.log.WithContext(ctx).WithField("program_id", programID).Info("program deleted")
	return nil
}

// RecordSessionResults stores performed sets for exercises of one program.
// Every referenced exercise must belong to the program or nothing is written.
func (s *Service) RecordSessionResults(ctx context.Context, userID, programID int64, results []domain.SessionResult) error {
	if programID <= 0 {
		return apperrors.RequiredError("program_id")
	}
	if len(results) == 0 {
		return apperrors.RequiredError("results")
	}
	seen := make(map[int64]bool, len(results))
	for i, r := range results {
		if r.ProgramExercisesID <= 0 {
			return apperrors.RequiredError("results[" + strconv.Itoa(i) + "].programExercisesId")
		}
		if seen[r.ProgramExercisesID] {
			return apperrors.NewValidationError("results", "exercise "+strconv.FormatInt(r.ProgramExercisesID, 10)+" listed twice")
		}
		seen[r.ProgramExercisesID] = true
		if err := r.ActualSets.Validate(); err != nil {
			return err
		}
	}
	return s.programs.RecordSessionResults(ctx, userID, programID, results)
}

// Exercise library ---------------------------------------------------------

func (s *Service) SearchCatalog(ctx context.Context, f domain.CatalogFilter) ([]domain.CatalogEntry, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Category = strings.TrimSpace(f.Category)
	return s.exercises.SearchCatalog(ctx, f)
}

func (s *Service) ListUserExercises(ctx context.Context, userID int64) ([]domain.UserExercise, error) {
	return s.exercises.ListUserExercises(ctx, userID)
}

// CreateUserExercise adds a custom exercise. A name the user already has,
// compared case-insensitively, is a ConflictError.
func (s *Service) CreateUserExercise(ctx context.Context, userID int64, name string) (domain.UserExercise, error) {
	name = strings.TrimSpace(name)
	if err := checkName("exercise_name", name); err != nil {
		return domain.UserExercise{}, err
	}
	return s.exercises.CreateUserExercise(ctx, userID, name)
}

func (s *Service) DeleteUserExercise(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return apperrors.RequiredError("user_exercise_library_id")
	}
	return s.exercises.DeleteUserExercise(ctx, userID, id)
}

// Reference enumerations ---------------------------------------------------

func (s *Service) ListEnumeration(ctx context.Context, kind string) ([]domain.Enumeration, error) {
	return s.reference.ListEnumeration(ctx, kind)
}

func (s *Service) CreateTemplateCategory(ctx context.Context, name string) (domain.Enumeration, error) {
	name = strings.TrimSpace(name)
	if err := checkName("name", name); err != nil {
		return domain.Enumeration{}, err
	}
	return s.reference.CreateTemplateCategory(ctx, name)
}

func (s *Service) DeleteTemplateCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.RequiredError("id")
	}
	return s.reference.DeleteTemplateCategory(ctx, id)
}

func checkName(field, name string) error {
	if name == "" {
		return apperrors.RequiredError(field)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperrors.NewValidationError(field, "must be at most 100 characters")
	}
	return nil
}

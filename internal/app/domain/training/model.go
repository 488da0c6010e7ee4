// Package training models resistance training programs and exercises.
package training

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// Load units.
const (
	UnitKG = "kg"
	UnitLB = "lb"
)

// Exercise sources.
const (
	SourceLibrary = "library"
	SourceUser    = "user"
)

// Program is a user's resistance training program.
type Program struct {
	ID                  int64      `db:"program_id" json:"program_id"`
	UserID              int64      `db:"user_id" json:"user_id"`
	Name                string     `db:"program_name" json:"program_name"`
	PeriodizationTypeID *int64     `db:"periodization_type_id" json:"periodization_type_id,omitempty"`
	PhaseID             *int64     `db:"phase_id" json:"phase_id,omitempty"`
	TierContinuumID     *int64     `db:"tier_continuum_id" json:"tier_continuum_id,omitempty"`
	TemplateCategoryID  *int64     `db:"template_category_id" json:"template_category_id,omitempty"`
	Notes               string     `db:"notes" json:"notes"`
	StartDate           *time.Time `db:"start_date" json:"start_date,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	Exercises           []Exercise `db:"-" json:"exercises"`
}

// Exercise is one row of a program.
type Exercise struct {
	ID                    int64      `db:"program_exercises_id" json:"program_exercises_id"`
	ProgramID             int64      `db:"program_id" json:"program_id"`
	Source                string     `db:"exercise_source" json:"exercise_source"`
	ExerciseLibraryID     *int64     `db:"exercise_library_id" json:"exercise_library_id,omitempty"`
	UserExerciseLibraryID *int64     `db:"user_exercise_library_id" json:"user_exercise_library_id,omitempty"`
	Name                  string     `db:"exercise_name" json:"exercise_name"`
	Pairing               string     `db:"pairing" json:"pairing"`
	Order                 int        `db:"exercise_order" json:"exercise_order"`
	Sets                  int        `db:"sets" json:"sets"`
	Reps                  int        `db:"reps" json:"reps"`
	Load                  *float64   `db:"load" json:"load,omitempty"`
	LoadUnit              string     `db:"load_unit" json:"load_unit"`
	Tempo                 string     `db:"tempo" json:"tempo"`
	RestSeconds           int        `db:"rest_seconds" json:"rest_seconds"`
	Notes                 string     `db:"notes" json:"notes"`
	ActualSets            ActualSets `db:"actual_sets" json:"actual_sets"`
}

// ActualSet is one performed set recorded after a session.
type ActualSet struct {
	Set       int      `json:"set"`
	Reps      int      `json:"reps"`
	Load      *float64 `json:"load,omitempty"`
	LoadUnit  string   `json:"load_unit,omitempty"`
	RPE       *float64 `json:"rpe,omitempty"`
	RIR       *int     `json:"rir,omitempty"`
	Completed bool     `json:"completed"`
	Notes     string   `json:"notes,omitempty"`
}

// Validate checks a performed set.
func (s ActualSet) Validate() error {
	if s.Set < 1 {
		return apperrors.NewValidationError("actual_sets.set", "must be at least 1")
	}
	if s.Reps < 0 {
		return apperrors.NewValidationError("actual_sets.reps", "must not be negative")
	}
	if s.Load != nil && *s.Load < 0 {
		return apperrors.NewValidationError("actual_sets.load", "must not be negative")
	}
	if s.LoadUnit != "" && !ValidUnit(s.LoadUnit) {
		return apperrors.NewValidationError("actual_sets.load_unit", "must be kg or lb")
	}
	if s.RPE != nil && (*s.RPE < 1 || *s.RPE > 10) {
		return apperrors.NewValidationError("actual_sets.rpe", "must be between 1 and 10")
	}
	if s.RIR != nil && *s.RIR < 0 {
		return apperrors.NewValidationError("actual_sets.rir", "must not be negative")
	}
	return nil
}

// ActualSets is stored as a JSONB array.
type ActualSets []ActualSet

// Scan implements sql.Scanner.
func (a *ActualSets) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = ActualSets{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return apperrors.New("actual_sets: unsupported column type")
	}
	if len(data) == 0 {
		*a = ActualSets{}
		return nil
	}
	var sets []ActualSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return err
	}
	if sets == nil {
		sets = []ActualSet{}
	}
	*a = sets
	return nil
}

// JSON returns the column value.
func (a ActualSets) JSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ActualSet(a))
}

// Validate checks every set.
func (a ActualSets) Validate() error {
	for _, s := range a {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidUnit reports whether u is a supported load unit.
func ValidUnit(u string) bool {
	return u == UnitKG || u == UnitLB
}

// NewProgram is the input for creating a program.
type NewProgram struct {
	Name                string        `json:"program_name"`
	PeriodizationTypeID *int64        `json:"periodization_type_id"`
	PhaseID             *int64        `json:"phase_id"`
	TierContinuumID     *int64        `json:"tier_continuum_id"`
	TemplateCategoryID  *int64        `json:"template_category_id"`
	Notes               string        `json:"notes"`
	StartDate           *time.Time    `json:"start_date"`
	Exercises           []NewExercise `json:"exercises"`
}

// NewExercise is the input for one exercise of a new program.
type NewExercise struct {
	Source                string   `json:"exercise_source"`
	ExerciseLibraryID     *int64   `json:"exercise_library_id"`
	UserExerciseLibraryID *int64   `json:"user_exercise_library_id"`
	Name                  string   `json:"exercise_name"`
	Pairing               string   `json:"pairing"`
	Order                 int      `json:"exercise_order"`
	Sets                  int      `json:"sets"`
	Reps                  int      `json:"reps"`
	Load                  *float64 `json:"load"`
	LoadUnit              string   `json:"load_unit"`
	Tempo                 string   `json:"tempo"`
	RestSeconds           int      `json:"rest_seconds"`
	Notes                 string   `json:"notes"`
}

// Normalize trims input and fills defaults.
func (p *NewProgram) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	for i := range p.Exercises {
		e := &p.Exercises[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Source == "" {
			e.Source = SourceLibrary
			if e.UserExerciseLibraryID != nil {
				e.Source = SourceUser
			}
		}
		if e.LoadUnit == "" {
			e.LoadUnit = UnitKG
		}
		if e.Order == 0 {
			e.Order = i + 1
		}
	}
}

// Validate checks a program before it is written.
func (p NewProgram) Validate() error {
	if p.Name == "" {
		return apperrors.RequiredError("program_name")
	}
	for _, e := range p.Exercises {
		if e.Name == "" {
			return apperrors.RequiredError("exercises.exercise_name")
		}
		if e.Source != SourceLibrary && e.Source != SourceUser {
			return apperrors.NewValidationError("exercises.exercise_source", "must be library or user")
		}
		if e.Sets < 0 || e.Reps < 0 || e.RestSeconds < 0 {
			return apperrors.NewValidationError("exercises", "sets, reps and rest must not be negative")
		}
		if e.Load != nil && *e.Load < 0 {
			return apperrors.NewValidationError("exercises.load", "must not be negative")
		}
		if !ValidUnit(e.LoadUnit) {
			return apperrors.NewValidationError("exercises.load_unit", "must be kg or lb")
		}
	}
	return nil
}

// SessionResult records what was actually performed for one exercise.
type SessionResult struct {
	ProgramExercisesID int64      `json:"programExercisesId"`
	ActualSets         ActualSets `json:"actual_sets"`
}

// CatalogEntry is a row of the shared exercise catalog.
type CatalogEntry struct {
	ID          int64    `db:"exercise_library_id" json:"exercise_library_id"`
	Name        string   `db:"name" json:"name"`
	Description string   `db:"description" json:"description"`
	Movement    string   `db:"movement" json:"movement"`
	Category    string   `db:"category" json:"category"`
	Muscles     []string `db:"-" json:"muscles"`
	Equipment   []string `db:"-" json:"equipment"`
}

// CatalogFilter narrows a catalog search.
type CatalogFilter struct {
	Name     string
	Category string
	Limit    int
}

// UserExercise is a custom exercise a user added to their library.
type UserExercise struct {
	ID        int64     `db:"user_exercise_library_id" json:"user_exercise_library_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"exercise_name" json:"exercise_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Enumeration is a small (id, name) reference row.
type Enumeration struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Enumeration kinds.
const (
	EnumTemplateCategories = "template-categories"
	EnumTierContinuum      = "tier-continuum"
	EnumPeriodizationTypes = "periodization-types"
	EnumPhases             = "phases"
)

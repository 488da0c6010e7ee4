// Package lifts models reference lifts and a user's structural balance attempts.
package lifts

import (
	"time"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

const lbPerKG = 2.20462

// ReferenceLift is a canonical lift with its expected relative load.
type ReferenceLift struct {
	ID                int64   `db:"reference_lift_id" json:"reference_lift_id"`
	Name              string  `db:"name" json:"name"`
	ReferenceLoad     float64 `db:"reference_load" json:"reference_load"`
	ExerciseLibraryID *int64  `db:"exercise_library_id" json:"exercise_library_id,omitempty"`
}

// BalancedLift is a user's recorded attempt at a reference lift.
type BalancedLift struct {
	ID              int64     `db:"struct_balanced_id" json:"struct_balanced_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	ReferenceLiftID int64     `db:"reference_lift_id" json:"reference_lift_id"`
	ReferenceName   string    `db:"reference_name" json:"reference_name"`
	Load            float64   `db:"load" json:"load"`
	LoadUnit        string    `db:"load_unit" json:"load_unit"`
	Reps            int       `db:"reps" json:"reps"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// NewBalancedLift is the input for recording an attempt.
type NewBalancedLift struct {
	ReferenceLiftID int64      `json:"reference_lift_id"`
	Load            float64    `json:"load"`
	LoadUnit        string     `json:"load_unit"`
	Reps            int        `json:"reps"`
	Date            *time.Time `json:"created_at"`
}

// Validate checks an attempt.
func (n NewBalancedLift) Validate() error {
	if n.ReferenceLiftID <= 0 {
		return apperrors.RequiredError("reference_lift_id")
	}
	if n.Load <= 0 {
		return apperrors.NewValidationError("load", "must be greater than zero")
	}
	if n.LoadUnit != "kg" && n.LoadUnit != "lb" {
		return apperrors.NewValidationError("load_unit", "must be kg or lb")
	}
	if n.Reps < 1 || n.Reps > 20 {
		return apperrors.NewValidationError("reps", "must be between 1 and 20")
	}
	return nil
}

// ToKG converts a load to kilograms.
func ToKG(load float64, unit string) float64 {
	if unit == "lb" {
		return load / lbPerKG
	}
	return load
}

// EstimatedOneRepMax uses the Epley formula. A single rep is its own max.
func EstimatedOneRepMax(load float64, reps int) float64 {
	if reps <= 1 {
		return load
	}
	return load * (1 + float64(reps)/30)
}

// BalanceEntry compares one lift against the base lift.
type BalanceEntry struct {
	ReferenceLiftID int64     `json:"reference_lift_id"`
	Name            string    `json:"name"`
	ReferenceLoad   float64   `json:"reference_load"`
	Estimated1RMKG  float64   `json:"estimated_1rm_kg"`
	Expected1RMKG   float64   `json:"expected_1rm_kg"`
	DeviationPct    float64   `json:"deviation_pct"`
	RecordedAt      time.Time `json:"recorded_at"`
	IsBase          bool      `json:"is_base"`
}

// BalanceReport is the structural balance summary for a user.
type BalanceReport struct {
	BaseLiftID int64          `json:"base_lift_id,omitempty"`
	BaseLift   string         `json:"base_lift,omitempty"`
	Entries    []BalanceEntry `json:"entries"`
}

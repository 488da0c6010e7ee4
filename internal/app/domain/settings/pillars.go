package settings

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// Pillar names.
const (
	PillarLifestyle = "lifestyle"
	PillarHealth    = "health"
	PillarNutrition = "nutrition"
	PillarFitness   = "fitness"
)

type LifestyleSettings struct {
	SleepGoalHours *float64 `json:"sleep_goal_hours,omitempty"`
	TrackStress    bool     `json:"track_stress"`
	TrackHabits    bool     `json:"track_habits"`
}

type HealthSettings struct {
	TrackRestingHeartRate bool     `json:"track_resting_heart_rate"`
	TrackBloodPressure    bool     `json:"track_blood_pressure"`
	Conditions            []string `json:"conditions,omitempty"`
}

type NutritionSettings struct {
	DailyCalorieTarget *int     `json:"daily_calorie_target,omitempty"`
	ProteinTargetGrams *int     `json:"protein_target_grams,omitempty"`
	DietaryPreference  string   `json:"dietary_preference,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
}

type FitnessSettings struct {
	TrainingDaysPerWeek *int     `json:"training_days_per_week,omitempty"`
	PreferredLoadUnit   string   `json:"preferred_load_unit,omitempty"`
	ExperienceLevel     string   `json:"experience_level,omitempty"`
	Goals               []string `json:"goals,omitempty"`
}

// PillarSettings holds typed sections for the known pillars. Pillars this
// version does not know are kept verbatim in Extra and written back unchanged.
type PillarSettings struct {
	Lifestyle *LifestyleSettings
	Health    *HealthSettings
	Nutrition *NutritionSettings
	Fitness   *FitnessSettings
	Extra     map[string]json.RawMessage
}

// UnmarshalJSON decodes known pillars into their sections.
func (p *PillarSettings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("pillar_settings: %w", err)
	}

	*p = PillarSettings{}
	for key, value := range raw {
		var err error
		switch key {
		case PillarLifestyle:
			p.Lifestyle = new(LifestyleSettings)
			err = json.Unmarshal(value, p.Lifestyle)
		case PillarHealth:
			p.Health = new(HealthSettings)
			err = json.Unmarshal(value, p.Health)
		case PillarNutrition:
			p.Nutrition = new(NutritionSettings)
			err = json.Unmarshal(value, p.Nutrition)
		case PillarFitness:
			p.Fitness = new(FitnessSettings)
			err = json.Unmarshal(value, p.Fitness)
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[key] = value
		}
		if err != nil {
			return apperrors.NewValidationError("pillar_settings."+key, err.Error())
		}
	}
	return nil
}

// MarshalJSON writes known sections and the preserved extras as one object.
func (p PillarSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 4+len(p.Extra))
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.Lifestyle != nil {
		out[PillarLifestyle] = p.Lifestyle
	}
	if p.Health != nil {
		out[PillarHealth] = p.Health
	}
	if p.Nutrition != nil {
		out[PillarNutrition] = p.Nutrition
	}
	if p.Fitness != nil {
		out[PillarFitness] = p.Fitness
	}
	return json.Marshal(out)
}

// Scan implements sql.Scanner for the JSONB column.
func (p *PillarSettings) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = PillarSettings{}
		return nil
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("pillar_settings: unsupported column type %T", src)
	}
}

// Validate checks the typed sections.
func (p PillarSettings) Validate() error {
	if f := p.Fitness; f != nil {
		if f.TrainingDaysPerWeek != nil && (*f.TrainingDaysPerWeek < 0 || *f.TrainingDaysPerWeek > 7) {
			return apperrors.NewValidationError("pillar_settings.fitness.training_days_per_week", "must be between 0 and 7")
		}
		if f.PreferredLoadUnit != "" && f.PreferredLoadUnit != "kg" && f.PreferredLoadUnit != "lb" {
			return apperrors.NewValidationError("pillar_settings.fitness.preferred_load_unit", "must be kg or lb")
		}
	}
	if n := p.Nutrition; n != nil {
		if n.DailyCalorieTarget != nil && *n.DailyCalorieTarget <= 0 {
			return apperrors.NewValidationError("pillar_settings.nutrition.daily_calorie_target", "must be positive")
		}
		if n.ProteinTargetGrams != nil && *n.ProteinTargetGrams < 0 {
			return apperrors.NewValidationError("pillar_settings.nutrition.protein_target_grams", "must not be negative")
		}
	}
	if l := p.Lifestyle; l != nil && l.SleepGoalHours != nil && (*l.SleepGoalHours < 0 || *l.SleepGoalHours > 24) {
		return apperrors.NewValidationError("pillar_settings.lifestyle.sleep_goal_hours", "must be between 0 and 24")
	}
	return nil
}

// Package bodycomp models body composition measurements.
package bodycomp

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// Measurement methods.
var methods = map[string]bool{
	"":            true,
	"scale":       true,
	"calipers":    true,
	"bia":         true,
	"dexa":        true,
	"bod_pod":     true,
	"hydrostatic": true,
	"tape":        true,
}

// Circumferences maps a site name (waist, hips, chest...) to centimetres.
type Circumferences map[string]float64

// Scan implements sql.Scanner for the JSONB column.
func (c *Circumferences) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = Circumferences{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("circumferences: unsupported column type %T", src)
	}
	m := Circumferences{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = m
	return nil
}

// Entry is one body composition measurement.
type Entry struct {
	ID             int64          `db:"entry_id" json:"entry_id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	Date           time.Time      `db:"entry_date" json:"entry_date"`
	Weight         float64        `db:"weight" json:"weight"`
	WeightUnit     string         `db:"weight_unit" json:"weight_unit"`
	BodyFatPct     *float64       `db:"body_fat_pct" json:"body_fat_pct,omitempty"`
	Method         string         `db:"method" json:"method"`
	Circumferences Circumferences `db:"circumferences" json:"circumferences"`
	Notes          string         `db:"notes" json:"notes"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Derived adds computed values to an entry.
type Derived struct {
	Entry
	FatMass  *float64 `json:"fat_mass,omitempty"`
	LeanMass *float64 `json:"lean_mass,omitempty"`
}

// Derive computes fat and lean mass in the entry's weight unit.
func Derive(e Entry) Derived {
	d := Derived{Entry: e}
	if e.BodyFatPct == nil {
		return d
	}
	fat := math.Round(e.Weight**e.BodyFatPct) / 100
	lean := math.Round((e.Weight-fat)*100) / 100
	d.FatMass = &fat
	d.LeanMass = &lean
	return d
}

// NewEntry is the input for recording a measurement.
type NewEntry struct {
	Date           *time.Time     `json:"entry_date"`
	Weight         float64        `json:"weight"`
	WeightUnit     string         `json:"weight_unit"`
	BodyFatPct     *float64       `json:"body_fat_pct"`
	Method         string         `json:"method"`
	Circumferences Circumferences `json:"circumferences"`
	Notes          string         `json:"notes"`
}

// Validate checks a measurement.
func (n NewEntry) Validate() error {
	if n.Weight <= 0 {
		return apperrors.NewValidationError("weight", "must be greater than zero")
	}
	if n.WeightUnit != "kg" && n.WeightUnit != "lb" {
		return apperrors.NewValidationError("weight_unit", "must be kg or lb")
	}
	if n.BodyFatPct != nil && (*n.BodyFatPct < 0 || *n.BodyFatPct >= 100) {
		return apperrors.NewValidationError("body_fat_pct", "must be between 0 and 100")
	}
	if !methods[n.Method] {
		return apperrors.NewValidationError("method", "unknown measurement method")
	}
	for site, v := range n.Circumferences {
		if v <= 0 {
			return apperrors.NewValidationError("circumferences."+site, "must be greater than zero")
		}
	}
	return nil
}

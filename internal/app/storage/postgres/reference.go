package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/higher-endeavors/endeavors/internal/app/domain/training"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

var enumerationTables = map[string]string{
	training.EnumTemplateCategories: "resist_training_template_categories",
	training.EnumTierContinuum:      "tier_continuum",
	training.EnumPeriodizationTypes: "periodization_types",
	training.EnumPhases:             "phases",
}

// ListEnumeration returns every row of the named reference table ordered by id.
func (s *Store) ListEnumeration(ctx context.Context, kind string) ([]training.Enumeration, error) {
	table, ok := enumerationTables[kind]
	if !ok {
		return nil, apperrors.NewNotFoundError("enumeration", kind)
	}
	result := []training.Enumeration{}
	err := s.pool.Select(ctx, &result, `SELECT id, name FROM `+table+` ORDER BY id`)
	return result, err
}

func (s *Store) CreateTemplateCategory(ctx context.Context, name string) (training.Enumeration, error) {
	name = strings.TrimSpace(name)
	var e training.Enumeration
	err := s.pool.Get(ctx, &e, `
		INSERT INTO resist_training_template_categories (name) VALUES ($1) RETURNING id, name
	`, name)
	if apperrors.IsConflict(err) {
		return training.Enumeration{}, apperrors.NewConflictError("template category", name, "already exists")
	}
	return e, err
}

func (s *Store) DeleteTemplateCategory(ctx context.Context, id int64) error {
	n, err := s.pool.Exec(ctx, `DELETE FROM resist_training_template_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFoundError("template category", strconv.FormatInt(id, 10))
	}
	return nil
}

// Package bodycomp records body composition measurements.
package bodycomp

import (
	"context"

	domain "github.com/higher-endeavors/endeavors/internal/app/domain/bodycomp"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 365
)

type Service struct {
	store storage.BodyCompositionStore
	log   *logger.Logger
}

func New(store storage.BodyCompositionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("bodycomp")
	}
	return &Service{store: store, log: log}
}

// List returns the newest entries first with fat and lean mass derived.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]domain.Derived, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	entries, err := s.store.ListBodyComposition(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Derived, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.Derive(e))
	}
	return out, nil
}

func (s *Service) Record(ctx context.Context, userID int64, n domain.NewEntry) (domain.Derived, error) {
	if err := n.Validate(); err != nil {
		return domain.Derived{}, err
	}
	e, err := s.store.CreateBodyComposition(ctx, userID, n)
	if err != nil {
		return domain.Derived{}, err
	}
	return domain.Derive(e), nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return apperrors.RequiredError("entry_id")
	}
	return s.store.DeleteBodyComposition(ctx, userID, id)
}

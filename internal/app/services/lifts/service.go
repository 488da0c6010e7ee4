// Package lifts records structural balance attempts and reports on them.
package lifts

import (
	"context"

	domain "github.com/higher-endeavors/endeavors/internal/app/domain/lifts"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// Service provides reference and balanced lift workflows.
type Service struct {
	store storage.LiftStore
	log   *logger.Logger
}

func New(store storage.LiftStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("lifts")
	}
	return &Service{store: store, log: log}
}

func (s *Service) ReferenceLifts(ctx context.Context) ([]domain.ReferenceLift, error) {
	return s.store.ListReferenceLifts(ctx)
}

func (s *Service) BalancedLifts(ctx context.Context, userID int64) ([]domain.BalancedLift, error) {
	return s.store.ListBalancedLifts(ctx, userID)
}

// Record stores an attempt against an existing reference lift.
func (s *Service) Record(ctx context.Context, userID int64, n domain.NewBalancedLift) (domain.BalancedLift, error) {
	if err := n.Validate(); err != nil {
		return domain.BalancedLift{}, err
	}
	if _, err := s.store.GetReferenceLift(ctx, n.ReferenceLiftID); err != nil {
		if apperrors.IsNotFound(err) {
			return domain.BalancedLift{}, apperrors.NewValidationError("reference_lift_id", "unknown reference lift")
		}
		return domain.BalancedLift{}, err
	}
	return s.store.CreateBalancedLift(ctx, userID, n)
}

// Report builds the structural balance report from the user's latest
// attempt per reference lift.
func (s *Service) Report(ctx context.Context, userID int64) (domain.BalanceReport, error) {
	refs, err := s.store.ListReferenceLifts(ctx)
	if err != nil {
		return domain.BalanceReport{}, err
	}
	attempts, err := s.store.ListBalancedLifts(ctx, userID)
	if err != nil {
		return domain.BalanceReport{}, err
	}
	return domain.BuildReport(refs, attempts), nil
}

// Package commission resolves the payout percentage for closed deals.
package commission

import (
	"context"
	"errors"
	"fmt"

	"crm_rotation_backend/internal/commission/repository"
	"crm_rotation_backend/internal/events"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrNoSlabMatch means the slab table has a gap: no bracket covers the deal
// value in either the tier-specific or the default set. This is a data
// integrity problem, never silently defaulted.
var ErrNoSlabMatch = errors.New("no commission slab covers the deal value")

// Store is the slab and conversion access the service needs.
type Store interface {
	ListByTier(ctx context.Context, tier *int) ([]repository.Slab, error)
	ListAll(ctx context.Context) ([]repository.Slab, error)
	RecordConversion(ctx context.Context, c repository.Conversion) (repository.Conversion, error)
	ListConversions(ctx context.Context, limit int) ([]repository.Conversion, error)
}

// Service resolves commission percentages and records conversions.
type Service struct {
	store Store
	log   *logger.Logger
}

// New creates a new commission service.
func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Resolve finds the percentage for a deal value. Tier-specific slabs win;
// an agent without tier slabs falls back to the default set. Brackets are
// half-open [from, to); a nil upper bound is open-ended.
func (s *Service) Resolve(ctx context.Context, dealValue int64, tier *int) (float64, error) {
	if tier != nil {
		slabs, err := s.store.ListByTier(ctx, tier)
		if err != nil {
			return 0, err
		}
		if len(slabs) > 0 {
			return match(slabs, dealValue, tier)
		}
	}

	slabs, err := s.store.ListByTier(ctx, nil)
	if err != nil {
		return 0, err
	}
	return match(slabs, dealValue, tier)
}

func match(slabs []repository.Slab, dealValue int64, tier *int) (float64, error) {
	for _, slab := range slabs {
		if dealValue < slab.SlabFrom {
			continue
		}
		if slab.SlabTo == nil || dealValue < *slab.SlabTo {
			return slab.Percentage, nil
		}
	}
	tierLabel := "default"
	if tier != nil {
		tierLabel = fmt.Sprintf("%d", *tier)
	}
	return 0, fmt.Errorf("%w: deal value %d, tier %s", ErrNoSlabMatch, dealValue, tierLabel)
}

// RecordConversion resolves the slab for a conversion and logs it. A slab
// gap is surfaced as an integrity error.
func (s *Service) RecordConversion(ctx context.Context, leadID, agentID uuid.UUID, dealValue int64, tier *int) (repository.Conversion, error) {
	percentage, err := s.Resolve(ctx, dealValue, tier)
	if errors.Is(err, ErrNoSlabMatch) {
		s.log.Error("commission slab table has a gap",
			"lead_id", leadID, "deal_value", dealValue, "error", err)
		return repository.Conversion{}, apperr.Integrity(err.Error())
	}
	if err != nil {
		return repository.Conversion{}, err
	}

	return s.store.RecordConversion(ctx, repository.Conversion{
		LeadID:     leadID,
		AgentID:    agentID,
		DealValue:  dealValue,
		Percentage: percentage,
	})
}

// HandleLeadConverted is the event subscription entry point.
func (s *Service) HandleLeadConverted(ctx context.Context, e events.Event) error {
	converted, ok := e.(events.LeadConverted)
	if !ok {
		return fmt.Errorf("unexpected event type %T", e)
	}
	_, err := s.RecordConversion(ctx, converted.LeadID, converted.AgentID, converted.DealValue, converted.DesignationTier)
	return err
}

// ListSlabs returns slabs for the admin view, optionally narrowed to a tier.
func (s *Service) ListSlabs(ctx context.Context, tier *int) ([]repository.Slab, error) {
	if tier != nil {
		return s.store.ListByTier(ctx, tier)
	}
	return s.store.ListAll(ctx)
}

// ListConversions returns the conversion log.
func (s *Service) ListConversions(ctx context.Context, limit int) ([]repository.Conversion, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListConversions(ctx, limit)
}

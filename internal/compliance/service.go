// Package compliance implements the do-not-disturb contact filter.
package compliance

import (
	"context"
	"errors"
	"time"

	"crm_rotation_backend/internal/compliance/repository"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/phone"
)

// Store is the registry access the service needs.
type Store interface {
	Exists(ctx context.Context, phone string) (bool, error)
	Add(ctx context.Context, entry repository.Entry) error
	Remove(ctx context.Context, phone string) error
	List(ctx context.Context, limit int) ([]repository.Entry, error)
}

// Service answers "may we contact this number" and manages the registry.
type Service struct {
	store Store
}

// New creates a new compliance service.
func New(store Store) *Service {
	return &Service{store: store}
}

// IsBlocked reports whether the phone is on the registry. The number is
// normalized before the lookup so every caller agrees on the key.
func (s *Service) IsBlocked(ctx context.Context, phoneNumber string) (bool, error) {
	return s.store.Exists(ctx, phone.NormalizeE164(phoneNumber))
}

// Add puts a phone on the registry. Every lead sharing the number becomes
// non-contactable from the next compliance check onward.
func (s *Service) Add(ctx context.Context, phoneNumber, reason, actor string) (repository.Entry, error) {
	entry := repository.Entry{
		Phone:     phone.NormalizeE164(phoneNumber),
		Reason:    reason,
		AddedBy:   actor,
		CreatedAt: time.Now(),
	}
	err := s.store.Add(ctx, entry)
	if errors.Is(err, repository.ErrDuplicate) {
		return repository.Entry{}, apperr.Conflict("phone already on the dnd registry")
	}
	if err != nil {
		return repository.Entry{}, err
	}
	return entry, nil
}

// Remove takes a phone off the registry.
func (s *Service) Remove(ctx context.Context, phoneNumber string) error {
	err := s.store.Remove(ctx, phone.NormalizeE164(phoneNumber))
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("phone not on the dnd registry")
	}
	return err
}

// List returns registry entries.
func (s *Service) List(ctx context.Context, limit int) ([]repository.Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	return s.store.List(ctx, limit)
}

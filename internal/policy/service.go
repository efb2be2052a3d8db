package policy

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"crm_rotation_backend/internal/policy/repository"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/logger"

	"github.com/google/uuid"
)

// Store defines the data access interface needed by the policy service.
type Store interface {
	List(ctx context.Context) ([]repository.Setting, error)
	Get(ctx context.Context, key string) (repository.Setting, error)
	Update(ctx context.Context, key, value string) (repository.Setting, error)
	ListRules(ctx context.Context) ([]repository.StatusRotationRule, error)
	UpsertRule(ctx context.Context, rule repository.StatusRotationRule) error
}

// Loader is the snapshot-loading capability consumed by the assignment
// engine and the sweep runner.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}

// Service exposes typed snapshot loading and validated administrative
// updates over the policy store.
type Service struct {
	store Store
	log   *logger.Logger
}

// New creates a new policy service.
func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Load reads all settings and rules and builds an immutable snapshot.
// Malformed values disable their feature and are logged; they never fail
// the load.
func (s *Service) Load(ctx context.Context) (Snapshot, error) {
	settings, err := s.store.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	return BuildSnapshot(settings, rules, time.Now(), func(key, value string, parseErr error) {
		s.log.Warn("invalid policy value, feature disabled", "key", key, "value", value, "error", parseErr)
	}), nil
}

// ListSettings returns all settings in stored form.
func (s *Service) ListSettings(ctx context.Context) ([]repository.Setting, error) {
	return s.store.List(ctx)
}

// UpdateSetting validates and applies an administrative value change.
// Out-of-range values (negative intervals, unknown strategies) are rejected
// immediately; they never reach the store.
func (s *Service) UpdateSetting(ctx context.Context, key, value string) (repository.Setting, error) {
	kind, known := keySpecs[key]
	if !known {
		return repository.Setting{}, apperr.NotFound("unknown setting key")
	}

	if err := validateValue(kind, value); err != nil {
		return repository.Setting{}, apperr.Validation(err.Error()).WithOp("policy.UpdateSetting")
	}

	updated, err := s.store.Update(ctx, key, strings.TrimSpace(value))
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Setting{}, apperr.NotFound("unknown setting key")
	}
	if err != nil {
		return repository.Setting{}, err
	}

	s.log.Info("policy setting updated", "key", key, "value", updated.Value)
	return updated, nil
}

// ListRules returns the status rotation rule table.
func (s *Service) ListRules(ctx context.Context) ([]repository.StatusRotationRule, error) {
	return s.store.ListRules(ctx)
}

// UpsertRule validates and stores one status rotation rule.
func (s *Service) UpsertRule(ctx context.Context, rule repository.StatusRotationRule) error {
	if rule.IntervalMinutes < 0 || rule.MaxAgeMinutes < 0 || rule.MaxAssignments < 0 {
		return apperr.Validation("rotation rule values must not be negative")
	}
	if err := s.store.UpsertRule(ctx, rule); err != nil {
		return err
	}
	s.log.Info("status rotation rule updated", "status_id", rule.StatusID, "enabled", rule.Enabled)
	return nil
}

func validateValue(kind valueKind, value string) error {
	trimmed := strings.TrimSpace(value)

	switch kind {
	case kindBool:
		if _, err := strconv.ParseBool(trimmed); err != nil {
			return errors.New("value must be a boolean")
		}
	case kindInt:
		v, err := strconv.Atoi(trimmed)
		if err != nil {
			return errors.New("value must be an integer")
		}
		if v < 0 {
			return errors.New("value must not be negative")
		}
	case kindTime:
		if _, err := ParseTimeOfDay(trimmed); err != nil {
			return errors.New("value must be HH:MM")
		}
	case kindUUID:
		if trimmed == "" {
			return nil // clearing the fallback admin is allowed
		}
		if _, err := uuid.Parse(trimmed); err != nil {
			return errors.New("value must be a UUID")
		}
	case kindStrategy:
		if trimmed != StrategyRoundRobin && trimmed != StrategyTerritory {
			return errors.New("strategy must be round_robin or territory")
		}
	}

	return nil
}

var _ Loader = (*Service)(nil)

package policy

import (
	"context"
	"testing"

	"crm_rotation_backend/internal/policy/repository"
	"crm_rotation_backend/platform/apperr"
	"crm_rotation_backend/platform/logger"
)

type fakeStore struct {
	settings map[string]repository.Setting
	rules    []repository.StatusRotationRule
}

func newFakeStore() *fakeStore {
	return &fakeStore{settings: map[string]repository.Setting{
		KeyNoActivityTime: {Key: KeyNoActivityTime, Value: "120", ValueType: "int", Category: "rotation"},
	}}
}

func (f *fakeStore) List(ctx context.Context) ([]repository.Setting, error) {
	out := make([]repository.Setting, 0, len(f.settings))
	for _, s := range f.settings {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (repository.Setting, error) {
	s, ok := f.settings[key]
	if !ok {
		return repository.Setting{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Update(ctx context.Context, key, value string) (repository.Setting, error) {
	s, ok := f.settings[key]
	if !ok {
		return repository.Setting{}, repository.ErrNotFound
	}
	s.Value = value
	f.settings[key] = s
	return s, nil
}

func (f *fakeStore) ListRules(ctx context.Context) ([]repository.StatusRotationRule, error) {
	return f.rules, nil
}

func (f *fakeStore) UpsertRule(ctx context.Context, rule repository.StatusRotationRule) error {
	f.rules = append(f.rules, rule)
	return nil
}

func TestUpdateSetting_RejectsNegativeInterval(t *testing.T) {
	svc := New(newFakeStore(), logger.New("test"))

	_, err := svc.UpdateSetting(context.Background(), KeyNoActivityTime, "-10")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateSetting_RejectsUnknownKey(t *testing.T) {
	svc := New(newFakeStore(), logger.New("test"))

	_, err := svc.UpdateSetting(context.Background(), "no_such_key", "1")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUpdateSetting_AppliesValidValue(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("test"))

	updated, err := svc.UpdateSetting(context.Background(), KeyNoActivityTime, "90")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Value != "90" {
		t.Fatalf("expected stored value 90, got %q", updated.Value)
	}
}

func TestUpsertRule_RejectsNegativeValues(t *testing.T) {
	svc := New(newFakeStore(), logger.New("test"))

	err := svc.UpsertRule(context.Background(), repository.StatusRotationRule{
		StatusID:        40,
		IntervalMinutes: -1,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package compliance

import (
	"context"
	"testing"

	"crm_rotation_backend/internal/compliance/repository"
	"crm_rotation_backend/platform/apperr"
)

type memStore struct {
	entries map[string]repository.Entry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]repository.Entry)}
}

func (m *memStore) Exists(_ context.Context, phone string) (bool, error) {
	_, ok := m.entries[phone]
	return ok, nil
}

func (m *memStore) Add(_ context.Context, e repository.Entry) error {
	if _, ok := m.entries[e.Phone]; ok {
		return repository.ErrDuplicate
	}
	m.entries[e.Phone] = e
	return nil
}

func (m *memStore) Remove(_ context.Context, phone string) error {
	if _, ok := m.entries[phone]; !ok {
		return repository.ErrNotFound
	}
	delete(m.entries, phone)
	return nil
}

func (m *memStore) List(_ context.Context, _ int) ([]repository.Entry, error) {
	out := make([]repository.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func TestAddBlocksImmediately(t *testing.T) {
	svc := New(newMemStore())
	ctx := context.Background()

	blocked, err := svc.IsBlocked(ctx, "9876543210")
	if err != nil || blocked {
		t.Fatalf("unlisted number must not be blocked: %v %v", blocked, err)
	}

	if _, err := svc.Add(ctx, "9876543210", "customer request", "admin"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Same number in a different input format must hit the same key.
	blocked, err = svc.IsBlocked(ctx, "+91 98765 43210")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !blocked {
		t.Fatalf("addition must be effective on the next check")
	}
}

func TestAddDuplicateConflicts(t *testing.T) {
	svc := New(newMemStore())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "9876543210", "first", "admin"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := svc.Add(ctx, "+919876543210", "second", "admin")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("duplicate add must conflict, got %v", err)
	}
}

func TestRemoveUnblocks(t *testing.T) {
	svc := New(newMemStore())
	ctx := context.Background()

	if _, err := svc.Add(ctx, "9876543210", "request", "admin"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Remove(ctx, "9876543210"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	blocked, err := svc.IsBlocked(ctx, "9876543210")
	if err != nil || blocked {
		t.Fatalf("removed number must not be blocked: %v %v", blocked, err)
	}

	if err := svc.Remove(ctx, "9876543210"); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("removing an absent entry must be not found, got %v", err)
	}
}

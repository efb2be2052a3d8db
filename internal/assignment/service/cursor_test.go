package service

import (
	"sort"
	"testing"

	"github.com/google/uuid"
)

func sortedIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	sort.Slice(ids, func(i, j int) bool { return less(ids[i], ids[j]) })
	return ids
}

func TestNextAgentEmpty(t *testing.T) {
	if _, ok := NextAgent(nil, uuid.Nil); ok {
		t.Fatalf("empty candidate list must not pick")
	}
}

func TestNextAgentZeroCursorPicksFirst(t *testing.T) {
	ids := sortedIDs(3)
	got, ok := NextAgent(ids, uuid.Nil)
	if !ok || got != ids[0] {
		t.Fatalf("zero cursor must pick the first candidate")
	}
}

func TestNextAgentAdvancesAndWraps(t *testing.T) {
	ids := sortedIDs(3)

	got, _ := NextAgent(ids, ids[0])
	if got != ids[1] {
		t.Fatalf("cursor at first must pick second")
	}

	got, _ = NextAgent(ids, ids[2])
	if got != ids[0] {
		t.Fatalf("cursor at last must wrap to first")
	}
}

func TestNextAgentCursorOnRemovedAgent(t *testing.T) {
	ids := sortedIDs(4)
	removed := ids[1]
	remaining := []uuid.UUID{ids[0], ids[2], ids[3]}

	got, ok := NextAgent(remaining, removed)
	if !ok || got != ids[2] {
		t.Fatalf("cursor on a removed agent must pick the next higher id")
	}
}

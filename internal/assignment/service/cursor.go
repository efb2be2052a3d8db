package service

import (
	"bytes"

	"github.com/google/uuid"
)

// NextAgent picks the next agent after the cursor position from candidates
// ordered ascending by id, wrapping around at the end. A zero cursor (first
// ever assignment, or cursor pointing at a removed agent below all
// candidates) selects the first candidate. Returns false when candidates is
// empty.
//
// The function is pure so rotation fairness is testable without a database;
// the repository supplies the lock around it.
func NextAgent(candidates []uuid.UUID, cursor uuid.UUID) (uuid.UUID, bool) {
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	for _, id := range candidates {
		if bytes.Compare(id[:], cursor[:]) > 0 {
			return id, true
		}
	}
	return candidates[0], true
}

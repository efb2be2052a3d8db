// Package domain holds the lead status taxonomy and its invariants.
package domain

import (
	"fmt"
	"sort"
)

// Well-known status ids, matching the seeded lead_statuses table. The
// engine's lifecycle logic (queue, dump conversion, conversion) is pinned to
// these; additional statuses participate only through the data-driven
// rotation rule table.
const (
	StatusNew              = 10
	StatusContacted        = 20
	StatusFollowUp         = 30
	StatusNoAnswer         = 40
	StatusNotInterested    = 50
	StatusMeetingScheduled = 60
	StatusDealWon          = 70
	StatusDealLost         = 80
	StatusDump             = 90
	StatusColdCall         = 100
)

// Status is one row of the status taxonomy.
type Status struct {
	ID        int
	Name      string
	SortOrder int
}

// Taxonomy is the closed set of statuses and their legal sub-statuses.
type Taxonomy struct {
	statuses    map[int]Status
	subStatuses map[int]map[string]struct{}
}

// NewTaxonomy builds a taxonomy from status rows and (statusID, subStatus)
// pairs.
func NewTaxonomy(statuses []Status, pairs map[int][]string) Taxonomy {
	t := Taxonomy{
		statuses:    make(map[int]Status, len(statuses)),
		subStatuses: make(map[int]map[string]struct{}, len(pairs)),
	}
	for _, s := range statuses {
		t.statuses[s.ID] = s
	}
	for statusID, names := range pairs {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		t.subStatuses[statusID] = set
	}
	return t
}

// ValidatePair reports whether (statusID, subStatus) is a legal combination.
// A nil sub-status is always legal for a known status.
func (t Taxonomy) ValidatePair(statusID int, subStatus *string) error {
	if _, ok := t.statuses[statusID]; !ok {
		return fmt.Errorf("unknown status id %d", statusID)
	}
	if subStatus == nil || *subStatus == "" {
		return nil
	}
	if _, ok := t.subStatuses[statusID][*subStatus]; !ok {
		return fmt.Errorf("sub-status %q is not valid under status %d", *subStatus, statusID)
	}
	return nil
}

// EnsureStatuses verifies that every referenced status id exists. Called at
// startup against the rotation rule table so a rule can never point at a
// status the taxonomy does not know.
func (t Taxonomy) EnsureStatuses(ids []int) error {
	missing := make([]int, 0)
	for _, id := range ids {
		if _, ok := t.statuses[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		return fmt.Errorf("rotation rules reference unknown status ids %v", missing)
	}
	return nil
}

// Name returns the display name for a status id.
func (t Taxonomy) Name(statusID int) string {
	if s, ok := t.statuses[statusID]; ok {
		return s.Name
	}
	return fmt.Sprintf("status-%d", statusID)
}

package graph

import (
	"sort"
	"time"

	"discourse/issuegraph/internal/pattern"
)

// Record is the canonical reconciled form of one node. Records are owned by
// the snapshot; later stages read them and produce separate claim and link
// values instead of mutating them.
type Record struct {
	ID      string
	Title   string
	Role    pattern.Role
	Sources []Source

	// CreatedAt is the repaired creation time: the earliest of the page-level
	// timestamps and every block timestamp on the page.
	CreatedAt time.Time
	Creator   Identity
	Fields    map[pattern.Field]FieldValue

	LogEntries      []LogEntry
	FirstLogEntryAt time.Time
}

// Field returns the value of field, or "" when absent
func (r *Record) Field(f pattern.Field) string {
	return r.Fields[f].Value
}

// Snapshot holds the reconciled record set with a role index and the
// explicit relations between records.
type Snapshot struct {
	Records   map[string]*Record
	Relations Relations
	byRole    map[pattern.Role][]string
}

// NewSnapshot builds a Snapshot from reconciled records. Relations whose
// endpoints are not both records are dropped.
func NewSnapshot(records []*Record, relations Relations) *Snapshot {
	recordMap := make(map[string]*Record, len(records))
	byRole := make(map[pattern.Role][]string)
	for _, r := range records {
		recordMap[r.ID] = r
		byRole[r.Role] = append(byRole[r.Role], r.ID)
	}
	for role := range byRole {
		sort.Strings(byRole[role])
	}

	rel := make(Relations)
	for a, others := range relations {
		if _, ok := recordMap[a]; !ok {
			continue
		}
		for b := range others {
			if _, ok := recordMap[b]; !ok {
				continue
			}
			rel.Add(a, b)
		}
	}

	return &Snapshot{
		Records:   recordMap,
		Relations: rel,
		byRole:    byRole,
	}
}

// ByRole returns the records with the given role, ordered by ID
func (s *Snapshot) ByRole(role pattern.Role) []*Record {
	ids := s.byRole[role]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Records[id])
	}
	return out
}

// Count returns the number of records with the given role
func (s *Snapshot) Count(role pattern.Role) int {
	return len(s.byRole[role])
}

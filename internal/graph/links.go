package graph

import (
	"sort"
	"strings"
	"time"

	"discourse/issuegraph/internal/pattern"
)

// LinkTier names the matching strategy that produced a link
type LinkTier string

const (
	TierRelation    LinkTier = "relation"
	TierTitle       LinkTier = "title"
	TierDescription LinkTier = "description"
	TierNone        LinkTier = "none"
)

// DefaultMinDescriptionLength is the shortest description remainder the
// fallback tier will search for
const DefaultMinDescriptionLength = 20

// ResultRef is a linked result node
type ResultRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Creator   Identity  `json:"creator,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Link connects a claimed work node to its results
type Link struct {
	WorkID           string      `json:"work_id"`
	Tier             LinkTier    `json:"tier"`
	Results          []ResultRef `json:"results"`
	EarliestResultAt time.Time   `json:"earliest_result_at"`
}

// Links is the output of the Link Resolver keyed by work ID
type Links map[string]*Link

// ResolveLinks links every claimed work node to result nodes. Tiers are tried
// in order and the first tier yielding a match wins; later tiers are never
// consulted for that work node.
func ResolveLinks(snap *Snapshot, attr *Attribution, minDescLen int) Links {
	if minDescLen <= 0 {
		minDescLen = DefaultMinDescriptionLength
	}
	results := snap.ByRole(pattern.RoleResult)

	links := make(Links, len(attr.Claims))
	for _, claim := range attr.Claims {
		work := snap.Records[claim.WorkID]
		if work == nil {
			continue
		}
		tier, matched := TierNone, []*Record(nil)
		for _, try := range []struct {
			tier  LinkTier
			match func() []*Record
		}{
			{TierRelation, func() []*Record { return matchRelations(snap, work) }},
			{TierTitle, func() []*Record { return matchBackreference(work, results) }},
			{TierDescription, func() []*Record { return matchDescription(work, results, minDescLen) }},
		} {
			if m := try.match(); len(m) > 0 {
				tier, matched = try.tier, m
				break
			}
		}
		links[work.ID] = newLink(work.ID, tier, matched)
	}
	return links
}

func newLink(workID string, tier LinkTier, matched []*Record) *Link {
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			// unknown timestamps sort last
			if a.CreatedAt.IsZero() || b.CreatedAt.IsZero() {
				return b.CreatedAt.IsZero()
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	link := &Link{WorkID: workID, Tier: tier, Results: make([]ResultRef, 0, len(matched))}
	for _, r := range matched {
		creator, _ := ResultCreatorChain.Resolve(r)
		link.Results = append(link.Results, ResultRef{
			ID:        r.ID,
			Title:     r.Title,
			Creator:   creator,
			CreatedAt: r.CreatedAt,
		})
		link.EarliestResultAt = Earliest(link.EarliestResultAt, r.CreatedAt)
	}
	return link
}

// matchRelations returns result nodes explicitly related to work
func matchRelations(snap *Snapshot, work *Record) []*Record {
	var out []*Record
	for _, id := range snap.Relations.Related(work.ID) {
		if r := snap.Records[id]; r != nil && r.Role == pattern.RoleResult {
			out = append(out, r)
		}
	}
	return out
}

// matchBackreference returns results whose title contains [[<work title>]]
func matchBackreference(work *Record, results []*Record) []*Record {
	needle := strings.ToLower(pattern.Backreference(work.Title))
	var out []*Record
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Title), needle) {
			out = append(out, r)
		}
	}
	return out
}

// matchDescription searches result titles for the part of the work title
// after the category separator
func matchDescription(work *Record, results []*Record, minLen int) []*Record {
	_, desc, ok := pattern.SplitCategory(work.Title)
	if !ok {
		return nil
	}
	// Length and match both use the remainder as written, padding included
	desc = strings.ToLower(desc)
	if len([]rune(desc)) < minLen {
		return nil
	}
	var out []*Record
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Title), desc) {
			out = append(out, r)
		}
	}
	return out
}

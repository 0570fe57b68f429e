package graph

import (
	"time"

	"discourse/issuegraph/internal/pattern"
)

// ClaimType records how the claimer of a work node was determined
type ClaimType string

const (
	ClaimExplicit ClaimType = "explicit"
	ClaimInferred ClaimType = "inferred"
)

// Claim is the attribution of one claimed work node. Constructed once by
// Attribute and read-only afterwards.
type Claim struct {
	WorkID       string
	Title        string
	Creator      Identity
	Claimer      Identity
	Contributor  Identity
	AttributedBy string // chain link that produced Contributor
	Type         ClaimType
	ClaimedAt    time.Time
	CreatedAt    time.Time
}

// BothKnown reports whether creator and claimer are both populated
func (c *Claim) BothKnown() bool {
	return c.Creator.Known() && c.Claimer.Known()
}

// CrossPerson reports whether the work was claimed by someone other than the
// question's creator. False when either side is unknown.
func (c *Claim) CrossPerson() bool {
	return c.BothKnown() && c.Creator != c.Claimer
}

// Attribution is the output of the Attribution Resolver
type Attribution struct {
	Claims []*Claim // ordered by work ID

	// Unclaimed lists work nodes with neither a claimed-by field nor an
	// inferable claim
	Unclaimed []string

	// ActiveQuestions lists question nodes with dated log entries
	ActiveQuestions []string
}

// Attribute resolves creator, claimer and claim type for every work node in
// the snapshot.
func Attribute(snap *Snapshot) *Attribution {
	out := &Attribution{}

	for _, r := range snap.ByRole(pattern.RoleWork) {
		claim := attributeWork(r)
		if claim == nil {
			out.Unclaimed = append(out.Unclaimed, r.ID)
			continue
		}
		out.Claims = append(out.Claims, claim)
	}

	for _, r := range snap.ByRole(pattern.RoleQuestion) {
		if hasDatedEntries(r) {
			out.ActiveQuestions = append(out.ActiveQuestions, r.ID)
		}
	}

	return out
}

func attributeWork(r *Record) *Claim {
	creator, _ := CreatorChain.Resolve(r)
	contributor, via := ContributorChain.Resolve(r)

	claim := &Claim{
		WorkID:       r.ID,
		Title:        r.Title,
		Creator:      creator,
		Contributor:  contributor,
		AttributedBy: via,
		CreatedAt:    r.CreatedAt,
	}

	if fv, ok := r.Fields[pattern.FieldClaimedBy]; ok && fv.Value != "" {
		claim.Type = ClaimExplicit
		claim.Claimer = Identity(fv.Value)
		claim.ClaimedAt = fv.BlockAt
		return claim
	}

	// Inference needs a page creator; issue-created-by alone is not enough
	if hasDatedEntries(r) && r.Creator.Known() {
		claim.Type = ClaimInferred
		claim.Claimer = creator
		claim.ClaimedAt = r.FirstLogEntryAt
		return claim
	}

	return nil
}

func hasDatedEntries(r *Record) bool {
	return len(r.LogEntries) > 0
}

package graph

import "discourse/issuegraph/internal/pattern"

// ChainLink is one step of an attribution chain
type ChainLink struct {
	Field   string
	Extract func(r *Record) Identity
}

// Chain is an ordered list of extractors evaluated short-circuit
type Chain []ChainLink

// Resolve returns the first known identity in the chain and the name of the
// link that produced it. Unknown and "" are returned when every link is empty.
func (c Chain) Resolve(r *Record) (Identity, string) {
	if r == nil {
		return Unknown, ""
	}
	for _, link := range c {
		if id := link.Extract(r); id.Known() {
			return id, link.Field
		}
	}
	return Unknown, ""
}

// DeclaredCreator is the chain link name for the page-level creator
const DeclaredCreator = "creator"

func fieldLink(f pattern.Field) ChainLink {
	return ChainLink{
		Field:   string(f),
		Extract: func(r *Record) Identity { return Identity(r.Field(f)) },
	}
}

var declaredCreatorLink = ChainLink{
	Field:   DeclaredCreator,
	Extract: func(r *Record) Identity { return r.Creator },
}

// ContributorChain is the fixed precedence for the primary contributor of a
// record: made-by, claimed-by, author, then the declared creator.
var ContributorChain = Chain{
	fieldLink(pattern.FieldMadeBy),
	fieldLink(pattern.FieldClaimedBy),
	fieldLink(pattern.FieldAuthor),
	declaredCreatorLink,
}

// CreatorChain resolves who opened the question a work node grew from
var CreatorChain = Chain{
	fieldLink(pattern.FieldIssueCreatedBy),
	declaredCreatorLink,
}

// ResultCreatorChain resolves the author of a result node. Results are not
// claimed, so claimed-by plays no part.
var ResultCreatorChain = Chain{
	fieldLink(pattern.FieldMadeBy),
	fieldLink(pattern.FieldAuthor),
	declaredCreatorLink,
}

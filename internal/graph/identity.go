package graph

import "strings"

// Identity is a researcher name. The empty Identity means "unknown" and is
// carried through every stage rather than guessed.
type Identity string

// Unknown is the explicit missing-identity state
const Unknown Identity = ""

// Known reports whether the identity is populated
func (i Identity) Known() bool { return i != Unknown }

// Aliases maps raw names (emails, nicknames, old spellings) to canonical
// identities. Keys are stored lower-cased.
type Aliases map[string]Identity

// NewAliases builds a case-insensitive alias table
func NewAliases(raw map[string]string) Aliases {
	a := make(Aliases, len(raw))
	for alias, canonical := range raw {
		a[strings.ToLower(strings.TrimSpace(alias))] = Identity(strings.TrimSpace(canonical))
	}
	return a
}

// Normalize trims raw and applies the alias table
func (a Aliases) Normalize(raw string) Identity {
	name := strings.TrimSpace(raw)
	if name == "" {
		return Unknown
	}
	if canonical, ok := a[strings.ToLower(name)]; ok && canonical.Known() {
		return canonical
	}
	return Identity(name)
}

// Mapped reports whether raw has an entry in the alias table
func (a Aliases) Mapped(raw string) bool {
	_, ok := a[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// looksLikeEmail reports whether raw is an account address rather than a
// researcher name
func looksLikeEmail(raw string) bool {
	raw = strings.TrimSpace(raw)
	at := strings.IndexByte(raw, '@')
	if at <= 0 || at == len(raw)-1 || strings.ContainsAny(raw, " \t") {
		return false
	}
	return strings.Contains(raw[at+1:], ".")
}

package graph

import "sort"

// ExchangePair counts work handed from one researcher to another
type ExchangePair struct {
	Creator Identity `json:"creator"`
	Claimer Identity `json:"claimer"`
	Count   int      `json:"count"`
}

// ExchangeReport describes who picks up whose questions
type ExchangeReport struct {
	Pairs  []ExchangePair `json:"pairs"`
	Groups [][]string     `json:"groups"`

	// Contributors counts claims per claimer, self and cross alike
	Contributors map[Identity]int `json:"contributors"`
}

// ComputeExchange builds the creator to claimer network over claims with both
// sides known. Self-claims add the researcher to the network without an edge.
func ComputeExchange(claims []*Claim) *ExchangeReport {
	report := &ExchangeReport{Contributors: make(map[Identity]int)}
	uf := NewUnionFind()
	counts := make(map[[2]Identity]int)

	for _, c := range claims {
		if !c.BothKnown() {
			continue
		}
		report.Contributors[c.Claimer]++
		uf.Add(string(c.Creator))
		uf.Add(string(c.Claimer))
		if c.CrossPerson() {
			counts[[2]Identity{c.Creator, c.Claimer}]++
			uf.Union(string(c.Creator), string(c.Claimer))
		}
	}

	report.Pairs = make([]ExchangePair, 0, len(counts))
	for k, n := range counts {
		report.Pairs = append(report.Pairs, ExchangePair{Creator: k[0], Claimer: k[1], Count: n})
	}
	sort.Slice(report.Pairs, func(i, j int) bool {
		a, b := report.Pairs[i], report.Pairs[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Creator != b.Creator {
			return a.Creator < b.Creator
		}
		return a.Claimer < b.Claimer
	})
	report.Groups = uf.Components()
	return report
}

package graph

import "sort"

// UnionFind implements union-find with path compression and union by rank.
// Elements are added lazily, so researchers appear as they are encountered.
type UnionFind struct {
	parent map[string]string
	rank   map[string]int
}

// NewUnionFind creates a new UnionFind where each element is its own component
func NewUnionFind(ids ...string) *UnionFind {
	uf := &UnionFind{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.Add(id)
	}
	return uf
}

// Add inserts id as a singleton component if it is not already present
func (uf *UnionFind) Add(id string) {
	if _, ok := uf.parent[id]; !ok {
		uf.parent[id] = id
	}
}

// Find returns the root of the component containing id, with path compression
func (uf *UnionFind) Find(id string) string {
	parent, ok := uf.parent[id]
	if !ok {
		return id
	}
	if parent != id {
		root := uf.Find(parent)
		uf.parent[id] = root
		return root
	}
	return id
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b string) bool {
	uf.Add(a)
	uf.Add(b)
	rootA := uf.Find(a)
	rootB := uf.Find(b)
	if rootA == rootB {
		return false
	}

	switch rankA, rankB := uf.rank[rootA], uf.rank[rootB]; {
	case rankA < rankB:
		uf.parent[rootA] = rootB
	case rankA > rankB:
		uf.parent[rootB] = rootA
	default:
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
	}
	return true
}

// Components returns all connected components. Members are sorted and
// components are ordered by size descending, then by first member.
func (uf *UnionFind) Components() [][]string {
	groups := make(map[string][]string)
	for id := range uf.parent {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}
	result := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		result = append(result, members)
	}
	sort.Slice(result, func(i, j int) bool {
		if len(result[i]) != len(result[j]) {
			return len(result[i]) > len(result[j])
		}
		return result[i][0] < result[j][0]
	})
	return result
}

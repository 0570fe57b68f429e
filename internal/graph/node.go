package graph

import (
	"sort"
	"time"

	"discourse/issuegraph/internal/pattern"
)

// Source identifies which export a node came from
type Source string

const (
	SourceJSONLD Source = "jsonld"
	SourceRoam   Source = "roam"
)

// Block is one child block of a page. CreatedAt is zero when the export has
// no timestamp for it.
type Block struct {
	UID       string
	Text      string
	CreatedAt time.Time
	Children  []Block
}

// FieldValue is an attribute extracted from page content. BlockAt is the
// creation time of the block the line was found in, zero for exports
// without blocks.
type FieldValue struct {
	Value   string
	BlockAt time.Time
}

// LogEntry is a dated child of an experimental-log section
type LogEntry struct {
	Date      string
	CreatedAt time.Time
}

// Node is a single page as read from one export
type Node struct {
	ID         string
	Title      string
	Content    string
	Source     Source
	Role       pattern.Role
	CreatedAt  time.Time
	Creator    string
	Blocks     []Block
	Fields     map[pattern.Field]FieldValue
	LogEntries []LogEntry
}

// EarliestBlockAt returns the earliest creation time across every block on
// the page, at any depth.
func (n *Node) EarliestBlockAt() time.Time {
	var earliest time.Time
	var walk func(blocks []Block)
	walk = func(blocks []Block) {
		for _, b := range blocks {
			earliest = Earliest(earliest, b.CreatedAt)
			walk(b.Children)
		}
	}
	walk(n.Blocks)
	return earliest
}

// HasBlockTimestamps reports whether any block on the page carries a creation time
func (n *Node) HasBlockTimestamps() bool {
	return !n.EarliestBlockAt().IsZero()
}

// Relations maps a node ID to the IDs it is explicitly related to. Relations
// are stored in both directions.
type Relations map[string]map[string]struct{}

// Add records an undirected relation between a and b
func (r Relations) Add(a, b string) {
	if a == "" || b == "" || a == b {
		return
	}
	if r[a] == nil {
		r[a] = make(map[string]struct{})
	}
	if r[b] == nil {
		r[b] = make(map[string]struct{})
	}
	r[a][b] = struct{}{}
	r[b][a] = struct{}{}
}

// Related returns the sorted IDs related to id
func (r Relations) Related(id string) []string {
	set := r[id]
	ids := make([]string, 0, len(set))
	for other := range set {
		ids = append(ids, other)
	}
	sort.Strings(ids)
	return ids
}

// Export is one parsed export document
type Export struct {
	Source    Source
	Nodes     []Node
	Relations Relations
	Records   int // records seen in the document
	Skipped   int // malformed records
	Excluded  int // pages with no discourse role

	// BadTimestamps counts kept nodes whose creation time could not be read
	BadTimestamps int
}

// NewExport returns an empty export for source
func NewExport(source Source) *Export {
	return &Export{Source: source, Relations: make(Relations)}
}

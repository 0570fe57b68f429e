package graph

import (
	"time"

	"go.uber.org/zap"

	"discourse/issuegraph/internal/pattern"
)

// ReconcileOptions holds reconciliation parameters
type ReconcileOptions struct {
	Aliases      Aliases
	MinMatchRate float64
	Logger       *zap.Logger
}

// DefaultReconcileOptions returns the defaults used when no config is given
func DefaultReconcileOptions() *ReconcileOptions {
	return &ReconcileOptions{MinMatchRate: 0.5}
}

// Validation compares the classified node sets of the two exports
type Validation struct {
	JSONLDNodes int     `json:"jsonld_nodes"`
	RoamNodes   int     `json:"roam_nodes"`
	Matched     int     `json:"matched"`
	OnlyJSONLD  int     `json:"only_jsonld"`
	OnlyRoam    int     `json:"only_roam"`
	TitleJoins  int     `json:"title_joins"`
	MatchRate   float64 `json:"match_rate"`
	Passed      bool    `json:"passed"`
}

// ReconcileStats describes what the reconciler had to decide
type ReconcileStats struct {
	Records          int            `json:"records"`
	Conflicts        int            `json:"conflicts"`
	ConflictsByField map[string]int `json:"conflicts_by_field"`
	RepairedCreation int            `json:"repaired_creation"`

	// UnresolvedCreators counts records whose creator is an account email
	// with no alias, because no export named the researcher
	UnresolvedCreators int        `json:"unresolved_creators"`
	Validation         Validation `json:"validation"`
}

// Reconcile merges the nodes of both exports into one record per identifier.
// Either export may be nil.
func Reconcile(jsonld, roam *Export, opts *ReconcileOptions) (*Snapshot, *ReconcileStats) {
	if opts == nil {
		opts = DefaultReconcileOptions()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if jsonld == nil {
		jsonld = NewExport(SourceJSONLD)
	}
	if roam == nil {
		roam = NewExport(SourceRoam)
	}

	stats := &ReconcileStats{ConflictsByField: make(map[string]int)}

	primary := make(map[string]*Node, len(jsonld.Nodes))
	order := make([]string, 0, len(jsonld.Nodes))
	titleIndex := make(map[string][]string)
	for i := range jsonld.Nodes {
		n := &jsonld.Nodes[i]
		if _, dup := primary[n.ID]; dup {
			log.Debug("duplicate node in export", zap.String("source", string(jsonld.Source)), zap.String("id", n.ID))
			continue
		}
		primary[n.ID] = n
		order = append(order, n.ID)
		titleIndex[n.Title] = append(titleIndex[n.Title], n.ID)
	}

	secondary := make(map[string]*Node, len(roam.Nodes))
	for i := range roam.Nodes {
		n := &roam.Nodes[i]
		id := n.ID
		if _, ok := primary[id]; !ok {
			// Identifiers disagree; join on an unambiguous title instead
			if ids := titleIndex[n.Title]; len(ids) == 1 {
				if _, taken := secondary[ids[0]]; !taken {
					id = ids[0]
					stats.Validation.TitleJoins++
				}
			}
		}
		if _, dup := secondary[id]; dup {
			log.Debug("duplicate node in export", zap.String("source", string(roam.Source)), zap.String("id", n.ID))
			continue
		}
		secondary[id] = n
		if _, ok := primary[id]; !ok {
			order = append(order, id)
		}
	}

	v := &stats.Validation
	v.JSONLDNodes = len(primary)
	v.RoamNodes = len(secondary)
	for id := range secondary {
		if _, ok := primary[id]; ok {
			v.Matched++
		}
	}
	v.OnlyJSONLD = v.JSONLDNodes - v.Matched
	v.OnlyRoam = v.RoamNodes - v.Matched
	if v.JSONLDNodes > 0 {
		v.MatchRate = float64(v.Matched) / float64(v.JSONLDNodes)
		v.Passed = v.MatchRate >= opts.MinMatchRate || v.RoamNodes == 0
	} else {
		v.Passed = v.RoamNodes == 0
	}
	if !v.Passed {
		log.Warn("exports disagree on node set",
			zap.Float64("match_rate", v.MatchRate),
			zap.Float64("min_match_rate", opts.MinMatchRate),
			zap.Int("jsonld_nodes", v.JSONLDNodes),
			zap.Int("roam_nodes", v.RoamNodes),
			zap.Int("matched", v.Matched))
	}

	records := make([]*Record, 0, len(order))
	for _, id := range order {
		r := mergeNodes(id, primary[id], secondary[id], opts.Aliases, stats, log)
		records = append(records, r)
	}
	stats.Records = len(records)

	relations := make(Relations)
	for _, exp := range []*Export{jsonld, roam} {
		for a, others := range exp.Relations {
			for b := range others {
				relations.Add(a, b)
			}
		}
	}

	return NewSnapshot(records, relations), stats
}

// candidate is one export's value for a contested attribute
type candidate struct {
	source  Source
	value   string
	blockAt time.Time
	backed  bool // supplied together with a block-level timestamp

	// weak marks an account email with no alias; it never outranks a name
	weak bool
}

func (c candidate) present() bool { return c.value != "" }

// resolveConflict picks between the JSON-LD and Roam values of an attribute.
// A value backed by a block timestamp has stronger provenance; otherwise the
// JSON-LD value stands.
func resolveConflict(a, b candidate) (candidate, bool) {
	switch {
	case !a.present():
		return b, false
	case !b.present():
		return a, false
	case a.weak != b.weak:
		if a.weak {
			return b, false
		}
		return a, false
	case a.value == b.value:
		if b.backed && !a.backed {
			return b, false
		}
		return a, false
	case b.backed && !a.backed:
		return b, true
	default:
		return a, true
	}
}

func mergeNodes(id string, a, b *Node, aliases Aliases, stats *ReconcileStats, log *zap.Logger) *Record {
	r := &Record{ID: id, Fields: make(map[pattern.Field]FieldValue)}
	var nodes []*Node
	for _, n := range []*Node{a, b} {
		if n != nil {
			nodes = append(nodes, n)
			r.Sources = append(r.Sources, n.Source)
		}
	}

	noteConflict := func(name string, winner candidate) {
		stats.Conflicts++
		stats.ConflictsByField[name]++
		log.Debug("conflicting values across exports",
			zap.String("id", id),
			zap.String("field", name),
			zap.String("winner", string(winner.source)))
	}

	// Title and role. Titles are not block-backed, so JSON-LD wins.
	title, conflict := resolveConflict(titleCandidate(a), titleCandidate(b))
	if conflict {
		noteConflict("title", title)
	}
	r.Title = title.value
	r.Role = pattern.Classify(r.Title)

	// Creation timestamp repair
	var pageLevel time.Time
	for _, n := range nodes {
		pageLevel = Earliest(pageLevel, n.CreatedAt)
		r.CreatedAt = Earliest(r.CreatedAt, n.CreatedAt, n.EarliestBlockAt())
	}
	if !pageLevel.IsZero() && r.CreatedAt.Before(pageLevel) {
		stats.RepairedCreation++
	}

	// Declared creator
	creator, conflict := resolveConflict(creatorCandidate(a, aliases), creatorCandidate(b, aliases))
	if conflict {
		noteConflict("creator", creator)
	}
	r.Creator = Identity(creator.value)
	if creator.weak {
		stats.UnresolvedCreators++
		log.Debug("creator known only by account email", zap.String("id", id), zap.String("creator", creator.value))
	}

	// Content fields
	for _, f := range pattern.Fields {
		winner, conflict := resolveConflict(fieldCandidate(a, f, aliases), fieldCandidate(b, f, aliases))
		if conflict {
			noteConflict(string(f), winner)
		}
		if winner.present() {
			r.Fields[f] = FieldValue{Value: winner.value, BlockAt: winner.blockAt}
		}
	}

	// Experimental log: prefer the export whose entries carry timestamps
	for _, n := range nodes {
		if len(n.LogEntries) == 0 {
			continue
		}
		if len(r.LogEntries) == 0 {
			r.LogEntries = n.LogEntries
			continue
		}
		if firstEntryAt(r.LogEntries, false).IsZero() && !firstEntryAt(n.LogEntries, false).IsZero() {
			r.LogEntries = n.LogEntries
		}
	}
	r.FirstLogEntryAt = firstEntryAt(r.LogEntries, true)

	return r
}

// firstEntryAt returns the earliest entry creation time. With fallback, the
// entries' daily-note dates are used when no entry has a block timestamp.
func firstEntryAt(entries []LogEntry, fallback bool) time.Time {
	var first time.Time
	for _, e := range entries {
		first = Earliest(first, e.CreatedAt)
	}
	if !first.IsZero() || !fallback {
		return first
	}
	for _, e := range entries {
		if d, ok := pattern.ParseDailyNote(e.Date); ok {
			first = Earliest(first, d)
		}
	}
	return first
}

func titleCandidate(n *Node) candidate {
	if n == nil {
		return candidate{}
	}
	return candidate{source: n.Source, value: n.Title}
}

func creatorCandidate(n *Node, aliases Aliases) candidate {
	if n == nil {
		return candidate{}
	}
	return candidate{
		source: n.Source,
		value:  string(aliases.Normalize(n.Creator)),
		backed: n.HasBlockTimestamps(),
		weak:   looksLikeEmail(n.Creator) && !aliases.Mapped(n.Creator),
	}
}

func fieldCandidate(n *Node, f pattern.Field, aliases Aliases) candidate {
	if n == nil {
		return candidate{}
	}
	fv, ok := n.Fields[f]
	if !ok {
		return candidate{}
	}
	value := fv.Value
	if f != pattern.FieldStatus {
		value = string(aliases.Normalize(value))
	}
	return candidate{
		source:  n.Source,
		value:   value,
		blockAt: fv.BlockAt,
		backed:  !fv.BlockAt.IsZero(),
	}
}

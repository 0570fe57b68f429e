package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discourse/issuegraph/internal/pattern"
)

const workTitle = "@exp/actin density under load"

func TestReconcile_CreationRepairTakesMinimum(t *testing.T) {
	// Page-level timestamps were reset by a page merge; the oldest block
	// still remembers when the page really started.
	jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle, created(at(10))))
	rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle, created(at(8)), block(at(3)), block(at(6))))

	snap, stats := Reconcile(jl, rm, nil)

	r := snap.Records["w1"]
	require.NotNil(t, r)
	assert.True(t, r.CreatedAt.Equal(at(3)), "got %v", r.CreatedAt)
	assert.Equal(t, 1, stats.RepairedCreation)
	assert.ElementsMatch(t, []Source{SourceJSONLD, SourceRoam}, r.Sources)
}

func TestReconcile_CreationFromSingleSource(t *testing.T) {
	jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle))
	rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle, created(at(2))))

	snap, stats := Reconcile(jl, rm, nil)
	assert.True(t, snap.Records["w1"].CreatedAt.Equal(at(2)))
	assert.Zero(t, stats.RepairedCreation)
}

func TestReconcile_CreatorConflict(t *testing.T) {
	cases := []struct {
		name      string
		roamOpts  []nodeOpt
		want      Identity
		conflicts int
	}{
		{
			name:      "roam block-backed wins",
			roamOpts:  []nodeOpt{creator("R2"), block(at(1))},
			want:      "R2",
			conflicts: 1,
		},
		{
			name:      "neither backed falls back to jsonld",
			roamOpts:  []nodeOpt{creator("R2")},
			want:      "R1",
			conflicts: 1,
		},
		{
			name:     "roam only",
			roamOpts: []nodeOpt{creator("R1"), block(at(1))},
			want:     "R1",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle, creator("R1")))
			rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle, c.roamOpts...))

			snap, stats := Reconcile(jl, rm, nil)
			assert.Equal(t, c.want, snap.Records["w1"].Creator)
			assert.Equal(t, c.conflicts, stats.ConflictsByField["creator"])
		})
	}
}

func TestReconcile_FieldConflictKeepsBlockTime(t *testing.T) {
	jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle,
		field(pattern.FieldClaimedBy, "Alice", time.Time{})))
	rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle,
		field(pattern.FieldClaimedBy, "Bob", at(4))))

	snap, stats := Reconcile(jl, rm, nil)

	fv := snap.Records["w1"].Fields[pattern.FieldClaimedBy]
	assert.Equal(t, "Bob", fv.Value)
	assert.True(t, fv.BlockAt.Equal(at(4)))
	assert.Equal(t, 1, stats.Conflicts)
	assert.Equal(t, 1, stats.ConflictsByField[string(pattern.FieldClaimedBy)])
}

func TestReconcile_AgreeingValuesKeepBlockTime(t *testing.T) {
	jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle,
		field(pattern.FieldClaimedBy, "Bob", time.Time{})))
	rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle,
		field(pattern.FieldClaimedBy, "Bob", at(4))))

	snap, stats := Reconcile(jl, rm, nil)

	fv := snap.Records["w1"].Fields[pattern.FieldClaimedBy]
	assert.Equal(t, "Bob", fv.Value)
	assert.True(t, fv.BlockAt.Equal(at(4)), "agreeing value should carry the block time")
	assert.Zero(t, stats.Conflicts)
}

func TestReconcile_AliasesApplyBeforeComparison(t *testing.T) {
	jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle, creator("Alice Chen")))
	rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle, creator("alice@lab.org"), block(at(0)),
		field(pattern.FieldClaimedBy, "A. Chen", at(1))))

	snap, stats := Reconcile(jl, rm, &ReconcileOptions{
		Aliases: NewAliases(map[string]string{
			"alice@lab.org": "Alice Chen",
			"A. Chen":       "Alice Chen",
		}),
		MinMatchRate: 0.5,
	})

	r := snap.Records["w1"]
	assert.Equal(t, Identity("Alice Chen"), r.Creator)
	assert.Equal(t, "Alice Chen", r.Field(pattern.FieldClaimedBy))
	assert.Zero(t, stats.Conflicts)
}

func TestReconcile_UnaliasedEmailYieldsToName(t *testing.T) {
	jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle, creator("Alice")))
	rm := exportOf(SourceRoam,
		newNode(SourceRoam, "w1", workTitle, creator("alice@lab.org"), block(at(0))),
		newNode(SourceRoam, "w2", "@exp/roam only", creator("bob@lab.org"), block(at(0))),
	)

	snap, stats := Reconcile(jl, rm, nil)

	assert.Equal(t, Identity("Alice"), snap.Records["w1"].Creator)
	assert.Zero(t, stats.ConflictsByField["creator"], "an email and a name are not a disagreement")
	assert.Equal(t, Identity("bob@lab.org"), snap.Records["w2"].Creator, "email stands in when nothing names the researcher")
	assert.Equal(t, 1, stats.UnresolvedCreators)
}

func TestReconcile_TitleJoinFallback(t *testing.T) {
	jl := exportOf(SourceJSONLD,
		newNode(SourceJSONLD, "abc", workTitle, created(at(5))),
		newNode(SourceJSONLD, "q1", "[[ISS]] - open question"),
	)
	rm := exportOf(SourceRoam,
		newNode(SourceRoam, "xyz", workTitle, created(at(1))),
	)

	snap, stats := Reconcile(jl, rm, nil)

	require.Len(t, snap.Records, 2)
	r := snap.Records["abc"]
	require.NotNil(t, r)
	assert.True(t, r.CreatedAt.Equal(at(1)))
	assert.Contains(t, r.Sources, SourceRoam)
	assert.Equal(t, 1, stats.Validation.TitleJoins)
	assert.Equal(t, 1, stats.Validation.Matched)
}

func TestReconcile_AmbiguousTitleDoesNotJoin(t *testing.T) {
	jl := exportOf(SourceJSONLD,
		newNode(SourceJSONLD, "a", workTitle),
		newNode(SourceJSONLD, "b", workTitle),
	)
	rm := exportOf(SourceRoam, newNode(SourceRoam, "c", workTitle))

	snap, stats := Reconcile(jl, rm, nil)
	assert.Len(t, snap.Records, 3)
	assert.Zero(t, stats.Validation.TitleJoins)
}

func TestReconcile_Validation(t *testing.T) {
	jlNodes := []Node{
		newNode(SourceJSONLD, "a", "@exp/a"),
		newNode(SourceJSONLD, "b", "@exp/b"),
		newNode(SourceJSONLD, "c", "@exp/c"),
		newNode(SourceJSONLD, "d", "@exp/d"),
	}
	cases := []struct {
		name    string
		matched []string
		rate    float64
		passed  bool
	}{
		{"below threshold", []string{"a"}, 0.25, false},
		{"at threshold", []string{"a", "b"}, 0.5, true},
		{"all", []string{"a", "b", "c", "d"}, 1, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var rmNodes []Node
			for _, id := range c.matched {
				rmNodes = append(rmNodes, newNode(SourceRoam, id, "@exp/"+id))
			}
			rmNodes = append(rmNodes, newNode(SourceRoam, "extra", "@exp/extra"))

			_, stats := Reconcile(exportOf(SourceJSONLD, jlNodes...), exportOf(SourceRoam, rmNodes...), nil)
			v := stats.Validation
			assert.InDelta(t, c.rate, v.MatchRate, 1e-9)
			assert.Equal(t, c.passed, v.Passed)
			assert.Equal(t, 4-len(c.matched), v.OnlyJSONLD)
			assert.Equal(t, 1, v.OnlyRoam)
		})
	}
}

func TestReconcile_MissingExport(t *testing.T) {
	jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle, creator("R1")))

	snap, stats := Reconcile(jl, nil, nil)
	assert.Len(t, snap.Records, 1)
	assert.True(t, stats.Validation.Passed, "an empty second export is not a mismatch")
}

func TestReconcile_LogEntries(t *testing.T) {
	t.Run("block times preferred", func(t *testing.T) {
		jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle,
			logEntry("October 31st, 2024", time.Time{})))
		rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle,
			logEntry("October 31st, 2024", at(30.5)),
			logEntry("November 2nd, 2024", at(32))))

		snap, _ := Reconcile(jl, rm, nil)
		r := snap.Records["w1"]
		assert.Len(t, r.LogEntries, 2)
		assert.True(t, r.FirstLogEntryAt.Equal(at(30.5)))
	})

	t.Run("daily note fallback", func(t *testing.T) {
		jl := exportOf(SourceJSONLD, newNode(SourceJSONLD, "w1", workTitle,
			logEntry("November 2nd, 2024", time.Time{}),
			logEntry("October 31st, 2024", time.Time{})))

		snap, _ := Reconcile(jl, nil, nil)
		want := time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC)
		assert.True(t, snap.Records["w1"].FirstLogEntryAt.Equal(want))
	})
}

func TestReconcile_RelationsFromBothExports(t *testing.T) {
	jl := exportOf(SourceJSONLD,
		newNode(SourceJSONLD, "w1", workTitle),
		newNode(SourceJSONLD, "r1", "[[RES]] - one"),
		newNode(SourceJSONLD, "r2", "[[RES]] - two"),
	)
	jl.Relations.Add("w1", "r1")
	rm := exportOf(SourceRoam, newNode(SourceRoam, "w1", workTitle))
	rm.Relations.Add("w1", "r2")

	snap, _ := Reconcile(jl, rm, nil)
	assert.Equal(t, []string{"r1", "r2"}, snap.Relations.Related("w1"))
}

func TestReconcile_Idempotent(t *testing.T) {
	build := func() (*Export, *Export) {
		jl := exportOf(SourceJSONLD,
			newNode(SourceJSONLD, "w1", workTitle, creator("R1"), created(at(3))),
			newNode(SourceJSONLD, "q1", "[[ISS]] - q", creator("R2")),
		)
		rm := exportOf(SourceRoam,
			newNode(SourceRoam, "w1", workTitle, creator("R3"), block(at(1))),
		)
		return jl, rm
	}
	a1, b1 := build()
	a2, b2 := build()
	s1, st1 := Reconcile(a1, b1, nil)
	s2, st2 := Reconcile(a2, b2, nil)
	assert.Equal(t, st1, st2)
	assert.Equal(t, s1.Records, s2.Records)
}

package roam

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discourse/issuegraph/internal/export"
	"discourse/issuegraph/internal/graph"
	"discourse/issuegraph/internal/pattern"
)

// 2024-10-01T09:00:00Z and friends, in epoch milliseconds
const (
	oct01 = 1727773200000
	oct02 = oct01 + 86400000
	oct03 = oct02 + 86400000
	oct06 = oct01 + 5*86400000
)

const sample = `[
  {
    "uid": "w1",
    "title": "@exp/actin density under load",
    "create-time": 1730000000000,
    "create-email": "r1@lab.org",
    "children": [
      {"uid": "b1", "string": "Status:: running", "create-time": 1727946000000},
      {"uid": "b2", "string": "Claimed By:: [[R2]]", "create-time": 1727859600000},
      {"uid": "b3", "string": "Experimental Log", "create-time": 1727773200000, "children": [
        {"uid": "b4", "string": "[[October 6th, 2024]] imaged", "create-time": 1728205200000},
        {"uid": "b5", "string": "loose note", "create-time": 1728205200000},
        {"uid": "b6", "string": "[[October 7th, 2024]]", "create-time": 1728291600000, "children": [
          {"uid": "b7", "string": "Claimed By:: [[Someone Later]]", "create-time": 1728291600000}
        ]}
      ]}
    ]
  },
  {"uid": "dn", "title": "October 6th, 2024", "create-time": 1728205200000},
  {"uid": "r1", "title": "[[RES]] - density rises", "create-time": 1728810000000}
]`

func TestParse_Sample(t *testing.T) {
	exp, err := Parse(strings.NewReader(sample), nil)
	require.NoError(t, err)

	assert.Equal(t, graph.SourceRoam, exp.Source)
	assert.Equal(t, 3, exp.Records)
	assert.Equal(t, 1, exp.Excluded)
	require.Len(t, exp.Nodes, 2)

	w := exp.Nodes[0]
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, pattern.RoleWork, w.Role)
	assert.Equal(t, "r1@lab.org", w.Creator)
	assert.True(t, w.CreatedAt.Equal(graph.FromEpochMillis(1730000000000)))

	// page create-time is later than the oldest block, as after a page merge
	assert.True(t, w.EarliestBlockAt().Equal(graph.FromEpochMillis(oct01)))

	claimed := w.Fields[pattern.FieldClaimedBy]
	assert.Equal(t, "R2", claimed.Value, "first block in document order wins")
	assert.True(t, claimed.BlockAt.Equal(graph.FromEpochMillis(oct02)))
	assert.True(t, w.Fields[pattern.FieldStatus].BlockAt.Equal(graph.FromEpochMillis(oct03)))

	require.Len(t, w.LogEntries, 2)
	assert.Equal(t, "October 6th, 2024", w.LogEntries[0].Date)
	assert.True(t, w.LogEntries[0].CreatedAt.Equal(graph.FromEpochMillis(oct06)))
	assert.Equal(t, time.UTC, w.LogEntries[0].CreatedAt.Location())

	assert.Contains(t, w.Content, "Claimed By:: [[R2]]")
	assert.Contains(t, w.Content, "loose note")

	assert.Equal(t, pattern.RoleResult, exp.Nodes[1].Role)
	assert.Empty(t, exp.Relations)
}

func TestParse_SkipsMalformedPages(t *testing.T) {
	doc := `[
		{"uid": "a", "title": "@exp/ok"},
		{"title": "@exp/no uid"},
		{"uid": "b", "title": "@exp/bad time", "create-time": "soon"},
		{"uid": "c", "title": "@exp/bad children", "children": "none"},
		{"uid": "d", "title": "[[ISS]] - fine"}
	]`

	exp, err := Parse(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, exp.Skipped)
	require.Len(t, exp.Nodes, 2)
	assert.Equal(t, "d", exp.Nodes[1].ID)
}

func TestParse_TruncatedKeepsEarlierPages(t *testing.T) {
	doc := `[{"uid": "a", "title": "@exp/one"}, {"uid": "b", "title": "@exp/two", "children": [{"uid": "x", "str`

	exp, err := Parse(strings.NewReader(doc), nil)
	require.NoError(t, err)
	require.Len(t, exp.Nodes, 1)
	assert.Equal(t, "a", exp.Nodes[0].ID)
	assert.Equal(t, 1, exp.Skipped)
}

func TestParse_Unreadable(t *testing.T) {
	for _, doc := range []string{"", `{"pages": []}`, "roam"} {
		_, err := Parse(strings.NewReader(doc), nil)
		assert.ErrorIs(t, err, export.ErrUnreadable, "doc %q", doc)
	}
}

func TestParse_NoLogHeader(t *testing.T) {
	doc := `[{"uid": "a", "title": "@exp/one", "children": [
		{"uid": "b", "string": "[[October 6th, 2024]] dated but not in a log", "create-time": 1728205200000}
	]}]`

	exp, err := Parse(strings.NewReader(doc), nil)
	require.NoError(t, err)
	require.Len(t, exp.Nodes, 1)
	assert.Empty(t, exp.Nodes[0].LogEntries)
}

func TestExtractRelations_AlwaysEmpty(t *testing.T) {
	rel, err := ExtractRelations(strings.NewReader(sample))
	require.NoError(t, err)
	assert.NotNil(t, rel)
	assert.Empty(t, rel)

	nodes, err := ExtractNodes(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

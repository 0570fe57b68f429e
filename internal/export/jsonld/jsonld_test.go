package jsonld

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discourse/issuegraph/internal/export"
	"discourse/issuegraph/internal/graph"
	"discourse/issuegraph/internal/pattern"
)

const sample = `{
  "@context": {"pages": "https://example.org/pages/"},
  "@graph": [
    {"@id": "pages:schemaISS", "@type": "nodeSchema", "label": "Issue"},
    {"@id": "pages:relInforms", "@type": "relationDef", "label": "informs"},
    {
      "@id": "pages:q1",
      "@type": "pages:schemaISS",
      "title": "[[ISS]] - does load change density",
      "creator": "R9",
      "created": "2024-09-28T10:00:00Z",
      "content": "Issue Created By:: [[R9]]"
    },
    {
      "@id": "pages:w1",
      "title": "@exp/actin density under load",
      "creator": {"name": "R1"},
      "created": "2024-10-01T09:00:00",
      "content": "Claimed By:: [R2](https://roam/R2)\nStatus:: running\n- Experimental Log\n    - [[October 31st, 2024]] first image"
    },
    {"@id": "pages:daily", "title": "October 31st, 2024", "created": "2024-10-31"},
    {"@id": "rel1", "@type": "relationInstance", "source": "pages:w1", "destination": "pages:r1", "predicate": "informs"},
    {"@id": "pages:r1", "@type": ["pages:schemaRES"], "title": "[[RES]] - density rises", "created": "2024-10-13T09:00:00+00:00"}
  ]
}`

func TestParse_Sample(t *testing.T) {
	exp, err := Parse(strings.NewReader(sample), nil)
	require.NoError(t, err)

	assert.Equal(t, graph.SourceJSONLD, exp.Source)
	assert.Equal(t, 7, exp.Records)
	assert.Zero(t, exp.Skipped)
	assert.Equal(t, 1, exp.Excluded, "the daily page has no discourse role")
	require.Len(t, exp.Nodes, 3)

	q := exp.Nodes[0]
	assert.Equal(t, "q1", q.ID)
	assert.Equal(t, pattern.RoleQuestion, q.Role)
	assert.Equal(t, "R9", q.Fields[pattern.FieldIssueCreatedBy].Value)

	w := exp.Nodes[1]
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, pattern.RoleWork, w.Role)
	assert.Equal(t, "R1", w.Creator)
	assert.True(t, w.CreatedAt.Equal(time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "R2", w.Fields[pattern.FieldClaimedBy].Value)
	assert.True(t, w.Fields[pattern.FieldClaimedBy].BlockAt.IsZero(), "JSON-LD has no block timestamps")
	assert.Equal(t, "running", w.Fields[pattern.FieldStatus].Value)
	require.Len(t, w.LogEntries, 1)
	assert.Equal(t, "October 31st, 2024", w.LogEntries[0].Date)

	assert.Equal(t, []string{"r1"}, exp.Relations.Related("w1"))
	assert.Equal(t, []string{"w1"}, exp.Relations.Related("r1"))
}

func TestParse_SkipsMalformedRecords(t *testing.T) {
	doc := `{"@graph": [
		{"@id": "pages:a", "title": "@exp/ok"},
		{"@id": 42, "title": "@exp/bad id type"},
		{"title": "@exp/no id"},
		"not an object",
		{"@id": "pages:d", "title": "[[RES]] - fine"}
	]}`

	exp, err := Parse(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, exp.Skipped)
	require.Len(t, exp.Nodes, 2)
	assert.Equal(t, "a", exp.Nodes[0].ID)
	assert.Equal(t, "d", exp.Nodes[1].ID)
}

func TestParse_BadTimestampKeepsNode(t *testing.T) {
	doc := `{"@graph": [
		{"@id": "pages:w1", "title": "@exp/bad time", "created": "last tuesday",
		 "creator": "R1", "content": "Claimed By:: [[R1]]"},
		{"@id": "pages:w2", "title": "@exp/compact offset", "created": "2024-10-01T00:00:00+0000"}
	]}`

	exp, err := Parse(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.Zero(t, exp.Skipped)
	assert.Equal(t, 1, exp.BadTimestamps)
	require.Len(t, exp.Nodes, 2)

	w1 := exp.Nodes[0]
	assert.Equal(t, "w1", w1.ID)
	assert.True(t, w1.CreatedAt.IsZero(), "unreadable time stays unknown")
	assert.Equal(t, "R1", w1.Fields[pattern.FieldClaimedBy].Value)

	assert.True(t, exp.Nodes[1].CreatedAt.Equal(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParse_TruncatedKeepsEarlierRecords(t *testing.T) {
	doc := `{"@graph": [
		{"@id": "pages:a", "title": "@exp/one"},
		{"@id": "pages:b", "title": "@exp/two"},
		{"@id": "pages:c", "title": "@exp/thr`

	exp, err := Parse(strings.NewReader(doc), nil)
	require.NoError(t, err)
	assert.Len(t, exp.Nodes, 2)
	assert.Equal(t, 1, exp.Skipped)
}

func TestParse_Unreadable(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"array":          `[{"@id": "pages:a"}]`,
		"no graph":       `{"@context": {}}`,
		"graph not list": `{"@graph": {"@id": "pages:a"}}`,
		"garbage":        `<html>`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, export.ErrUnreadable), "got %v", err)
		})
	}
}

func TestExtractNodesAndRelations(t *testing.T) {
	nodes, err := ExtractNodes(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	rel, err := ExtractRelations(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, rel, 2)

	_, err = ExtractRelations(strings.NewReader("nope"))
	assert.ErrorIs(t, err, export.ErrUnreadable)
}

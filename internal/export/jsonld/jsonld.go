// Package jsonld reads the JSON-LD export of a discourse graph: a single
// object whose "@graph" array holds pages, schema definitions and relation
// instances.
package jsonld

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"discourse/issuegraph/internal/export"
	"discourse/issuegraph/internal/graph"
	"discourse/issuegraph/internal/pattern"
)

const idPrefix = "pages:"

const (
	typeNodeSchema       = "nodeSchema"
	typeRelationDef      = "relationDef"
	typeRelationInstance = "relationInstance"
)

type record struct {
	ID          string          `json:"@id"`
	Type        json.RawMessage `json:"@type"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Creator     json.RawMessage `json:"creator"`
	Created     string          `json:"created"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Predicate   string          `json:"predicate"`
}

// Parse streams a JSON-LD export into nodes and relations. Malformed
// records are skipped and counted; only a document with no readable @graph
// returns an error, wrapping export.ErrUnreadable.
func Parse(r io.Reader, log *zap.Logger) (*graph.Export, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("source", string(graph.SourceJSONLD)))

	dec := json.NewDecoder(r)
	if err := export.ExpectDelim(dec, '{'); err != nil {
		return nil, err
	}

	exp := graph.NewExport(graph.SourceJSONLD)
	found := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, export.Unreadable("reading key: %v", err)
		}
		key, _ := tok.(string)
		if key != "@graph" {
			if err := export.SkipValue(dec); err != nil {
				return nil, export.Unreadable("skipping %q: %v", key, err)
			}
			continue
		}
		if err := export.ExpectDelim(dec, '['); err != nil {
			return nil, err
		}
		found = true

		res := export.StreamArray(dec, func(raw json.RawMessage) {
			handleRecord(exp, raw, log)
		})
		exp.Records += res.Records
		if res.Truncated {
			exp.Skipped++
			log.Warn("export truncated, keeping records read so far",
				zap.Int("records", res.Records), zap.Error(res.Err))
		}
		break
	}
	if !found {
		return nil, export.Unreadable("no @graph array")
	}

	log.Debug("parsed export",
		zap.Int("records", exp.Records),
		zap.Int("nodes", len(exp.Nodes)),
		zap.Int("skipped", exp.Skipped),
		zap.Int("excluded", exp.Excluded))
	return exp, nil
}

// ExtractNodes returns the discourse nodes of a JSON-LD export
func ExtractNodes(r io.Reader) ([]graph.Node, error) {
	exp, err := Parse(r, nil)
	if err != nil {
		return nil, err
	}
	return exp.Nodes, nil
}

// ExtractRelations returns the relation instances of a JSON-LD export,
// stored in both directions
func ExtractRelations(r io.Reader) (graph.Relations, error) {
	exp, err := Parse(r, nil)
	if err != nil {
		return nil, err
	}
	return exp.Relations, nil
}

func handleRecord(exp *graph.Export, raw json.RawMessage, log *zap.Logger) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		exp.Skipped++
		log.Warn("skipping malformed record", zap.Error(err))
		return
	}

	switch recordType(rec.Type) {
	case typeNodeSchema, typeRelationDef:
		return
	case typeRelationInstance:
		src, dst := stripID(rec.Source), stripID(rec.Destination)
		if src == "" || dst == "" {
			exp.Skipped++
			log.Warn("skipping relation without endpoints", zap.String("id", rec.ID))
			return
		}
		exp.Relations.Add(src, dst)
		return
	}

	node, err := toNode(rec)
	if err != nil {
		exp.Skipped++
		log.Warn("skipping malformed record", zap.String("id", rec.ID), zap.Error(err))
		return
	}
	if node.Role == pattern.RoleNone {
		exp.Excluded++
		return
	}
	created, err := graph.ParseTimestamp(rec.Created)
	if err != nil {
		exp.BadTimestamps++
		log.Warn("unreadable creation time, keeping node with unknown time",
			zap.String("id", node.ID), zap.Error(err))
	}
	node.CreatedAt = created
	exp.Nodes = append(exp.Nodes, node)
}

// toNode converts a page record. The creation time is read by the caller so
// an unreadable one can leave the node in place.
func toNode(rec record) (graph.Node, error) {
	id := stripID(rec.ID)
	if id == "" {
		return graph.Node{}, fmt.Errorf("missing @id")
	}

	n := graph.Node{
		ID:      id,
		Title:   rec.Title,
		Content: rec.Content,
		Source:  graph.SourceJSONLD,
		Role:    pattern.Classify(rec.Title),
		Creator: strings.TrimSpace(creatorName(rec.Creator)),
		Fields:  make(map[pattern.Field]graph.FieldValue),
	}
	for _, f := range pattern.Fields {
		if v, ok := pattern.ExtractField(rec.Content, f); ok {
			n.Fields[f] = graph.FieldValue{Value: v}
		}
	}
	for _, date := range pattern.LogDatesInText(rec.Content) {
		n.LogEntries = append(n.LogEntries, graph.LogEntry{Date: date})
	}
	return n, nil
}

// recordType reads @type, which is either a string or a list of strings
func recordType(raw json.RawMessage) string {
	if s := export.String(raw); s != "" {
		return s
	}
	var types []string
	if err := json.Unmarshal(raw, &types); err == nil {
		for _, t := range types {
			switch t {
			case typeNodeSchema, typeRelationDef, typeRelationInstance:
				return t
			}
		}
	}
	return ""
}

// creatorName accepts a plain name or an object carrying one
func creatorName(raw json.RawMessage) string {
	if s := export.String(raw); s != "" {
		return s
	}
	var obj struct {
		Name string `json:"name"`
		ID   string `json:"@id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Name != "" {
			return obj.Name
		}
		return obj.ID
	}
	return ""
}

func stripID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), idPrefix)
}

// Package roam reads a Roam whole-graph JSON export: a top-level array of
// pages, each with a tree of timestamped blocks.
package roam

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

type block struct {
	UID        string  `json:"uid"`
	String     string  `json:"string"`
	CreateTime float64 `json:"create-time"`
	Children   []block `json:"children"`
}

type page struct {
	UID         string  `json:"uid"`
	Title       string  `json:"title"`
	CreateTime  float64 `json:"create-time"`
	CreateEmail string  `json:"create-email"`
	Children    []block `json:"children"`
}

// Parse streams a Roam export one page at a time. Malformed pages are
// skipped and counted; a document that is not a JSON array returns an error
// wrapping export.ErrUnreadable.
func Parse(r io.Reader, log *zap.Logger) (*graph.Export, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("source", string(graph.SourceRoam)))

	dec := json.NewDecoder(r)
	if err := export.ExpectDelim(dec, '['); err != nil {
		return nil, err
	}

	exp := graph.NewExport(graph.SourceRoam)
	res := export.StreamArray(dec, func(raw json.RawMessage) {
		handlePage(exp, raw, log)
	})
	exp.Records = res.Records
	if res.Truncated {
		exp.Skipped++
		log.Warn("export truncated, keeping pages read so far",
			zap.Int("records", res.Records), zap.Error(res.Err))
	}

	log.Debug("parsed export",
		zap.Int("records", exp.Records),
		zap.Int("nodes", len(exp.Nodes)),
		zap.Int("skipped", exp.Skipped),
		zap.Int("excluded", exp.Excluded))
	return exp, nil
}

// ExtractNodes returns the discourse pages of a Roam export
func ExtractNodes(r io.Reader) ([]graph.Node, error) {
	exp, err := Parse(r, nil)
	if err != nil {
		return nil, err
	}
	return exp.Nodes, nil
}

// ExtractRelations exists for symmetry with the JSON-LD parser. Roam
// exports carry no relation instances, so the mapping is always empty.
func ExtractRelations(r io.Reader) (graph.Relations, error) {
	if _, err := Parse(r, nil); err != nil {
		return nil, err
	}
	return make(graph.Relations), nil
}

func handlePage(exp *graph.Export, raw json.RawMessage, log *zap.Logger) {
	var p page
	if err := json.Unmarshal(raw, &p); err != nil {
		exp.Skipped++
		log.Warn("skipping malformed page", zap.Error(err))
		return
	}
	node, err := toNode(p)
	if err != nil {
		exp.Skipped++
		log.Warn("skipping malformed page", zap.String("title", p.Title), zap.Error(err))
		return
	}
	if node.Role == pattern.RoleNone {
		exp.Excluded++
		return
	}
	exp.Nodes = append(exp.Nodes, node)
}

func toNode(p page) (graph.Node, error) {
	uid := strings.TrimSpace(p.UID)
	if uid == "" {
		return graph.Node{}, fmt.Errorf("missing uid")
	}

	n := graph.Node{
		ID:        uid,
		Title:     p.Title,
		Source:    graph.SourceRoam,
		Role:      pattern.Classify(p.Title),
		CreatedAt: graph.FromEpochMillis(int64(p.CreateTime)),
		Creator:   strings.TrimSpace(p.CreateEmail),
		Blocks:    convertBlocks(p.Children),
		Fields:    make(map[pattern.Field]graph.FieldValue),
	}

	var content []string
	walk(n.Blocks, func(b *graph.Block) {
		content = append(content, b.Text)
		for _, f := range pattern.Fields {
			if _, seen := n.Fields[f]; seen {
				continue
			}
			if v, ok := pattern.ExtractField(b.Text, f); ok {
				n.Fields[f] = graph.FieldValue{Value: v, BlockAt: b.CreatedAt}
			}
		}
	})
	n.Content = strings.Join(content, "\n")
	n.LogEntries = logEntries(n.Blocks)
	return n, nil
}

func convertBlocks(in []block) []graph.Block {
	if len(in) == 0 {
		return nil
	}
	out := make([]graph.Block, 0, len(in))
	for _, b := range in {
		out = append(out, graph.Block{
			UID:       b.UID,
			Text:      b.String,
			CreatedAt: graph.FromEpochMillis(int64(b.CreateTime)),
			Children:  convertBlocks(b.Children),
		})
	}
	return out
}

// walk visits blocks depth-first in document order
func walk(blocks []graph.Block, visit func(b *graph.Block)) {
	for i := range blocks {
		visit(&blocks[i])
		walk(blocks[i].Children, visit)
	}
}

// logEntries returns the dated direct children of the first log header
func logEntries(blocks []graph.Block) []graph.LogEntry {
	var header *graph.Block
	walk(blocks, func(b *graph.Block) {
		if header == nil && pattern.IsLogHeader(b.Text) {
			header = b
		}
	})
	if header == nil {
		return nil
	}
	var entries []graph.LogEntry
	for _, child := range header.Children {
		if date, ok := pattern.DatedEntry(child.Text); ok {
			entries = append(entries, graph.LogEntry{Date: date, CreatedAt: child.CreatedAt})
		}
	}
	return entries
}

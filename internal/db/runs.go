package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"discourse/issuegraph/internal/graph"
)

const runColumns = `id, created_at, jsonld_path, roam_path, records, claimed, linked,
	match_rate, conversion_rate, cross_person_rate, warnings`

// scanRun scans a row into a Run. The row must have the runColumns in order.
func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var r Run
	err := scanner.Scan(
		&r.ID, &r.CreatedAt, &r.JSONLDPath, &r.RoamPath, &r.Records,
		&r.Claimed, &r.Linked, &r.MatchRate, &r.ConversionRate,
		&r.CrossPersonRate, &r.Warnings,
	)
	return r, err
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by ID, or nil if not found
func (d *DB) GetRun(id string) (*Run, error) {
	r, err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ResolveRun finds a run by full ID or unique ID prefix
func (d *DB) ResolveRun(reference string) (*Run, error) {
	if r, err := d.GetRun(reference); err != nil || r != nil {
		return r, err
	}

	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT 10`,
		escapeLike(reference)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run not found: %s", reference)
	case 1:
		return &matches[0], nil
	default:
		lines := make([]string, len(matches))
		for i, m := range matches {
			lines[i] = "  " + m.ID
		}
		return nil, fmt.Errorf("ambiguous run reference '%s'. %d matches:\n%s\nUse a full run ID instead.",
			reference, len(matches), strings.Join(lines, "\n"))
	}
}

// RunReport returns the full report stored with a run
func (d *DB) RunReport(id string) (*graph.Report, error) {
	var payload string
	err := d.conn.QueryRow(`SELECT report FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		return nil, err
	}
	var report graph.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decoding stored report: %w", err)
	}
	return &report, nil
}

// escapeLike quotes LIKE wildcards so a prefix matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

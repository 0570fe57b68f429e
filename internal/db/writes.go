package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"discourse/issuegraph/internal/graph"
)

// WriteRun persists a report and its per-record table in one transaction
// and returns the new run ID.
func (d *DB) WriteRun(report *graph.Report, inputs RunInputs) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	id := uuid.NewString()
	createdAt := report.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, created_at, jsonld_path, roam_path, records, claimed,
		                  linked, match_rate, conversion_rate, cross_person_rate,
		                  warnings, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, createdAt.UnixMilli(), inputs.JSONLDPath, inputs.RoamPath,
		report.Summary.Records, report.Summary.Claimed, report.Summary.Linked,
		matchRate(report),
		report.Metrics[graph.MetricConversionRate].Value,
		report.Metrics[graph.MetricCrossPersonRate].Value,
		len(report.Warnings), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_records (run_id, work_id, title, creator, claimer, contributor,
		                         attributed_by, claim_type, created_at, claimed_at,
		                         link_tier, linked_results, earliest_result_at,
		                         days_to_claim, days_to_first_result, cross_person,
		                         breadth, negative_interval)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range report.Rows {
		_, err := stmt.Exec(
			id, row.WorkID, row.Title, string(row.Creator), string(row.Claimer),
			string(row.Contributor), row.AttributedBy, string(row.ClaimType),
			toMillis(row.CreatedAt), toMillis(row.ClaimedAt),
			string(row.LinkTier), row.LinkedResults, toMillis(row.EarliestResultAt),
			row.DaysToClaim, row.DaysToFirstResult, row.CrossPerson,
			row.Breadth, row.NegativeInterval,
		)
		if err != nil {
			return "", fmt.Errorf("inserting record %s: %w", row.WorkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// DeleteRun removes a run and its records
func (d *DB) DeleteRun(id string) error {
	res, err := d.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

func matchRate(report *graph.Report) float64 {
	if report.Summary.Reconcile == nil {
		return 0
	}
	return report.Summary.Reconcile.Validation.MatchRate
}

func toMillis(t *time.Time) *int64 {
	if t == nil || t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

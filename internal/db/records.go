package db

import (
	"discourse/issuegraph/internal/graph"
)

const recordColumns = `work_id, title, creator, claimer, contributor, attributed_by,
	claim_type, created_at, claimed_at, link_tier, linked_results, earliest_result_at,
	days_to_claim, days_to_first_result, cross_person, breadth, negative_interval`

func scanRecord(scanner interface{ Scan(dest ...any) error }) (graph.Row, error) {
	var row graph.Row
	var creator, claimer, contributor, claimType, tier string
	var createdAt, claimedAt, earliestResultAt *int64
	err := scanner.Scan(
		&row.WorkID, &row.Title, &creator, &claimer, &contributor, &row.AttributedBy,
		&claimType, &createdAt, &claimedAt, &tier, &row.LinkedResults, &earliestResultAt,
		&row.DaysToClaim, &row.DaysToFirstResult, &row.CrossPerson, &row.Breadth,
		&row.NegativeInterval,
	)
	if err != nil {
		return row, err
	}
	row.Creator = graph.Identity(creator)
	row.Claimer = graph.Identity(claimer)
	row.Contributor = graph.Identity(contributor)
	row.ClaimType = graph.ClaimType(claimType)
	row.LinkTier = graph.LinkTier(tier)
	row.CreatedAt = fromMillis(createdAt)
	row.ClaimedAt = fromMillis(claimedAt)
	row.EarliestResultAt = fromMillis(earliestResultAt)
	return row, nil
}

// RunRecords returns the per-record table of a run ordered by work ID
func (d *DB) RunRecords(runID string) ([]graph.Row, error) {
	rows, err := d.conn.Query(`SELECT `+recordColumns+` FROM run_records WHERE run_id = ? ORDER BY work_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []graph.Row
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountRecords returns how many record rows a run stored
func (d *DB) CountRecords(runID string) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM run_records WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

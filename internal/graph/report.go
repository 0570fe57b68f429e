package graph

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"discourse/issuegraph/internal/pattern"
)

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	Aliases              Aliases
	MinMatchRate         float64
	MinDescriptionLength int
	CountActiveQuestions bool
	TopN                 int
	Logger               *zap.Logger

	// Now stamps the report; tests pin it
	Now func() time.Time
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		MinMatchRate:         0.5,
		MinDescriptionLength: DefaultMinDescriptionLength,
		TopN:                 10,
	}
}

// SourceSummary counts what one parser read
type SourceSummary struct {
	Records       int `json:"records"`
	Nodes         int `json:"nodes"`
	Skipped       int `json:"skipped"`
	Excluded      int `json:"excluded"`
	BadTimestamps int `json:"bad_timestamps"`
}

// ReportSummary is the population overview of a run
type ReportSummary struct {
	Records       int                      `json:"records"`
	ByRole        map[pattern.Role]int     `json:"by_role"`
	Sources       map[Source]SourceSummary `json:"sources"`
	Claimed       int                      `json:"claimed"`
	Unclaimed     int                      `json:"unclaimed"`
	Linked        int                      `json:"linked"`
	LinksByTier   map[LinkTier]int         `json:"links_by_tier"`
	Reconcile     *ReconcileStats          `json:"reconcile"`
	TopClaimers   []ExchangePair           `json:"top_claimers,omitempty"`
	NegativeCount int                      `json:"negative_intervals"`
}

// Row is the per-record table entry for one claimed work node
type Row struct {
	WorkID            string     `json:"work_id"`
	Title             string     `json:"title"`
	Creator           Identity   `json:"creator"`
	Claimer           Identity   `json:"claimer"`
	Contributor       Identity   `json:"contributor"`
	AttributedBy      string     `json:"attributed_by"`
	ClaimType         ClaimType  `json:"claim_type"`
	CreatedAt         *time.Time `json:"created_at"`
	ClaimedAt         *time.Time `json:"claimed_at"`
	LinkedResults     int        `json:"linked_results"`
	LinkTier          LinkTier   `json:"link_tier"`
	EarliestResultAt  *time.Time `json:"earliest_result_at"`
	DaysToClaim       *float64   `json:"days_to_claim"`
	DaysToFirstResult *float64   `json:"days_to_first_result"`
	CrossPerson       bool       `json:"cross_person"`
	Breadth           int        `json:"breadth"`
	NegativeInterval  bool       `json:"negative_interval"`
}

// Report is the full analysis result
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Summary     ReportSummary     `json:"summary"`
	Metrics     map[string]Metric `json:"metrics"`
	Details     *Metrics          `json:"details"`
	Rows        []Row             `json:"rows"`
	Warnings    []string          `json:"warnings"`
}

// Analyze runs reconciliation, attribution, linking and metrics over two
// parsed exports
func Analyze(jsonld, roam *Export, config *AnalyzerConfig) *Report {
	if config == nil {
		config = DefaultConfig()
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if config.Now != nil {
		now = config.Now
	}

	snap, rstats := Reconcile(jsonld, roam, &ReconcileOptions{
		Aliases:      config.Aliases,
		MinMatchRate: config.MinMatchRate,
		Logger:       log,
	})
	attr := Attribute(snap)
	links := ResolveLinks(snap, attr, config.MinDescriptionLength)
	metrics := ComputeMetrics(snap, attr, links, &MetricsOptions{
		CountActiveQuestions: config.CountActiveQuestions,
	})

	report := &Report{
		GeneratedAt: now().UTC(),
		Metrics:     metrics.Headline,
		Details:     metrics,
		Rows:        buildRows(attr, links, metrics),
		Warnings:    []string{},
	}
	report.Summary = summarize(snap, jsonld, roam, attr, links, rstats, report.Rows)
	report.Summary.TopClaimers = topClaimers(metrics.Exchange, config.TopN)
	report.Warnings = collectWarnings(report, rstats)

	log.Info("analysis complete",
		zap.Int("records", len(snap.Records)),
		zap.Int("claimed", len(attr.Claims)),
		zap.Int("linked", report.Summary.Linked),
		zap.Int("conflicts", rstats.Conflicts),
		zap.Int("warnings", len(report.Warnings)))

	return report
}

func buildRows(attr *Attribution, links Links, metrics *Metrics) []Row {
	rows := make([]Row, 0, len(attr.Claims))
	for _, c := range attr.Claims {
		pc := metrics.PerClaim[c.WorkID]
		row := Row{
			WorkID:            c.WorkID,
			Title:             c.Title,
			Creator:           c.Creator,
			Claimer:           c.Claimer,
			Contributor:       c.Contributor,
			AttributedBy:      c.AttributedBy,
			ClaimType:         c.Type,
			CreatedAt:         timePtr(c.CreatedAt),
			ClaimedAt:         timePtr(c.ClaimedAt),
			LinkTier:          TierNone,
			DaysToClaim:       pc.DaysToClaim,
			DaysToFirstResult: pc.DaysToFirstResult,
			CrossPerson:       c.CrossPerson(),
			Breadth:           pc.Breadth,
			NegativeInterval:  pc.Negative,
		}
		if link := links[c.WorkID]; link != nil {
			row.LinkTier = link.Tier
			row.LinkedResults = len(link.Results)
			row.EarliestResultAt = timePtr(link.EarliestResultAt)
		}
		rows = append(rows, row)
	}
	return rows
}

func summarize(snap *Snapshot, jsonld, roam *Export, attr *Attribution, links Links, rstats *ReconcileStats, rows []Row) ReportSummary {
	s := ReportSummary{
		Records:     len(snap.Records),
		ByRole:      make(map[pattern.Role]int),
		Sources:     make(map[Source]SourceSummary),
		Claimed:     len(attr.Claims),
		Unclaimed:   len(attr.Unclaimed),
		LinksByTier: make(map[LinkTier]int),
		Reconcile:   rstats,
	}
	for _, role := range []pattern.Role{pattern.RoleQuestion, pattern.RoleWork, pattern.RoleResult} {
		s.ByRole[role] = snap.Count(role)
	}
	for _, exp := range []*Export{jsonld, roam} {
		if exp == nil {
			continue
		}
		s.Sources[exp.Source] = SourceSummary{
			Records:       exp.Records,
			Nodes:         len(exp.Nodes),
			Skipped:       exp.Skipped,
			Excluded:      exp.Excluded,
			BadTimestamps: exp.BadTimestamps,
		}
	}
	for _, link := range links {
		s.LinksByTier[link.Tier]++
		if link.Tier != TierNone {
			s.Linked++
		}
	}
	for _, row := range rows {
		if row.NegativeInterval {
			s.NegativeCount++
		}
	}
	return s
}

func topClaimers(ex *ExchangeReport, n int) []ExchangePair {
	if ex == nil || n <= 0 {
		return nil
	}
	var out []ExchangePair
	for _, id := range rankIdentities(ex.Contributors) {
		if len(out) == n {
			break
		}
		out = append(out, ExchangePair{Claimer: id, Count: ex.Contributors[id]})
	}
	return out
}

func collectWarnings(report *Report, rstats *ReconcileStats) []string {
	warnings := []string{}
	v := rstats.Validation
	if !v.Passed {
		warnings = append(warnings, fmt.Sprintf(
			"export mismatch: %.0f%% of JSON-LD nodes found in the Roam export (%d of %d)",
			v.MatchRate*100, v.Matched, v.JSONLDNodes))
	}
	for _, src := range []Source{SourceJSONLD, SourceRoam} {
		if ss := report.Summary.Sources[src]; ss.Skipped > 0 {
			warnings = append(warnings, fmt.Sprintf("%s export: %d malformed records skipped", src, ss.Skipped))
		}
	}
	for _, src := range []Source{SourceJSONLD, SourceRoam} {
		if ss := report.Summary.Sources[src]; ss.BadTimestamps > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"%s export: %d unreadable timestamps treated as unknown", src, ss.BadTimestamps))
		}
	}
	if n := rstats.UnresolvedCreators; n > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d records name their creator only by account email; map it under identities", n))
	}
	if n := report.Summary.NegativeCount; n > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d records have a negative interval; retained and flagged", n))
	}
	if report.Summary.Claimed == 0 && report.Summary.ByRole[pattern.RoleWork] > 0 {
		warnings = append(warnings, "no work node could be attributed to a claimer")
	}
	return warnings
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"discourse/issuegraph/internal/db"
	"discourse/issuegraph/internal/export/jsonld"
	"discourse/issuegraph/internal/export/roam"
	"discourse/issuegraph/internal/graph"
	"discourse/issuegraph/internal/pattern"
)

var (
	analyzeJSON    bool
	analyzeJSONLD  string
	analyzeRoam    string
	analyzeRecords bool
	analyzeSave    bool
	analyzeTopN    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Reconcile both exports and compute researcher lifecycle metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var jsonldExport, roamExport *graph.Export
		var g errgroup.Group
		g.Go(func() (err error) {
			jsonldExport, err = parseExport(analyzeJSONLD, jsonld.Parse)
			if err != nil {
				return fmt.Errorf("reading JSON-LD export: %w", err)
			}
			return nil
		})
		g.Go(func() (err error) {
			roamExport, err = parseExport(analyzeRoam, roam.Parse)
			if err != nil {
				return fmt.Errorf("reading Roam export: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		config := cfg.AnalyzerConfig()
		config.Logger = logger
		if cmd.Flags().Changed("top-n") {
			config.TopN = analyzeTopN
		}

		report := graph.Analyze(jsonldExport, roamExport, config)

		if analyzeSave {
			id, err := saveRun(report)
			if err != nil {
				return err
			}
			logger.Info("run saved", zap.String("id", id))
			if !analyzeJSON {
				fmt.Printf("  Saved run %s\n", truncID(id))
			}
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(os.Stdout, report, analyzeRecords)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeJSONLD, "jsonld", "", "Path to the JSON-LD export")
	analyzeCmd.Flags().StringVar(&analyzeRoam, "roam", "", "Path to the Roam JSON export")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeRecords, "records", false, "Print the per-record table")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the run in the run store")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top claimers to show")
	_ = analyzeCmd.MarkFlagRequired("jsonld")
	rootCmd.AddCommand(analyzeCmd)
}

type parseFunc func(r io.Reader, log *zap.Logger) (*graph.Export, error)

// parseExport opens and parses one export. An empty path yields no export.
func parseExport(path string, parse parseFunc) (*graph.Export, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	exp, err := parse(f, logger.With(zap.String("file", path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exp, nil
}

func saveRun(report *graph.Report) (string, error) {
	store, err := OpenDatabase(true)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.WriteRun(report, db.RunInputs{JSONLDPath: analyzeJSONLD, RoamPath: analyzeRoam})
}

func printHumanReadable(w io.Writer, report *graph.Report, withRecords bool) {
	s := report.Summary

	fmt.Fprintf(w, "\n  Researcher lifecycle  (%s)\n\n", report.GeneratedAt.Format(time.RFC3339))

	// Headline metrics
	fmt.Fprintln(w, "  METRICS")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	for _, name := range graph.MetricNames() {
		fmt.Fprintf(w, "  %-22s %s\n", name, formatMetric(report.Metrics[name]))
	}
	if d := report.Details; d != nil {
		if d.TimeToClaim.Count > 0 {
			fmt.Fprintf(w, "  %-22s median %.1f  IQR %.1f..%.1f\n", "", d.TimeToClaim.Median, d.TimeToClaim.Q1, d.TimeToClaim.Q3)
		}
		fmt.Fprintf(w, "  conversion: %d of %d (explicit=%d inferred=%d)\n",
			d.Conversion.Numerator, d.Conversion.Denominator, d.Conversion.Explicit, d.Conversion.Inferred)
	}

	// Population
	fmt.Fprintln(w, "\n  POPULATION")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Records: %d  Questions: %d  Work: %d  Results: %d\n",
		s.Records, s.ByRole[pattern.RoleQuestion], s.ByRole[pattern.RoleWork], s.ByRole[pattern.RoleResult])
	fmt.Fprintf(w, "  Claimed: %d  Unclaimed: %d  Linked: %d\n", s.Claimed, s.Unclaimed, s.Linked)
	if len(s.LinksByTier) > 0 {
		var parts []string
		for _, tier := range []graph.LinkTier{graph.TierRelation, graph.TierTitle, graph.TierDescription, graph.TierNone} {
			if n := s.LinksByTier[tier]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", tier, n))
			}
		}
		fmt.Fprintf(w, "  Link tiers: %s\n", strings.Join(parts, " "))
	}
	if r := s.Reconcile; r != nil {
		fmt.Fprintf(w, "  Reconcile: match %.0f%% (%d of %d)  conflicts=%d  repaired=%d\n",
			r.Validation.MatchRate*100, r.Validation.Matched, r.Validation.JSONLDNodes,
			r.Conflicts, r.RepairedCreation)
	}

	// Top claimers
	if len(s.TopClaimers) > 0 {
		fmt.Fprintln(w, "\n  TOP CLAIMERS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		for _, p := range s.TopClaimers {
			fmt.Fprintf(w, "    %-24s %d\n", truncTitle(string(p.Claimer), 24), p.Count)
		}
	}

	// Warnings
	if len(report.Warnings) > 0 {
		fmt.Fprintln(w, "\n  WARNINGS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		for _, warning := range report.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}

	if withRecords {
		fmt.Fprintln(w, "\n  RECORDS")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		printRows(w, report.Rows)
	}

	fmt.Fprintln(w)
}

func printRows(w io.Writer, rows []graph.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (no claimed work)")
		return
	}
	for _, row := range rows {
		flag := ""
		if row.NegativeInterval {
			flag = "  [negative]"
		}
		fmt.Fprintf(w, "  %s %-40s %s -> %s (%s)  claim=%s first=%s  results=%d%s\n",
			truncID(row.WorkID), truncTitle(row.Title, 40),
			orUnknown(row.Creator), orUnknown(row.Claimer), row.ClaimType,
			formatDays(row.DaysToClaim), formatDays(row.DaysToFirstResult),
			row.LinkedResults, flag)
	}
}

func formatMetric(m graph.Metric) string {
	if m.Value == nil {
		return fmt.Sprintf("n/a (n=%d)", m.Count)
	}
	out := fmt.Sprintf("%.1f %s (n=%d)", *m.Value, m.Unit, m.Count)
	if m.CI != nil {
		out += fmt.Sprintf("  95%% CI %.1f..%.1f", m.CI.Low, m.CI.High)
	}
	return out
}

func formatDays(d *float64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%.1fd", *d)
}

func orUnknown(id graph.Identity) string {
	if !id.Known() {
		return "?"
	}
	return string(id)
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

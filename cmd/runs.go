package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"discourse/issuegraph/internal/db"
)

var (
	runsJSON   bool
	runsLimit  int
	runsDelete string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved analysis runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase(false)
		if err != nil {
			return err
		}
		defer store.Close()

		if runsDelete != "" {
			run, err := store.ResolveRun(runsDelete)
			if err != nil {
				return err
			}
			n, err := store.CountRecords(run.ID)
			if err != nil {
				return fmt.Errorf("counting records: %w", err)
			}
			if err := store.DeleteRun(run.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s (%d records)\n", run.ID, n)
			return nil
		}

		runs, err := store.ListRuns(runsLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		if runsJSON {
			if runs == nil {
				runs = []db.Run{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Println("No saved runs.")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("  %s  %s  records=%d claimed=%d linked=%d  conversion=%s  cross=%s",
				truncID(r.ID), time.UnixMilli(r.CreatedAt).UTC().Format("2006-01-02 15:04"),
				r.Records, r.Claimed, r.Linked,
				formatRate(r.ConversionRate), formatRate(r.CrossPersonRate))
			if r.Warnings > 0 {
				fmt.Printf("  (%d warnings)", r.Warnings)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output as JSON")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (0 for all)")
	runsCmd.Flags().StringVar(&runsDelete, "delete", "", "Delete the run with this ID or ID prefix")
	rootCmd.AddCommand(runsCmd)
}

func formatRate(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

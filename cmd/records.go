package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"discourse/issuegraph/internal/graph"
)

var (
	recordsJSON   bool
	recordsReport bool
)

var recordsCmd = &cobra.Command{
	Use:   "records <run-id>",
	Short: "Show the per-record table of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenDatabase(false)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.ResolveRun(args[0])
		if err != nil {
			return err
		}

		if recordsReport {
			report, err := store.RunReport(run.ID)
			if err != nil {
				return fmt.Errorf("loading report: %w", err)
			}
			if recordsJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printHumanReadable(os.Stdout, report, true)
			return nil
		}

		rows, err := store.RunRecords(run.ID)
		if err != nil {
			return fmt.Errorf("loading records: %w", err)
		}

		if recordsJSON {
			if rows == nil {
				rows = []graph.Row{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		fmt.Printf("\n  Run %s  (%d records)\n", run.ID, len(rows))
		fmt.Println("  ────────────────────────────────────────")
		printRows(os.Stdout, rows)
		fmt.Println()
		return nil
	},
}

func init() {
	recordsCmd.Flags().BoolVar(&recordsJSON, "json", false, "Output as JSON")
	recordsCmd.Flags().BoolVar(&recordsReport, "report", false, "Show the full stored report instead of the table")
	rootCmd.AddCommand(recordsCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/report"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display row counts for every stored entity, the ingested datasets and
the most recent evaluation runs.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetDBOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Players == 0 {
		fmt.Fprintln(os.Stdout, "No players stored yet. Run 'tennismc ingest <pbp.csv>' to add some.")
		return nil
	}
	report.PrintOverview(os.Stdout, ov)

	datasets, err := db.ListDatasets()
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Datasets ---\n\n")
	report.PrintDatasetList(os.Stdout, datasets)

	// Runs are only shown once something has been evaluated.
	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) > 0 {
		if len(runs) > 10 {
			runs = runs[:10]
		}
		fmt.Fprintf(os.Stdout, "\n--- Recent Runs ---\n\n")
		report.PrintRunList(os.Stdout, runs)
	}
	return nil
}

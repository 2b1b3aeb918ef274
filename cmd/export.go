package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/evaluate"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id-prefix>",
	Short: "Export the predictions of an evaluation run",
	Long: `Write the predictions of a stored evaluation run as CSV or JSON.

The CSV layout has one row per evaluated match:
  ,server1,server2,prediction,p,true
where prediction and true are 1 or 2 and p is the probability that server1
wins. Skipped rows leave prediction and p empty.

Example:
  tennismc export 3f2a --format json --out run.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", evaluate.ExportCSV, "output format: csv or json")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: stdout)")
}

func runExport(_ *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRunByPrefix(args[0])
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("no run found with id prefix %q", args[0])
	}
	preds, err := db.GetPredictions(run.RunID)
	if err != nil {
		return fmt.Errorf("get predictions: %w", err)
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := evaluate.Write(w, exportFormat, *run, preds); err != nil {
		return err
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d predictions to %s\n", len(preds), exportOut)
	}
	return nil
}

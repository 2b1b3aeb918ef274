package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/parser"
	"github.com/pable/go-tennis-mc/internal/report"
)

var evaluateQuiet bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <pbp.csv>",
	Short: "Score predictions against a dataset of played matches",
	Long: `Predict every match of a point-by-point dataset from the stored player
models and compare against the recorded winner. The run and its
predictions are stored and can be exported with 'tennismc export'.

Rows naming an unknown player or a player without serve data are kept as
skipped. Interrupting the command stores the rows evaluated so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	addEstimatorFlags(evaluateCmd)
	evaluateCmd.Flags().IntVar(&flagValues.MaxEvals, "max-evals", flagValues.MaxEvals, "evaluate at most this many rows (0 = all)")
	evaluateCmd.Flags().BoolVarP(&evaluateQuiet, "quiet", "q", false, "only print the run summary")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	res, err := parser.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("parse dataset: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := db.LoadRegistry(logger)
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	ev, err := newEvaluator(reg, nil)
	if err != nil {
		return err
	}

	run, evalErr := ev.Evaluate(cmd.Context(), res.Dataset.Hash, res.Matches)
	if evalErr != nil && run == nil {
		return evalErr
	}
	if evalErr != nil {
		logger.Warn().Err(evalErr).Int("rows", len(run.Predictions)).Msg("evaluation interrupted, storing partial run")
	}

	if err := db.SaveRun(run.Summary, run.Predictions); err != nil {
		return fmt.Errorf("store run: %w", err)
	}

	if !evaluateQuiet {
		report.PrintPredictionTable(os.Stdout, run.Predictions)
	}
	report.PrintRunSummary(os.Stdout, run.Summary)
	return evalErr
}

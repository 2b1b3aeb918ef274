package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/estimate"
	"github.com/pable/go-tennis-mc/internal/report"
)

var predictCmd = &cobra.Command{
	Use:   "predict <player1> <player2>",
	Short: "Estimate the probability that player1 beats player2",
	Long: `Run simulated matches between two stored players, player1 serving first,
until the confidence interval around player1's win rate is narrow enough.
An estimate that hits --max-trials is still printed, marked not converged.`,
	Args: cobra.ExactArgs(2),
	RunE: runPredict,
}

func init() {
	addEstimatorFlags(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	p1, p2 := args[0], args[1]

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ev, err := newEvaluator(storedPlayers{db: db}, nil)
	if err != nil {
		return err
	}
	res, err := ev.Predict(cmd.Context(), p1, p2)
	var nce *estimate.NonConvergenceError
	if err != nil && !errors.As(err, &nce) {
		return err
	}
	report.PrintEstimate(os.Stdout, p1, p2, ev.Format(), res)
	return nil
}

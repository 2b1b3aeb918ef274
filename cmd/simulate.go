package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/report"
	"github.com/pable/go-tennis-mc/internal/sim"
)

var simulateTrials int

var simulateCmd = &cobra.Command{
	Use:   "simulate <player1> <player2>",
	Short: "Simulate matches and print the set-differential distribution",
	Long: `Play matches between two stored players, player1 serving first. With
--trials 1 the single match score is printed; otherwise a histogram of
sets(player1) - sets(player2).`,
	Args: cobra.ExactArgs(2),
	RunE: runSimulate,
}

func init() {
	addEstimatorFlags(simulateCmd)
	simulateCmd.Flags().IntVarP(&simulateTrials, "trials", "n", 1000, "number of matches to simulate")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateTrials < 1 {
		return fmt.Errorf("--trials must be at least 1")
	}
	p1, p2 := args[0], args[1]

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m1, err := db.LoadPlayer(p1, logger)
	if err != nil {
		return err
	}
	m2, err := db.LoadPlayer(p2, logger)
	if err != nil {
		return err
	}
	format, err := cfg.MatchFormat()
	if err != nil {
		return err
	}

	opts := []sim.Option{sim.WithLogger(logger)}
	if cfg.Seed != 0 {
		opts = append(opts, sim.WithSeed(cfg.Seed))
	}
	match, err := sim.NewMatch(m1, m2, format, opts...)
	if err != nil {
		return err
	}
	if err := match.Validate(); err != nil {
		return err
	}

	if simulateTrials == 1 {
		out, err := match.SimulateMatch()
		if err != nil {
			return err
		}
		report.PrintOutcome(os.Stdout, p1, p2, out)
		return nil
	}

	hist, err := match.Distribution(simulateTrials)
	if err != nil {
		return err
	}
	report.PrintDistribution(os.Stdout, p1, p2, hist)
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/report"
)

var listCmd = &cobra.Command{
	Use:       "list [players|datasets|runs]",
	Short:     "List stored players, datasets or evaluation runs",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"players", "datasets", "runs"},
	RunE:      runList,
}

func runList(cmd *cobra.Command, args []string) error {
	what := "players"
	if len(args) == 1 {
		what = args[0]
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	switch what {
	case "datasets":
		datasets, err := db.ListDatasets()
		if err != nil {
			return fmt.Errorf("list datasets: %w", err)
		}
		if len(datasets) == 0 {
			fmt.Fprintln(os.Stdout, "No datasets ingested yet. Run 'tennismc ingest <pbp.csv>' to add one.")
			return nil
		}
		report.PrintDatasetList(os.Stdout, datasets)
	case "runs":
		runs, err := db.ListRuns()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, "No evaluation runs yet. Run 'tennismc evaluate <pbp.csv>' to add one.")
			return nil
		}
		report.PrintRunList(os.Stdout, runs)
	default:
		players, err := db.ListPlayers()
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		if len(players) == 0 {
			fmt.Fprintln(os.Stdout, "No players stored yet. Run 'tennismc ingest <pbp.csv>' to add some.")
			return nil
		}
		report.PrintPlayerList(os.Stdout, players)
	}
	return nil
}

package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the tennismc database",
	Long: `Run an arbitrary SQL query against the tennismc database and print results as a table.

Schema overview:
  datasets(hash, path, row_count, ingested_at)
  matches(dataset_hash, row_index, match_date, tournament, player1, player2,
    pbp, score, winner)
  players(name, updated_at)
  transition_counts(player, role TEXT, from_state, to_state, count)
  prediction_runs(id, dataset, sets, created_at, evaluated, correct, skipped)
  predictions(run_id, row_index, player1, player2, sets, p, half_width,
    trials, converged, predicted, actual, err)

Note: role is stored as TEXT. Use quotes: WHERE role = 'serve'
States are automaton indices: 0 is 0-0, 18 the server won the game, 19 lost.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(strings.Join(args, " "))
	if err != nil {
		return err
	}
	report.PrintRows(os.Stdout, cols, rows)
	return nil
}

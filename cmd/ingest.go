package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/aggregator"
	"github.com/pable/go-tennis-mc/internal/parser"
	"github.com/pable/go-tennis-mc/internal/report"
	"github.com/pable/go-tennis-mc/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pbp.csv>",
	Short: "Learn player models from a point-by-point dataset",
	Long: `Parse a CSV of point-by-point match records (columns server1, server2, pbp,
winner) and fold every game into the stored player models. A dataset whose
contents were already ingested is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stdout, "Parsing %s...\n", path)
	res, err := parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse dataset: %w", err)
	}

	exists, err := db.DatasetExists(res.Dataset.Hash)
	if err != nil {
		return fmt.Errorf("check dataset: %w", err)
	}
	if exists {
		fmt.Fprintf(os.Stdout, "Dataset %s already ingested, nothing to do.\n", res.Dataset.Hash[:12])
		return nil
	}

	return ingest(db, res)
}

func ingest(db *storage.DB, res *parser.Result) error {
	reg, err := db.LoadRegistry(logger)
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	stats := aggregator.Aggregate(res.Matches, reg)
	for _, w := range stats.Warnings {
		logger.Warn().Str("player", w.Player).Str("role", w.Role.String()).
			Int("position", w.Position).Str("token", string(w.Token)).Msg(w.Reason)
	}

	if err := db.IngestDataset(res.Dataset, res.Matches, reg.Models()); err != nil {
		return fmt.Errorf("store %s: %w", res.Dataset.Path, err)
	}

	fmt.Fprintf(os.Stdout, "Ingested %d matches (%d games, %d tiebreak chunks skipped, %d empty chunks, %d rows without data).\n",
		stats.Matches, stats.Games, stats.Tiebreaks, stats.Empty, res.Skipped)
	fmt.Fprintf(os.Stdout, "%d new players, %d in total, %d warnings.\n\n",
		stats.NewPlayers, reg.Len(), len(stats.Warnings))

	players, err := db.ListPlayers()
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	report.PrintPlayerList(os.Stdout, players)
	return nil
}

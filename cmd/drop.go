package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes the database file.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the tennismc database",
	Long: `Permanently delete the SQLite database. All player models, datasets and
evaluation runs will be lost. Re-ingest your datasets afterwards to rebuild.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	path := cfg.DBPath
	if path == ":memory:" {
		return fmt.Errorf("drop: in-memory database has no file")
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", path)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}

	err := os.Remove(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
		return nil
	case err != nil:
		return fmt.Errorf("remove database: %w", err)
	}
	logger.Info().Str("path", path).Msg("database dropped")
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", path)
	return nil
}

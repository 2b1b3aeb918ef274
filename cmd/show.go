package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
	"github.com/pable/go-tennis-mc/internal/report"
)

var showRole string

var showCmd = &cobra.Command{
	Use:   "show <player>",
	Short: "Show a player's learned transition table",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showRole, "role", "", "only show one role: serve or receive")
}

func runShow(cmd *cobra.Command, args []string) error {
	roles := model.Roles[:]
	if showRole != "" {
		r, err := model.ParseRole(showRole)
		if err != nil {
			return err
		}
		roles = []model.Role{r}
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.LoadPlayer(args[0], logger)
	if errors.Is(err, player.ErrPlayerNotFound) {
		fmt.Fprintf(os.Stderr, "No player named %q\n", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("load player: %w", err)
	}

	for _, role := range roles {
		report.PrintTransitionTable(os.Stdout, m, role)
	}
	return nil
}

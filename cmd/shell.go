package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-tennis-mc/internal/estimate"
	"github.com/pable/go-tennis-mc/internal/evaluate"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/report"
	"github.com/pable/go-tennis-mc/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func init() {
	addEstimatorFlags(shellCmd)
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ev, err := newEvaluator(storedPlayers{db: db}, nil)
	if err != nil {
		return err
	}

	cGreeting.Println("tennismc shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("tennismc")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			shellList(db)
		case "runs":
			shellRuns(db)
		case "show":
			if rest == "" {
				cError.Fprintln(os.Stderr, "usage: show <player>")
				continue
			}
			shellShow(db, rest)
		case "sql":
			if rest == "" {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			shellSQL(db, rest)
		case "predict":
			p1, p2, ok := splitVersus(rest)
			if !ok {
				cError.Fprintln(os.Stderr, "usage: predict <player1> vs <player2> [--slam]")
				continue
			}
			shellPredict(cmd.Context(), ev, p1, p2)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return nil
}

// splitVersus parses "A vs B", where names may contain spaces. A trailing
// "--slam" or "--tour" picks the match format.
func splitVersus(s string) (p1, p2 string, ok bool) {
	a, b, found := strings.Cut(s, " vs ")
	p1, p2 = strings.TrimSpace(a), strings.TrimSpace(b)
	if !found || p1 == "" || p2 == "" {
		return "", "", false
	}
	return p1, p2, true
}

// versusFormat strips a trailing format switch from the second player name.
func versusFormat(p2 string, def model.Format) (string, model.Format) {
	switch {
	case strings.HasSuffix(p2, " --slam"):
		return strings.TrimSpace(strings.TrimSuffix(p2, " --slam")), model.FormatGrandSlam
	case strings.HasSuffix(p2, " --tour"):
		return strings.TrimSpace(strings.TrimSuffix(p2, " --tour")), model.FormatTour
	}
	return p2, def
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored players"},
		{"runs", "list evaluation runs"},
		{"show <player>", "show a player's transition tables"},
		{"predict <player1> vs <player2>", "estimate P(player1 wins)"},
		{"predict <player1> vs <player2> --slam", "same, best of five sets"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-40s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(db *storage.DB) {
	players, err := db.ListPlayers()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(players) == 0 {
		cMuted.Println("No players stored yet.")
		return
	}
	report.PrintPlayerList(os.Stdout, players)
}

func shellRuns(db *storage.DB) {
	runs, err := db.ListRuns()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		cMuted.Println("No evaluation runs yet.")
		return
	}
	report.PrintRunList(os.Stdout, runs)
}

func shellShow(db *storage.DB, name string) {
	m, err := db.LoadPlayer(name, logger)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	for _, role := range model.Roles {
		report.PrintTransitionTable(os.Stdout, m, role)
	}
}

func shellSQL(db *storage.DB, query string) {
	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintRows(os.Stdout, cols, rows)
}

func shellPredict(ctx context.Context, ev *evaluate.Evaluator, p1, p2 string) {
	p2, format := versusFormat(p2, ev.Format())
	res, err := ev.PredictFormat(ctx, p1, p2, format)
	var nce *estimate.NonConvergenceError
	if err != nil && !errors.As(err, &nce) {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if nce != nil {
		cWarn.Fprintf(os.Stderr, "warning: %v\n", nce)
	}
	report.PrintEstimate(os.Stdout, p1, p2, format, res)
}

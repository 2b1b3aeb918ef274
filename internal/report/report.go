// Package report renders player models, estimates and evaluation runs as
// console tables.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-tennis-mc/internal/automaton"
	"github.com/pable/go-tennis-mc/internal/estimate"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

func pct(p float64) string {
	if p < 0 {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", p)
}

// PrintPlayerList prints one row per stored player.
func PrintPlayerList(w io.Writer, players []model.PlayerSummary) {
	table := newTable(w)
	table.Header("NAME", "SERVE PTS", "SERVE WIN%", "RETURN PTS", "RETURN WIN%")
	for _, p := range players {
		table.Append(
			p.Name,
			strconv.Itoa(p.ServePoints),
			pct(p.ServeWinPct),
			strconv.Itoa(p.ReceivePoints),
			pct(p.ReceiveWinPct),
		)
	}
	table.Render()
}

// PrintTransitionTable prints the learned chain of one role. Each row is a
// non-terminal score with the share of points the role owner won from it.
// Unobserved rows are shown as "—"; the simulator falls back to the
// aggregate probability for them.
func PrintTransitionTable(w io.Writer, m *player.Model, role model.Role) {
	p, ok := m.AggregateWinProbability(role)
	agg := "—"
	if ok {
		agg = fmt.Sprintf("%.1f%%", 100*p)
	}
	fmt.Fprintf(w, "\n%s on %s: %d points, %s won\n\n", m.Name(), role, m.Observations(role), agg)

	table := newTable(w)
	table.Header("SCORE", "N", "WON", "WIN%", "95% CI", "SAMPLE", "ON WIN", "ON LOSS")
	for s := automaton.Start; s < automaton.NumStates; s++ {
		if automaton.Terminal(s) {
			continue
		}
		win, lose := automaton.Transitions(s)
		if role == model.Receive {
			win, lose = lose, win
		}
		won, lost := m.Count(role, s, win), m.Count(role, s, lose)
		n := won + lost
		if n == 0 {
			table.Append(automaton.Label(s), "0", "0", "—", "—", "—", automaton.Label(win), automaton.Label(lose))
			continue
		}
		lo, hi := wilsonCI(won, n)
		table.Append(
			automaton.Label(s),
			strconv.Itoa(n),
			strconv.Itoa(won),
			fmt.Sprintf("%.1f%%", 100*float64(won)/float64(n)),
			fmt.Sprintf("%.0f–%.0f%%", 100*lo, 100*hi),
			sampleFlag(n),
			automaton.Label(win),
			automaton.Label(lose),
		)
	}
	table.Render()
}

func sampleFlag(n int) string {
	switch {
	case n >= 50:
		return "OK"
	case n >= 20:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// wilsonCI computes the 95% Wilson score confidence interval for a proportion.
// Returns (lo, hi) as fractions in [0, 1].
func wilsonCI(hits, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	z := 1.96
	p := float64(hits) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

// PrintEstimate prints a one-line result of a single prediction.
func PrintEstimate(w io.Writer, p1, p2 string, format model.Format, r estimate.Result) {
	lo, hi := r.Interval()
	winner := p1
	if r.Winner() == model.Player2 {
		winner = p2
	}
	status := "converged"
	if !r.Converged {
		status = "NOT converged"
	}
	fmt.Fprintf(w, "\n%s vs %s (%s)\n\n", p1, p2, format)
	fmt.Fprintf(w, "  P(%s wins) : %.4f  [%.4f, %.4f]  z=%.3f\n", p1, r.P, lo, hi, r.Z)
	fmt.Fprintf(w, "  Trials     : %d (%d won by %s), %s in %s\n", r.Trials, r.Wins, p1, status, r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Prediction : %s\n\n", winner)
}

// PrintOutcome prints one simulated match.
func PrintOutcome(w io.Writer, p1, p2 string, out model.MatchOutcome) {
	fmt.Fprintf(w, "%s vs %s: %s\n", p1, p2, out)
}

// PrintDistribution prints a histogram of set differentials,
// sets(Player1) - sets(Player2), from most favourable to Player1 down.
func PrintDistribution(w io.Writer, p1, p2 string, hist map[int]int) {
	total := 0
	diffs := make([]int, 0, len(hist))
	for d, n := range hist {
		diffs = append(diffs, d)
		total += n
	}
	sort.Sort(sort.Reverse(sort.IntSlice(diffs)))

	fmt.Fprintf(w, "\nSet differential %s - %s over %d matches\n\n", p1, p2, total)
	table := newTable(w)
	table.Header("DIFF", "MATCHES", "SHARE", "")
	for _, d := range diffs {
		share := float64(hist[d]) / float64(total)
		table.Append(
			fmt.Sprintf("%+d", d),
			strconv.Itoa(hist[d]),
			fmt.Sprintf("%.1f%%", 100*share),
			bar(share, 40),
		)
	}
	table.Render()
}

func bar(share float64, width int) string {
	n := int(math.Round(share * float64(width)))
	out := make([]rune, n)
	for i := range out {
		out[i] = '█'
	}
	return string(out)
}

// PrintRunSummary prints the accuracy header of an evaluation run.
func PrintRunSummary(w io.Writer, r model.RunSummary) {
	fmt.Fprintf(w, "\nRun: %s  |  Dataset: %s  |  Format: %s  |  Date: %s\n",
		r.RunID, shortHash(r.Dataset), r.Format, r.CreatedAt)
	fmt.Fprintf(w, "Evaluated: %d  |  Correct: %d  |  Skipped: %d  |  Accuracy: %.1f%%\n\n",
		r.Evaluated, r.Correct, r.Skipped, 100*r.Accuracy())
}

// PrintPredictionTable prints one row per prediction. Correct predictions
// are marked with "✓", wrong ones with "✗".
func PrintPredictionTable(w io.Writer, preds []model.Prediction) {
	table := newTable(w)
	table.Header(" ", "ROW", "SERVER1", "SERVER2", "P", "±", "TRIALS", "PRED", "TRUE", "NOTE")
	for _, p := range preds {
		if p.Err != "" {
			table.Append("", strconv.Itoa(p.Row), p.Player1, p.Player2, "—", "—", "—", "—", winnerStr(p.Actual), p.Err)
			continue
		}
		mark := " "
		if p.Actual != 0 {
			mark = "✗"
			if p.Correct() {
				mark = "✓"
			}
		}
		note := ""
		if !p.Converged {
			note = "not converged"
		}
		table.Append(
			mark,
			strconv.Itoa(p.Row),
			p.Player1,
			p.Player2,
			fmt.Sprintf("%.3f", p.P),
			fmt.Sprintf("%.3f", p.HalfWidth),
			strconv.Itoa(p.Trials),
			winnerStr(p.Predicted),
			winnerStr(p.Actual),
			note,
		)
	}
	table.Render()
}

// PrintRunList prints one row per evaluation run.
func PrintRunList(w io.Writer, runs []model.RunSummary) {
	table := newTable(w)
	table.Header("RUN", "DATASET", "FORMAT", "DATE", "EVALUATED", "SKIPPED", "ACCURACY")
	for _, r := range runs {
		table.Append(
			shortHash(r.RunID),
			shortHash(r.Dataset),
			r.Format.String(),
			r.CreatedAt,
			strconv.Itoa(r.Evaluated),
			strconv.Itoa(r.Skipped),
			fmt.Sprintf("%.1f%%", 100*r.Accuracy()),
		)
	}
	table.Render()
}

func winnerStr(p model.PlayerIndex) string {
	if p == 0 {
		return "?"
	}
	return strconv.Itoa(int(p))
}

func shortHash(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

// PrintDatasetList prints one row per ingested dataset.
func PrintDatasetList(w io.Writer, datasets []model.Dataset) {
	table := newTable(w)
	table.Header("HASH", "ROWS", "INGESTED", "PATH")
	for _, d := range datasets {
		table.Append(shortHash(d.Hash), strconv.Itoa(d.Rows), d.IngestedAt, d.Path)
	}
	table.Render()
}

// PrintOverview prints the database-wide counts.
func PrintOverview(w io.Writer, ov model.Overview) {
	fmt.Fprintf(w, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(w, "  Players       : %d\n", ov.Players)
	fmt.Fprintf(w, "  Transitions   : %d\n", ov.Transitions)
	fmt.Fprintf(w, "  Datasets      : %d\n", ov.Datasets)
	fmt.Fprintf(w, "  Matches       : %d\n", ov.Matches)
	fmt.Fprintf(w, "  Runs          : %d\n", ov.Runs)
	fmt.Fprintf(w, "  Predictions   : %d\n", ov.Predictions)
}

// PrintRows prints the result of a raw query followed by its row count.
func PrintRows(w io.Writer, cols []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		table.Append(cells...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}

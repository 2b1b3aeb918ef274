// Package player holds the per-player serve/receive transition statistics
// learned from point-by-point records.
package player

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/pable/go-tennis-mc/internal/automaton"
	"github.com/pable/go-tennis-mc/internal/model"
)

// Model is one player's transition counts over the scoring automaton, kept
// separately for the serve and receive roles. The probability matrices and the
// aggregate point-win probabilities are derived from the counts and refreshed
// after every mutation. A Model is safe for concurrent readers once ingestion
// is done.
type Model struct {
	name   string
	logger zerolog.Logger

	counts   [2]*mat.Dense
	probs    [2]*mat.Dense
	observed [2][automaton.NumStates]bool
	winProb  [2]float64
	defined  [2]bool
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for ingestion warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// New returns a model with zero counts for both roles.
func New(name string, opts ...Option) *Model {
	m := &Model{
		name:   name,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, r := range model.Roles {
		m.counts[r] = mat.NewDense(automaton.NumStates, automaton.NumStates, nil)
		m.probs[r] = mat.NewDense(automaton.NumStates, automaton.NumStates, nil)
	}
	return m
}

// Cell is one non-zero transition count, the unit of persistence.
type Cell struct {
	Role  model.Role
	From  automaton.State
	To    automaton.State
	Count int
}

// Restore rebuilds a model from persisted counts. Every cell must lie on an
// automaton edge.
func Restore(name string, cells []Cell, opts ...Option) (*Model, error) {
	m := New(name, opts...)
	for _, c := range cells {
		if c.Role != model.Serve && c.Role != model.Receive {
			return nil, fmt.Errorf("restore %s: invalid role %d", name, c.Role)
		}
		if !automaton.IsEdge(c.From, c.To) {
			return nil, fmt.Errorf("restore %s: %d -> %d is not a scoring transition", name, c.From, c.To)
		}
		if c.Count < 0 {
			return nil, fmt.Errorf("restore %s: negative count %d", name, c.Count)
		}
		d := m.counts[c.Role]
		d.Set(int(c.From), int(c.To), d.At(int(c.From), int(c.To))+float64(c.Count))
	}
	m.recompute()
	return m, nil
}

// Name returns the player identity.
func (m *Model) Name() string { return m.name }

// Ingest walks the automaton along one game's point sequence and adds the
// transitions to the counts of role. Tokens are server-perspective: 'S' or
// 'A' means the server won the point, 'R' or 'D' that the server lost it.
// Sequences of one or two tokens are encoded tiebreaks and are ignored.
func (m *Model) Ingest(pbp string, role model.Role) []UnknownTokenWarning {
	if len(pbp) <= 2 {
		m.logger.Debug().Str("pbp", pbp).Msg("tiebreak chunk, ignoring")
		return nil
	}

	var warnings []UnknownTokenWarning
	warn := func(tok rune, pos int, reason string) {
		w := UnknownTokenWarning{Player: m.name, Role: role, Token: tok, Position: pos, Reason: reason}
		warnings = append(warnings, w)
		m.logger.Warn().Str("role", role.String()).Str("pbp", pbp).
			Int("position", pos).Str("token", string(tok)).Msg(reason)
	}

	counts := m.counts[role]
	state := automaton.Start
	for pos, tok := range pbp {
		idx, ok := tokenIndex(tok)
		if !ok {
			warn(tok, pos, ReasonUnknownToken)
			continue
		}
		if automaton.Terminal(state) {
			warn(tok, pos, ReasonPastTerminal)
			continue
		}
		next := automaton.Next(state, idx)
		counts.Set(int(state), int(next), counts.At(int(state), int(next))+1)
		state = next
	}

	m.recompute()
	return warnings
}

func tokenIndex(tok rune) (int, bool) {
	switch tok {
	case 'S', 'A':
		return automaton.WinIndex, true
	case 'R', 'D':
		return automaton.LoseIndex, true
	}
	return 0, false
}

// recompute refreshes both probability matrices and both aggregates.
func (m *Model) recompute() {
	for _, r := range model.Roles {
		counts, probs := m.counts[r], m.probs[r]
		for s := 0; s < automaton.NumStates; s++ {
			total := mat.Sum(counts.RowView(s))
			m.observed[r][s] = total > 0
			for j := 0; j < automaton.NumStates; j++ {
				p := 0.0
				if total > 0 {
					p = counts.At(s, j) / total
				}
				probs.Set(s, j, p)
			}
		}

		var wins, losses float64
		for s := automaton.State(0); s < automaton.NumStates; s++ {
			if automaton.Terminal(s) {
				continue
			}
			w, l := automaton.Transitions(s)
			won, lost := counts.At(int(s), int(w)), counts.At(int(s), int(l))
			if r == model.Receive {
				// The automaton is server-perspective; the receiver wins on the lose edge.
				won, lost = lost, won
			}
			wins += won
			losses += lost
		}
		m.defined[r] = wins+losses > 0
		m.winProb[r] = 0
		if m.defined[r] {
			m.winProb[r] = wins / (wins + losses)
		}
	}
}

// ProbabilityRow returns a copy of the normalised transition row for state.
// ok is false when the row has no observations; the caller must fall back.
func (m *Model) ProbabilityRow(role model.Role, state automaton.State) (row []float64, ok bool) {
	if !automaton.Valid(state) || !m.observed[role][state] {
		return nil, false
	}
	return mat.Row(nil, int(state), m.probs[role]), true
}

// AggregateWinProbability returns the share of points the player won in role
// across all observed states. ok is false when no point was observed.
func (m *Model) AggregateWinProbability(role model.Role) (p float64, ok bool) {
	return m.winProb[role], m.defined[role]
}

// Count returns counts[role][from][to].
func (m *Model) Count(role model.Role, from, to automaton.State) int {
	return int(m.counts[role].At(int(from), int(to)))
}

// Counts returns a copy of the count matrix of role.
func (m *Model) Counts(role model.Role) [][]int {
	out := make([][]int, automaton.NumStates)
	for s := range out {
		out[s] = make([]int, automaton.NumStates)
		for j := range out[s] {
			out[s][j] = int(m.counts[role].At(s, j))
		}
	}
	return out
}

// Observations returns the number of points recorded in role.
func (m *Model) Observations(role model.Role) int {
	return int(mat.Sum(m.counts[role]))
}

// Cells returns every non-zero count, ordered by role, from and to state.
func (m *Model) Cells() []Cell {
	var out []Cell
	for _, r := range model.Roles {
		for s := 0; s < automaton.NumStates; s++ {
			for j := 0; j < automaton.NumStates; j++ {
				if n := m.counts[r].At(s, j); n > 0 {
					out = append(out, Cell{Role: r, From: automaton.State(s), To: automaton.State(j), Count: int(n)})
				}
			}
		}
	}
	return out
}

// Summary returns the list view of the model.
func (m *Model) Summary() model.PlayerSummary {
	s := model.PlayerSummary{
		Name:          m.name,
		ServePoints:   m.Observations(model.Serve),
		ReceivePoints: m.Observations(model.Receive),
		ServeWinPct:   -1,
		ReceiveWinPct: -1,
	}
	if p, ok := m.AggregateWinProbability(model.Serve); ok {
		s.ServeWinPct = p * 100
	}
	if p, ok := m.AggregateWinProbability(model.Receive); ok {
		s.ReceiveWinPct = p * 100
	}
	return s
}

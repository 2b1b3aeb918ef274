package sim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pable/go-tennis-mc/internal/automaton"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
)

// GameStrategy draws single points and whole games for one player in one
// role. Sets, matches and the estimator only depend on this interface.
type GameStrategy interface {
	// SimulatePoint reports whether the role owner wins one point.
	SimulatePoint(src rand.Source, m *player.Model, role model.Role) (bool, error)
	// SimulateGame reports whether the role owner wins one game.
	SimulateGame(src rand.Source, m *player.Model, role model.Role) (bool, error)
}

// ServerChain walks the role's learned transition chain for games and draws
// points from the aggregate point-win probability.
type ServerChain struct{}

func (ServerChain) SimulatePoint(src rand.Source, m *player.Model, role model.Role) (bool, error) {
	return SimulatePoint(src, m, role)
}

func (ServerChain) SimulateGame(src rand.Source, m *player.Model, role model.Role) (bool, error) {
	return SimulateGame(src, m, role)
}

// SimulatePoint is a single Bernoulli draw on the aggregate point-win
// probability of role.
func SimulatePoint(src rand.Source, m *player.Model, role model.Role) (bool, error) {
	p, ok := m.AggregateWinProbability(role)
	if !ok {
		return false, &InsufficientDataError{Player: m.Name(), Role: role, State: AggregateState}
	}
	return distuv.Bernoulli{P: p, Src: src}.Rand() == 1, nil
}

// maxGamePoints bounds walks through rows that only cycle between deuce and
// advantage, which truncated records can produce.
const maxGamePoints = 1000

// SimulateGame walks the automaton from 0-0 until the game ends. Unobserved
// rows fall back to a two-outcome row built from the aggregate probability.
// The automaton is server-perspective, so a serving owner wins at Won and a
// receiving owner wins at Lost.
func SimulateGame(src rand.Source, m *player.Model, role model.Role) (bool, error) {
	state := automaton.Start
	for steps := 0; !automaton.Terminal(state); steps++ {
		if steps == maxGamePoints {
			return false, fmt.Errorf("%w: %s %s stuck at %q after %d points",
				ErrUndecidableGame, m.Name(), role, automaton.Label(state), steps)
		}
		row, ok := m.ProbabilityRow(role, state)
		if !ok {
			var err error
			if row, err = fallbackRow(m, role, state); err != nil {
				return false, err
			}
		}
		state = drawNext(src, row)
	}
	if role == model.Receive {
		return state == automaton.Lost, nil
	}
	return state == automaton.Won, nil
}

// fallbackRow places the owner's aggregate probability on the owner's win
// edge out of state and the complement on the other edge.
func fallbackRow(m *player.Model, role model.Role, state automaton.State) ([]float64, error) {
	p, ok := m.AggregateWinProbability(role)
	if !ok {
		return nil, &InsufficientDataError{Player: m.Name(), Role: role, State: state}
	}
	win, lose := automaton.Transitions(state)
	if role == model.Receive {
		win, lose = lose, win
	}
	row := make([]float64, automaton.NumStates)
	row[win] = p
	row[lose] = 1 - p
	return row, nil
}

// drawNext samples a successor state from row. Zero-weight picks, which the
// categorical sampler can return on an exact zero draw, are redrawn.
func drawNext(src rand.Source, row []float64) automaton.State {
	c := distuv.NewCategorical(row, src)
	for {
		next := int(c.Rand())
		if row[next] > 0 {
			return automaton.State(next)
		}
	}
}

package sim

import (
	"errors"
	"fmt"

	"github.com/pable/go-tennis-mc/internal/automaton"
	"github.com/pable/go-tennis-mc/internal/model"
)

// ErrInsufficientData is the sentinel wrapped by every InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// ErrUndecidableTiebreak is returned when a tiebreak cannot produce a
// two-point lead, e.g. both players win every point on serve.
var ErrUndecidableTiebreak = errors.New("tiebreak cannot be decided")

// ErrUndecidableGame is returned when a game walk never reaches a terminal
// state, e.g. observed rows only cycle between deuce and advantage.
var ErrUndecidableGame = errors.New("game cannot be decided")

// AggregateState marks an InsufficientDataError raised for the aggregate
// point-win probability rather than for a transition row.
const AggregateState automaton.State = -1

// InsufficientDataError reports a draw attempted against a role with no
// observations. It is never recovered inside the simulator.
type InsufficientDataError struct {
	Player string
	Role   model.Role
	State  automaton.State
}

func (e *InsufficientDataError) Error() string {
	if e.State == AggregateState {
		return fmt.Sprintf("%s: no %s points recorded for %s", ErrInsufficientData, e.Role, e.Player)
	}
	return fmt.Sprintf("%s: no %s points recorded for %s (row %q unobserved)",
		ErrInsufficientData, e.Role, e.Player, automaton.Label(e.State))
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

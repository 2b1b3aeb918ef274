// Package automaton describes the scoring of a single tennis game as a fixed
// finite-state machine shared by every player model and simulation.
package automaton

// State is a game score. States are numbered 0..NumStates-1.
type State int

// NumStates is the number of automaton states, terminal states included.
const NumStates = 20

// Terminal states. Both are stated from the server's perspective.
const (
	Start State = 0
	Won   State = 18 // game won by server
	Lost  State = 19 // game lost by server
)

// Transition indices. The server wins the point on WinIndex and loses it on LoseIndex.
const (
	WinIndex  = 0
	LoseIndex = 1
)

// transitions[s] = {state after server wins the point, state after server loses it}.
// Terminal rows loop back to Start and are never walked.
var transitions = [NumStates][2]State{
	0: {1, 2}, 1: {3, 4}, 2: {4, 5}, 3: {6, 7}, 4: {7, 8},
	5: {8, 9}, 6: {18, 10}, 7: {10, 11}, 8: {11, 12}, 9: {12, 19},
	10: {18, 13}, 11: {13, 14}, 12: {14, 19}, 13: {18, 15}, 14: {15, 17},
	15: {16, 17}, 16: {18, 15}, 17: {15, 19}, 18: {0, 0}, 19: {0, 0},
}

var labels = [NumStates]string{
	"0 - 0", "15 - 0", "0 - 15", "30 - 0", "15 - 15", "0 - 30",
	"40 - 0", "30 - 15", "15 - 30", "0 - 40", "40 - 15", "30 - 30",
	"15 - 40", "40 - 30", "30 - 40", "40 - 40", "Ad - 40", "40 - Ad",
	"W", "L",
}

// Next returns the state reached from s when the point resolves on idx
// (WinIndex or LoseIndex).
func Next(s State, idx int) State {
	return transitions[s][idx]
}

// Transitions returns the (win, lose) successor pair of s.
func Transitions(s State) (win, lose State) {
	t := transitions[s]
	return t[WinIndex], t[LoseIndex]
}

// Terminal reports whether s ends the game.
func Terminal(s State) bool {
	return s == Won || s == Lost
}

// Valid reports whether s is a state of the automaton.
func Valid(s State) bool {
	return s >= 0 && s < NumStates
}

// Label returns the server-first score label of s, e.g. "30 - 15".
func Label(s State) string {
	if !Valid(s) {
		return "?"
	}
	return labels[s]
}

// IsEdge reports whether from -> to is a transition of the automaton.
func IsEdge(from, to State) bool {
	if !Valid(from) || !Valid(to) || Terminal(from) {
		return false
	}
	w, l := Transitions(from)
	return to == w || to == l
}

package model

import (
	"fmt"
	"strings"
)

// Role is which side of a point a player is on.
type Role int

const (
	Serve   Role = 0
	Receive Role = 1
)

// Roles lists both roles in storage order.
var Roles = [2]Role{Serve, Receive}

func (r Role) String() string {
	switch r {
	case Serve:
		return "serve"
	case Receive:
		return "receive"
	default:
		return "?"
	}
}

// ParseRole maps the stored role name back to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "serve", "s":
		return Serve, nil
	case "receive", "r":
		return Receive, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// PlayerIndex identifies one side of a simulated match.
type PlayerIndex int

const (
	Player1 PlayerIndex = 1
	Player2 PlayerIndex = 2
)

// Other returns the opponent of p.
func (p PlayerIndex) Other() PlayerIndex {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// slot maps a PlayerIndex to a 0-based array slot.
func (p PlayerIndex) slot() int { return int(p) - 1 }

// ---- Match format ----

// Format is the best-of-N-sets format of a match.
type Format int

const (
	FormatTour      Format = 2 // best of three
	FormatGrandSlam Format = 3 // best of five
)

// SetsToWin returns the number of sets needed to take the match.
func (f Format) SetsToWin() int { return int(f) }

func (f Format) String() string {
	switch f {
	case FormatTour:
		return "tour"
	case FormatGrandSlam:
		return "grand slam"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	return f == FormatTour || f == FormatGrandSlam
}

// ParseFormat accepts the format names used in datasets and on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tour", "bo3", "best-of-3", "3":
		return FormatTour, nil
	case "grand slam", "grandslam", "grand-slam", "slam", "bo5", "best-of-5", "5":
		return FormatGrandSlam, nil
	}
	return 0, &ConfigurationError{Field: "format", Value: s}
}

// ---- Simulated score entities ----

// SetScore is the games won by each player in a set.
type SetScore [2]int

// Games returns the games won by p.
func (s SetScore) Games(p PlayerIndex) int { return s[p.slot()] }

// Add credits one game to p.
func (s *SetScore) Add(p PlayerIndex) { s[p.slot()]++ }

// Total is the number of games played in the set.
func (s SetScore) Total() int { return s[0] + s[1] }

func (s SetScore) String() string { return fmt.Sprintf("%d-%d", s[0], s[1]) }

// TiebreakScore is the points won by each player in a tiebreak.
type TiebreakScore [2]int

// Points returns the points won by p.
func (s TiebreakScore) Points(p PlayerIndex) int { return s[p.slot()] }

// Add credits one point to p.
func (s *TiebreakScore) Add(p PlayerIndex) { s[p.slot()]++ }

func (s TiebreakScore) String() string { return fmt.Sprintf("%d-%d", s[0], s[1]) }

// MatchOutcome is the result of one simulated match.
type MatchOutcome struct {
	Winner    PlayerIndex
	Sets      [2]int // sets won by Player1, Player2
	SetScores []SetScore
}

// SetsWon returns the sets won by p.
func (m MatchOutcome) SetsWon(p PlayerIndex) int { return m.Sets[p.slot()] }

// AddSet records a finished set won by winner.
func (m *MatchOutcome) AddSet(winner PlayerIndex, score SetScore) {
	m.Sets[winner.slot()]++
	m.SetScores = append(m.SetScores, score)
}

// Differential is sets(Player1) - sets(Player2).
func (m MatchOutcome) Differential() int { return m.Sets[0] - m.Sets[1] }

func (m MatchOutcome) String() string {
	parts := make([]string, len(m.SetScores))
	for i, s := range m.SetScores {
		parts[i] = s.String()
	}
	return fmt.Sprintf("P%d wins %d-%d (%s)", m.Winner, m.SetsWon(m.Winner), m.SetsWon(m.Winner.Other()), strings.Join(parts, ", "))
}

// ---- Historical records ----

// HistoricalMatch is one row of a point-by-point dataset.
type HistoricalMatch struct {
	Row        int
	Date       string
	Tournament string
	Player1    string // "server1": serves the first game
	Player2    string // "server2"
	PBP        string // raw point-by-point string
	Score      string
	Winner     PlayerIndex // 0 if unknown
}

// Dataset describes an ingested CSV file.
type Dataset struct {
	Hash       string
	Path       string
	Rows       int
	IngestedAt string
}

// PlayerSummary is the list view of a stored player model.
type PlayerSummary struct {
	Name          string
	ServePoints   int
	ReceivePoints int
	ServeWinPct   float64 // -1 if undefined
	ReceiveWinPct float64 // -1 if undefined
}

// ---- Predictions ----

// Prediction is one estimated match, with the historical winner when known.
type Prediction struct {
	RunID     string
	Row       int
	Player1   string
	Player2   string
	Format    Format
	P         float64 // estimated probability that Player1 wins
	HalfWidth float64
	Trials    int
	Converged bool
	Predicted PlayerIndex
	Actual    PlayerIndex // 0 if unknown
	Err       string      // non-empty if the match could not be estimated
}

// Correct reports whether the prediction matched a known winner.
func (p Prediction) Correct() bool {
	return p.Err == "" && p.Actual != 0 && p.Predicted == p.Actual
}

// RunSummary is the accuracy bookkeeping of one evaluation run.
type RunSummary struct {
	RunID     string
	Dataset   string
	Format    Format
	CreatedAt string
	Evaluated int
	Correct   int
	Skipped   int
}

// Accuracy is Correct / Evaluated, or 0 when nothing was evaluated.
func (r RunSummary) Accuracy() float64 {
	if r.Evaluated == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Evaluated)
}

// Overview is the database-wide summary.
type Overview struct {
	Players     int
	Datasets    int
	Matches     int
	Runs        int
	Predictions int
	Transitions int
}

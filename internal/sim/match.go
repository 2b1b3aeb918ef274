// Package sim composes points and games drawn from player models into
// tiebreaks, sets and full matches.
package sim

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
)

// Scoring targets.
const (
	TiebreakPoints      = 7
	MatchTiebreakPoints = 10
	gamesPerSet         = 6
	winningLead         = 2

	// maxTiebreakPoints bounds tiebreaks between players who both hold (or
	// both lose) every service point, which never reach a two-point lead.
	maxTiebreakPoints = 1000
)

// Option configures a Match.
type Option func(*Match)

// WithSource sets the random source. Identical seeds reproduce identical
// games, sets and matches.
func WithSource(src rand.Source) Option {
	return func(m *Match) {
		if src != nil {
			m.src = src
		}
	}
}

// WithSeed seeds a fresh source.
func WithSeed(seed uint64) Option {
	return func(m *Match) {
		m.src = rand.NewSource(seed)
	}
}

// WithStrategy replaces the default ServerChain strategy.
func WithStrategy(s GameStrategy) Option {
	return func(m *Match) {
		if s != nil {
			m.strategy = s
		}
	}
}

// WithLogger sets the logger used for per-set trace output.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Match) {
		m.logger = l
	}
}

// Match simulates matches between two player models under one format.
// A Match is not safe for concurrent use; Clone it per goroutine.
type Match struct {
	players  [2]*player.Model
	format   model.Format
	src      rand.Source
	strategy GameStrategy
	logger   zerolog.Logger
}

// NewMatch builds a match between p1 (serving first) and p2.
func NewMatch(p1, p2 *player.Model, format model.Format, opts ...Option) (*Match, error) {
	if !format.Valid() {
		return nil, &model.ConfigurationError{Field: "format", Value: format.String()}
	}
	if p1 == nil || p2 == nil {
		return nil, fmt.Errorf("new match: both players are required")
	}
	m := &Match{
		players:  [2]*player.Model{p1, p2},
		format:   format,
		src:      rand.NewSource(uint64(time.Now().UnixNano())),
		strategy: ServerChain{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Clone returns a match over the same players, format and strategy drawing
// from src.
func (m *Match) Clone(src rand.Source) *Match {
	c := *m
	c.src = src
	return &c
}

// Player returns the model playing as p.
func (m *Match) Player(p model.PlayerIndex) *player.Model {
	return m.players[p-1]
}

// Format returns the match format.
func (m *Match) Format() model.Format { return m.format }

// Validate fails with an InsufficientDataError if either player has no
// recorded serve points, since every game and tiebreak point is drawn from
// the server's side.
func (m *Match) Validate() error {
	for _, pl := range m.players {
		if _, ok := pl.AggregateWinProbability(model.Serve); !ok {
			return &InsufficientDataError{Player: pl.Name(), Role: model.Serve, State: AggregateState}
		}
	}
	return nil
}

// SimulateTiebreak plays a tiebreak to target points. first serves one point,
// then service alternates every two points. Points are drawn from the
// server's serve-role probability only.
func (m *Match) SimulateTiebreak(target int, first model.PlayerIndex) (model.PlayerIndex, model.TiebreakScore, error) {
	var score model.TiebreakScore
	server := first
	served, quota := 0, 1
	for played := 0; ; played++ {
		if played == maxTiebreakPoints {
			return 0, score, fmt.Errorf("%w after %d points (%s)", ErrUndecidableTiebreak, played, score)
		}
		won, err := m.strategy.SimulatePoint(m.src, m.Player(server), model.Serve)
		if err != nil {
			return 0, score, err
		}
		if won {
			score.Add(server)
		} else {
			score.Add(server.Other())
		}

		for _, p := range []model.PlayerIndex{model.Player1, model.Player2} {
			if score.Points(p) >= target && score.Points(p)-score.Points(p.Other()) >= winningLead {
				return p, score, nil
			}
		}

		if served++; served == quota {
			server = server.Other()
			served, quota = 0, 2
		}
	}
}

// SimulateSet plays one set with first serving the opening game. At 6-6 the
// next scheduled server opens a tiebreak whose winner takes the set 7-6.
func (m *Match) SimulateSet(first model.PlayerIndex) (model.PlayerIndex, model.SetScore, error) {
	var score model.SetScore
	server := first
	for {
		if score.Games(model.Player1) == gamesPerSet && score.Games(model.Player2) == gamesPerSet {
			winner, tb, err := m.SimulateTiebreak(TiebreakPoints, server)
			if err != nil {
				return 0, score, err
			}
			score.Add(winner)
			m.logger.Trace().Str("tiebreak", tb.String()).Str("set", score.String()).Msg("set decided by tiebreak")
			return winner, score, nil
		}

		won, err := m.strategy.SimulateGame(m.src, m.Player(server), model.Serve)
		if err != nil {
			return 0, score, err
		}
		if won {
			score.Add(server)
		} else {
			score.Add(server.Other())
		}

		for _, p := range []model.PlayerIndex{model.Player1, model.Player2} {
			if score.Games(p) >= gamesPerSet && score.Games(p)-score.Games(p.Other()) >= winningLead {
				m.logger.Trace().Str("set", score.String()).Msg("set finished")
				return p, score, nil
			}
		}

		server = server.Other()
	}
}

// SimulateMatch plays sets until one player reaches the format's sets to win.
// Player 1 serves first. Each later set is opened by Player 1 if the previous
// set had an even number of games, otherwise by Player 2.
func (m *Match) SimulateMatch() (model.MatchOutcome, error) {
	var out model.MatchOutcome
	server := model.Player1
	for {
		winner, score, err := m.SimulateSet(server)
		if err != nil {
			return out, err
		}
		out.AddSet(winner, score)

		if out.SetsWon(winner) == m.format.SetsToWin() {
			out.Winner = winner
			return out, nil
		}

		// TODO: carry the actual server over from the last game once tiebreak
		// service order is tracked; this parity rule ignores the tiebreak game.
		if score.Total()%2 == 0 {
			server = model.Player1
		} else {
			server = model.Player2
		}
	}
}

// Distribution simulates trials matches and returns how often each
// set differential sets(Player1) - sets(Player2) occurred.
func (m *Match) Distribution(trials int) (map[int]int, error) {
	hist := make(map[int]int)
	for i := 0; i < trials; i++ {
		out, err := m.SimulateMatch()
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i+1, err)
		}
		hist[out.Differential()]++
	}
	return hist, nil
}

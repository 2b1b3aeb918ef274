// Package estimate runs matches until the probability that Player 1 wins is
// known to a requested precision.
package estimate

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pable/go-tennis-mc/internal/metrics"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/sim"
)

// Result is a finished estimate.
type Result struct {
	P         float64 // estimated probability that Player1 wins
	HalfWidth float64
	Trials    int
	Wins      int
	Z         float64
	Converged bool
	Elapsed   time.Duration
}

// Interval returns the confidence interval clamped to [0, 1].
func (r Result) Interval() (lo, hi float64) {
	return math.Max(0, r.P-r.HalfWidth), math.Min(1, r.P+r.HalfWidth)
}

// Winner is Player1 when P > 0.5, otherwise Player2.
func (r Result) Winner() model.PlayerIndex {
	if r.P > 0.5 {
		return model.Player1
	}
	return model.Player2
}

// CriticalValue returns the two-sided standard normal critical value for a
// confidence level, e.g. 1.2816 for 0.80.
func CriticalValue(confidence float64) float64 {
	return distuv.UnitNormal.Quantile(confidence + (1-confidence)/2)
}

// HalfWidth is the Wald half-width z*sqrt(p(1-p)/n).
func HalfWidth(z, p float64, n int) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	return z * math.Sqrt(p*(1-p)/float64(n))
}

// Estimator repeatedly simulates one match.
type Estimator struct {
	match *sim.Match

	confidence   float64
	maxHalfWidth float64
	minTrials    int
	maxTrials    int
	workers      int
	seed         uint64
	seeded       bool

	collector metrics.Collector
	logger    zerolog.Logger
}

// New returns an estimator for match.
func New(match *sim.Match, opts ...Option) *Estimator {
	e := &Estimator{
		match:        match,
		confidence:   DefaultConfidence,
		maxHalfWidth: DefaultMaxHalfWidth,
		minTrials:    DefaultMinTrials,
		maxTrials:    DefaultMaxTrials,
		workers:      1,
		collector:    metrics.NewNopCollector(),
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Estimator) validate() error {
	switch {
	case e.match == nil:
		return &model.ConfigurationError{Field: "match", Msg: "no match to estimate"}
	case !(e.confidence > 0 && e.confidence < 1):
		return &model.ConfigurationError{Field: "confidence", Value: fmt.Sprint(e.confidence), Msg: "must be in (0, 1)"}
	case !(e.maxHalfWidth > 0):
		return &model.ConfigurationError{Field: "max half-width", Value: fmt.Sprint(e.maxHalfWidth), Msg: "must be positive"}
	case e.minTrials < 0:
		return &model.ConfigurationError{Field: "min trials", Value: fmt.Sprint(e.minTrials), Msg: "must not be negative"}
	case e.maxTrials <= e.minTrials:
		return &model.ConfigurationError{Field: "max trials", Value: fmt.Sprint(e.maxTrials), Msg: "must exceed min trials"}
	case e.workers < 1:
		return &model.ConfigurationError{Field: "workers", Value: fmt.Sprint(e.workers), Msg: "must be at least 1"}
	}
	return nil
}

// Estimate simulates until more than minTrials matches have run and the
// half-width is at most maxHalfWidth. If maxTrials is reached first the
// partial result is returned with a *NonConvergenceError. Any simulation
// error aborts the run.
func (e *Estimator) Estimate(ctx context.Context) (Result, error) {
	if err := e.validate(); err != nil {
		return Result{}, err
	}
	if err := e.match.Validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	acc := &accumulator{
		z:            CriticalValue(e.confidence),
		minTrials:    e.minTrials,
		maxTrials:    e.maxTrials,
		maxHalfWidth: e.maxHalfWidth,
	}
	seed := e.seed
	if !e.seeded {
		seed = uint64(start.UnixNano())
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.workers; i++ {
		m := e.match.Clone(rand.NewSource(seed + uint64(i)))
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				if acc.finished() {
					return nil
				}
				out, err := m.SimulateMatch()
				if err != nil {
					return fmt.Errorf("simulate match: %w", err)
				}
				if acc.record(out.Winner == model.Player1) {
					return nil
				}
			}
		})
	}
	err := g.Wait()

	res := acc.snapshot()
	res.Elapsed = time.Since(start)
	e.collector.AddTrials(res.Trials)
	if err != nil {
		return res, err
	}
	e.collector.ObserveEstimate(res.Trials, res.Converged, res.Elapsed)

	log := e.logger.With().
		Str("player1", e.match.Player(model.Player1).Name()).
		Str("player2", e.match.Player(model.Player2).Name()).
		Int("trials", res.Trials).Float64("p", res.P).Float64("half_width", res.HalfWidth).
		Logger()
	if !res.Converged {
		log.Warn().Msg("trial ceiling reached")
		return res, &NonConvergenceError{Trials: res.Trials, P: res.P, HalfWidth: res.HalfWidth}
	}
	log.Debug().Dur("elapsed", res.Elapsed).Msg("estimate converged")
	return res, nil
}

// accumulator collects trial outcomes from all workers. The stopping
// decision and the final result come from the same locked update, so
// trials recorded after it are dropped.
type accumulator struct {
	z            float64
	minTrials    int
	maxTrials    int
	maxHalfWidth float64

	mu        sync.Mutex
	trials    int
	wins      int
	halfWidth float64
	converged bool
	done      bool
}

func (a *accumulator) finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// record adds one trial and reports whether the workers should stop.
func (a *accumulator) record(won bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return true
	}
	a.trials++
	if won {
		a.wins++
	}
	p := float64(a.wins) / float64(a.trials)
	a.halfWidth = HalfWidth(a.z, p, a.trials)
	if a.trials > a.minTrials && a.halfWidth <= a.maxHalfWidth {
		a.converged, a.done = true, true
	} else if a.trials >= a.maxTrials {
		a.done = true
	}
	return a.done
}

func (a *accumulator) snapshot() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := Result{
		Trials:    a.trials,
		Wins:      a.wins,
		Z:         a.z,
		HalfWidth: a.halfWidth,
		Converged: a.converged,
	}
	if a.trials > 0 {
		r.P = float64(a.wins) / float64(a.trials)
	} else {
		r.HalfWidth = math.Inf(1)
	}
	return r
}

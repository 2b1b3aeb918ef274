// Package evaluate predicts historical matches with the estimator and scores
// the predictions against the recorded winners.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pable/go-tennis-mc/internal/estimate"
	"github.com/pable/go-tennis-mc/internal/metrics"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
	"github.com/pable/go-tennis-mc/internal/sim"
)

// Players looks up player models by name.
type Players interface {
	Get(name string) (*player.Model, error)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxEvals stops after the first n dataset rows. Zero means no cap.
func WithMaxEvals(n int) Option {
	return func(e *Evaluator) {
		e.maxEvals = n
	}
}

// WithEstimatorOptions passes options to every estimate.
func WithEstimatorOptions(opts ...estimate.Option) Option {
	return func(e *Evaluator) {
		e.estOpts = append(e.estOpts, opts...)
	}
}

// WithSeed makes evaluations reproducible. Each row gets its own seed
// derived from seed and the row index.
func WithSeed(seed uint64) Option {
	return func(e *Evaluator) {
		e.seed = seed
		e.seeded = true
	}
}

// WithCollector reports predictions and estimates to c.
func WithCollector(c metrics.Collector) Option {
	return func(e *Evaluator) {
		if c != nil {
			e.collector = c
		}
	}
}

// WithLogger sets the logger for per-row progress.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// Evaluator runs estimates between named players.
type Evaluator struct {
	players   Players
	format    model.Format
	maxEvals  int
	estOpts   []estimate.Option
	seed      uint64
	seeded    bool
	collector metrics.Collector
	logger    zerolog.Logger
}

// New returns an evaluator over players for one match format.
func New(players Players, format model.Format, opts ...Option) (*Evaluator, error) {
	if !format.Valid() {
		return nil, &model.ConfigurationError{Field: "format", Value: format.String()}
	}
	e := &Evaluator{
		players:   players,
		format:    format,
		collector: metrics.NewNopCollector(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxEvals < 0 {
		return nil, &model.ConfigurationError{Field: "max evals", Value: fmt.Sprint(e.maxEvals), Msg: "must not be negative"}
	}
	return e, nil
}

// Format returns the match format used for every estimate.
func (e *Evaluator) Format() model.Format { return e.format }

// Predict estimates the probability that p1, serving first, beats p2.
func (e *Evaluator) Predict(ctx context.Context, p1, p2 string) (estimate.Result, error) {
	return e.predict(ctx, p1, p2, e.format, 0)
}

// PredictFormat is Predict under another match format.
func (e *Evaluator) PredictFormat(ctx context.Context, p1, p2 string, format model.Format) (estimate.Result, error) {
	return e.predict(ctx, p1, p2, format, 0)
}

func (e *Evaluator) predict(ctx context.Context, p1, p2 string, format model.Format, row int) (estimate.Result, error) {
	m1, err := e.players.Get(p1)
	if err != nil {
		return estimate.Result{}, err
	}
	m2, err := e.players.Get(p2)
	if err != nil {
		return estimate.Result{}, err
	}
	match, err := sim.NewMatch(m1, m2, format, sim.WithLogger(e.logger))
	if err != nil {
		return estimate.Result{}, err
	}

	opts := append([]estimate.Option{
		estimate.WithCollector(e.collector),
		estimate.WithLogger(e.logger),
	}, e.estOpts...)
	if e.seeded {
		// Rows are spaced so that per-worker seeds never overlap.
		opts = append(opts, estimate.WithSeed(e.seed+uint64(row)<<16))
	}
	return estimate.New(match, opts...).Estimate(ctx)
}

// Run is one evaluated dataset.
type Run struct {
	Summary     model.RunSummary
	Predictions []model.Prediction
}

// Evaluate predicts every match in order, up to the max-evals cap. Rows that
// cannot be estimated (unknown player, insufficient data, undecidable
// tiebreak) are kept with Err set and counted as skipped; an estimate that
// hit the trial ceiling still counts as a prediction. Only cancellation
// aborts the run.
func (e *Evaluator) Evaluate(ctx context.Context, dataset string, matches []model.HistoricalMatch) (*Run, error) {
	run := &Run{Summary: model.RunSummary{
		RunID:     uuid.NewString(),
		Dataset:   dataset,
		Format:    e.format,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}}
	log := e.logger.With().Str("run", run.Summary.RunID).Logger()

	for i, m := range matches {
		if e.maxEvals > 0 && i >= e.maxEvals {
			break
		}
		if err := ctx.Err(); err != nil {
			return run, err
		}

		pred := model.Prediction{
			RunID:   run.Summary.RunID,
			Row:     m.Row,
			Player1: m.Player1,
			Player2: m.Player2,
			Format:  e.format,
			Actual:  m.Winner,
		}
		res, err := e.predict(ctx, m.Player1, m.Player2, e.format, m.Row)
		var nce *estimate.NonConvergenceError
		switch {
		case err == nil, errors.As(err, &nce):
			pred.P = res.P
			pred.HalfWidth = res.HalfWidth
			pred.Trials = res.Trials
			pred.Converged = res.Converged
			pred.Predicted = res.Winner()
		case ctx.Err() != nil:
			return run, ctx.Err()
		default:
			pred.Err = err.Error()
		}
		run.Predictions = append(run.Predictions, pred)

		s := &run.Summary
		skipped := pred.Err != ""
		switch {
		case skipped:
			s.Skipped++
		case pred.Actual != 0:
			s.Evaluated++
			if pred.Correct() {
				s.Correct++
			}
		}
		e.collector.ObservePrediction(pred.Correct(), skipped)

		ev := log.Debug()
		if skipped {
			ev = log.Warn().Str("error", pred.Err)
		}
		ev.Int("row", m.Row).Str("player1", m.Player1).Str("player2", m.Player2).
			Int("predicted", int(pred.Predicted)).Int("actual", int(m.Winner)).
			Float64("p", pred.P).Float64("accuracy", s.Accuracy()).Msg("evaluated match")
	}
	return run, nil
}

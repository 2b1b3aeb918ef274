package estimate

import (
	"github.com/rs/zerolog"

	"github.com/pable/go-tennis-mc/internal/metrics"
)

// Defaults.
const (
	DefaultConfidence   = 0.80
	DefaultMaxHalfWidth = 0.05
	DefaultMinTrials    = 30
	DefaultMaxTrials    = 1_000_000
)

// Option configures an Estimator.
type Option func(*Estimator)

// WithConfidence sets the two-sided confidence level, in (0, 1).
func WithConfidence(c float64) Option {
	return func(e *Estimator) {
		e.confidence = c
	}
}

// WithMaxHalfWidth sets the target half-width of the confidence interval.
func WithMaxHalfWidth(w float64) Option {
	return func(e *Estimator) {
		e.maxHalfWidth = w
	}
}

// WithMinTrials sets the number of trials that must be exceeded before the
// estimator may stop.
func WithMinTrials(n int) Option {
	return func(e *Estimator) {
		e.minTrials = n
	}
}

// WithMaxTrials sets the trial ceiling.
func WithMaxTrials(n int) Option {
	return func(e *Estimator) {
		e.maxTrials = n
	}
}

// WithWorkers sets the number of goroutines running trials.
func WithWorkers(n int) Option {
	return func(e *Estimator) {
		e.workers = n
	}
}

// WithSeed makes runs reproducible. Worker i draws from seed+i.
func WithSeed(seed uint64) Option {
	return func(e *Estimator) {
		e.seed = seed
		e.seeded = true
	}
}

// WithCollector reports trials and finished estimates to c.
func WithCollector(c metrics.Collector) Option {
	return func(e *Estimator) {
		if c != nil {
			e.collector = c
		}
	}
}

// WithLogger sets the logger for convergence output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Estimator) {
		e.logger = l
	}
}

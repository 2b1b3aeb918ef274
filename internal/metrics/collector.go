// Package metrics records simulation and evaluation activity.
package metrics

import (
	"time"
)

// Collector receives events from the estimator, the evaluator and the HTTP
// server. Implementations must be safe for concurrent use.
type Collector interface {
	// AddTrials counts simulated matches.
	AddTrials(n int)
	// ObserveEstimate records one finished estimate.
	ObserveEstimate(trials int, converged bool, elapsed time.Duration)
	// ObservePrediction records one evaluated historical match.
	ObservePrediction(correct, skipped bool)
	// ObserveRequest records one served HTTP request.
	ObserveRequest(route string, status int, elapsed time.Duration)
}

type nopCollector struct{}

// NewNopCollector returns a Collector that discards everything.
func NewNopCollector() Collector {
	return nopCollector{}
}

func (nopCollector) AddTrials(int)                             {}
func (nopCollector) ObserveEstimate(int, bool, time.Duration)  {}
func (nopCollector) ObservePrediction(bool, bool)              {}
func (nopCollector) ObserveRequest(string, int, time.Duration) {}

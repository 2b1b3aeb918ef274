package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-tennis-mc/internal/estimate"
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/player"
	"github.com/pable/go-tennis-mc/internal/sim"
)

func testRegistry() *player.Registry {
	reg := player.NewRegistry(zerolog.Nop())
	reg.GetOrCreate("Alice").Ingest("SSSS", model.Serve)
	reg.GetOrCreate("Bob").Ingest("RRRR", model.Serve)
	for _, name := range []string{"Carol", "Erin"} {
		m := reg.GetOrCreate(name)
		for _, g := range []string{"SSSS", "SRSRSS", "RRRR", "SRSRSRRR", "SSRSS", "RSRRR"} {
			m.Ingest(g, model.Serve)
		}
	}
	reg.GetOrCreate("Dan")
	return reg
}

type predictionCounter struct {
	mu                      sync.Mutex
	correct, wrong, skipped int
	estimates               int
}

func (c *predictionCounter) AddTrials(int) {}
func (c *predictionCounter) ObserveEstimate(int, bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimates++
}
func (c *predictionCounter) ObservePrediction(correct, skipped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case skipped:
		c.skipped++
	case correct:
		c.correct++
	default:
		c.wrong++
	}
}
func (c *predictionCounter) ObserveRequest(string, int, time.Duration) {}

var history = []model.HistoricalMatch{
	{Row: 0, Player1: "Alice", Player2: "Bob", Winner: model.Player1},
	{Row: 1, Player1: "Bob", Player2: "Alice", Winner: model.Player2},
	{Row: 2, Player1: "Alice", Player2: "Eve", Winner: model.Player1},
	{Row: 3, Player1: "Alice", Player2: "Dan", Winner: model.Player1},
	{Row: 4, Player1: "Alice", Player2: "Bob", Winner: model.Player2},
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(testRegistry(), model.Format(7))
	var cfgErr *model.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	_, err = New(testRegistry(), model.FormatTour, WithMaxEvals(-1))
	require.True(t, errors.As(err, &cfgErr))
}

func TestPredict(t *testing.T) {
	ev, err := New(testRegistry(), model.FormatTour, WithSeed(1))
	require.NoError(t, err)

	res, err := ev.Predict(context.Background(), "Alice", "Bob")
	require.NoError(t, err)
	require.Equal(t, 1.0, res.P)
	require.Equal(t, estimate.DefaultMinTrials+1, res.Trials)

	res, err = ev.PredictFormat(context.Background(), "Bob", "Alice", model.FormatGrandSlam)
	require.NoError(t, err)
	require.Zero(t, res.P)
	require.Equal(t, model.Player2, res.Winner())

	_, err = ev.Predict(context.Background(), "Alice", "Eve")
	require.True(t, errors.Is(err, player.ErrPlayerNotFound))

	_, err = ev.Predict(context.Background(), "Dan", "Alice")
	require.True(t, errors.Is(err, sim.ErrInsufficientData))
}

func TestEvaluate(t *testing.T) {
	c := &predictionCounter{}
	ev, err := New(testRegistry(), model.FormatTour, WithSeed(1), WithCollector(c))
	require.NoError(t, err)

	run, err := ev.Evaluate(context.Background(), "abc123", history)
	require.NoError(t, err)
	require.NotEmpty(t, run.Summary.RunID)
	require.Equal(t, "abc123", run.Summary.Dataset)
	require.Len(t, run.Predictions, 5)

	require.Equal(t, 3, run.Summary.Evaluated)
	require.Equal(t, 2, run.Summary.Correct)
	require.Equal(t, 2, run.Summary.Skipped)
	require.InDelta(t, 2.0/3.0, run.Summary.Accuracy(), 1e-12)

	p := run.Predictions
	require.Equal(t, model.Player1, p[0].Predicted)
	require.True(t, p[0].Correct())
	require.Equal(t, model.Player2, p[1].Predicted)
	require.True(t, p[1].Correct())
	require.Contains(t, p[2].Err, "player not found")
	require.Contains(t, p[3].Err, "insufficient data")
	require.False(t, p[4].Correct())
	for _, pred := range p {
		require.Equal(t, run.Summary.RunID, pred.RunID)
	}

	require.Equal(t, 2, c.correct)
	require.Equal(t, 1, c.wrong)
	require.Equal(t, 2, c.skipped)
	require.Equal(t, 3, c.estimates)
}

func TestEvaluateMaxEvals(t *testing.T) {
	ev, err := New(testRegistry(), model.FormatTour, WithSeed(1), WithMaxEvals(2))
	require.NoError(t, err)

	run, err := ev.Evaluate(context.Background(), "abc123", history)
	require.NoError(t, err)
	require.Len(t, run.Predictions, 2)
	require.Equal(t, 2, run.Summary.Evaluated)
	require.Equal(t, 1.0, run.Summary.Accuracy())
}

func TestEvaluateCountsNonConvergedPredictions(t *testing.T) {
	ev, err := New(testRegistry(), model.FormatTour, WithSeed(4),
		WithEstimatorOptions(estimate.WithMinTrials(20), estimate.WithMaxTrials(40), estimate.WithMaxHalfWidth(0.0001)))
	require.NoError(t, err)

	run, err := ev.Evaluate(context.Background(), "abc123", []model.HistoricalMatch{
		{Row: 0, Player1: "Carol", Player2: "Erin", Winner: model.Player1},
	})
	require.NoError(t, err)
	require.Len(t, run.Predictions, 1)
	require.Empty(t, run.Predictions[0].Err)
	require.False(t, run.Predictions[0].Converged)
	require.Equal(t, 40, run.Predictions[0].Trials)
	require.Equal(t, 1, run.Summary.Evaluated)
	require.Zero(t, run.Summary.Skipped)
}

func TestEvaluateCancelled(t *testing.T) {
	ev, err := New(testRegistry(), model.FormatTour, WithSeed(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ev.Evaluate(ctx, "abc123", history)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteCSV(t *testing.T) {
	ev, err := New(testRegistry(), model.FormatTour, WithSeed(1), WithMaxEvals(3))
	require.NoError(t, err)
	run, err := ev.Evaluate(context.Background(), "abc123", history)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ExportCSV, run.Summary, run.Predictions))
	want := strings.Join([]string{
		",server1,server2,prediction,p,true",
		"0,Alice,Bob,1,1,1",
		"1,Bob,Alice,2,0,2",
		"2,Alice,Eve,,,1",
		"",
	}, "\n")
	require.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	ev, err := New(testRegistry(), model.FormatGrandSlam, WithSeed(1), WithMaxEvals(3))
	require.NoError(t, err)
	run, err := ev.Evaluate(context.Background(), "abc123", history)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ExportJSON, run.Summary, run.Predictions))

	var got struct {
		RunID       string  `json:"run_id"`
		Format      string  `json:"format"`
		Accuracy    float64 `json:"accuracy"`
		Predictions []struct {
			Server1    string `json:"server1"`
			Prediction int    `json:"prediction"`
			True       int    `json:"true"`
			Error      string `json:"error"`
		} `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, run.Summary.RunID, got.RunID)
	require.Equal(t, "grand slam", got.Format)
	require.Equal(t, 1.0, got.Accuracy)
	require.Len(t, got.Predictions, 3)
	require.Equal(t, 2, got.Predictions[1].Prediction)
	require.NotEmpty(t, got.Predictions[2].Error)
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "xml", model.RunSummary{}, nil)
	var cfgErr *model.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

package player

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-tennis-mc/internal/automaton"
	"github.com/pable/go-tennis-mc/internal/model"
)

// nonZero collects the non-zero cells of a count matrix.
func nonZero(counts [][]int) map[[2]int]int {
	out := make(map[[2]int]int)
	for i, row := range counts {
		for j, n := range row {
			if n != 0 {
				out[[2]int{i, j}] = n
			}
		}
	}
	return out
}

func TestIngestLoveGame(t *testing.T) {
	m := New("Alice")

	warnings := m.Ingest("SSSS", model.Serve)

	require.Empty(t, warnings)
	require.Equal(t, map[[2]int]int{
		{0, 1}:  1,
		{1, 3}:  1,
		{3, 6}:  1,
		{6, 18}: 1,
	}, nonZero(m.Counts(model.Serve)))
	require.Empty(t, nonZero(m.Counts(model.Receive)), "receive counts must not change")

	p, ok := m.AggregateWinProbability(model.Serve)
	require.True(t, ok)
	require.Equal(t, 1.0, p)
}

func TestIngestAlternatingReachesDeuce(t *testing.T) {
	t.Run("serve role", func(t *testing.T) {
		m := New("Alice")
		m.Ingest("SRSRSR", model.Serve)

		require.Equal(t, map[[2]int]int{
			{0, 1}:   1,
			{1, 4}:   1,
			{4, 7}:   1,
			{7, 11}:  1,
			{11, 13}: 1,
			{13, 15}: 1,
		}, nonZero(m.Counts(model.Serve)))
		require.Equal(t, "40 - 40", automaton.Label(15))

		p, ok := m.AggregateWinProbability(model.Serve)
		require.True(t, ok)
		require.InDelta(t, 0.5, p, 1e-12)
	})

	t.Run("receive role counts lose edges as wins", func(t *testing.T) {
		m := New("Bob")
		m.Ingest("SSSR", model.Receive)

		// Server won three of four points, so the receiver won one.
		p, ok := m.AggregateWinProbability(model.Receive)
		require.True(t, ok)
		require.InDelta(t, 0.25, p, 1e-12)

		_, ok = m.AggregateWinProbability(model.Serve)
		require.False(t, ok)
	})
}

func TestIngestSkipsTiebreakChunks(t *testing.T) {
	for _, pbp := range []string{"", "S", "SR", "RR"} {
		m := New("Alice")
		m.Ingest(pbp, model.Serve)
		m.Ingest(pbp, model.Receive)

		require.Empty(t, nonZero(m.Counts(model.Serve)), "pbp %q", pbp)
		require.Empty(t, nonZero(m.Counts(model.Receive)), "pbp %q", pbp)
		_, ok := m.AggregateWinProbability(model.Serve)
		require.False(t, ok)
	}
}

func TestIngestUnknownTokens(t *testing.T) {
	m := New("Alice", WithLogger(zerolog.Nop()))

	warnings := m.Ingest("SxSAA", model.Serve)

	require.Len(t, warnings, 1)
	require.Equal(t, 'x', warnings[0].Token)
	require.Equal(t, 1, warnings[0].Position)
	require.Equal(t, ReasonUnknownToken, warnings[0].Reason)
	require.Contains(t, warnings[0].Error(), "Alice")
	// The unknown token neither advanced the state nor counted: S A A + S = love game.
	require.Equal(t, 1, m.Count(model.Serve, 6, automaton.Won))
	require.Equal(t, 4, m.Observations(model.Serve))
}

func TestIngestTokensPastGameEnd(t *testing.T) {
	m := New("Alice")

	warnings := m.Ingest("SSSSR", model.Serve)

	require.Len(t, warnings, 1)
	require.Equal(t, ReasonPastTerminal, warnings[0].Reason)
	require.Equal(t, 4, m.Observations(model.Serve))
	require.Zero(t, m.Count(model.Serve, automaton.Won, automaton.Start))
}

func TestProbabilityRowsSumToOne(t *testing.T) {
	m := New("Alice")
	for _, game := range []string{"SSSS", "SRSRSR", "RRRR", "SRSRSRSS", "RSRSRSRR", "DADADDAA", "SSRRSRSS"} {
		m.Ingest(game, model.Serve)
		m.Ingest(game, model.Receive)
	}

	for _, role := range model.Roles {
		for s := automaton.State(0); s < automaton.NumStates; s++ {
			row, ok := m.ProbabilityRow(role, s)
			total := 0
			for _, n := range m.Counts(role)[s] {
				total += n
			}
			if total == 0 {
				require.False(t, ok, "role %s state %d has no observations", role, s)
				require.Nil(t, row)
				continue
			}
			require.True(t, ok)
			require.Len(t, row, automaton.NumStates)
			sum := 0.0
			for _, p := range row {
				sum += p
			}
			require.InDelta(t, 1.0, sum, 1e-9, "role %s state %d", role, s)
		}
	}
}

func TestProbabilityRowIsCopy(t *testing.T) {
	m := New("Alice")
	m.Ingest("SSSS", model.Serve)

	row, ok := m.ProbabilityRow(model.Serve, 0)
	require.True(t, ok)
	require.Equal(t, 1.0, row[1])
	row[1] = 0

	again, _ := m.ProbabilityRow(model.Serve, 0)
	require.Equal(t, 1.0, again[1])
}

func TestRestoreRoundTrip(t *testing.T) {
	m := New("Alice")
	m.Ingest("SRSRSRSS", model.Serve)
	m.Ingest("RRSR", model.Receive)

	restored, err := Restore("Alice", m.Cells())
	require.NoError(t, err)
	require.Equal(t, m.Counts(model.Serve), restored.Counts(model.Serve))
	require.Equal(t, m.Counts(model.Receive), restored.Counts(model.Receive))

	want, _ := m.AggregateWinProbability(model.Receive)
	got, ok := restored.AggregateWinProbability(model.Receive)
	require.True(t, ok)
	require.Equal(t, want, got)

	_, err = Restore("Bob", []Cell{{Role: model.Serve, From: 0, To: 3, Count: 1}})
	require.Error(t, err, "0 -> 3 is not a scoring transition")
	_, err = Restore("Bob", []Cell{{Role: model.Serve, From: 0, To: 1, Count: -1}})
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	m := New("Alice")
	m.Ingest("SSSR", model.Serve)
	s := m.Summary()
	require.Equal(t, "Alice", s.Name)
	require.Equal(t, 4, s.ServePoints)
	require.InDelta(t, 75.0, s.ServeWinPct, 1e-9)
	require.Equal(t, -1.0, s.ReceiveWinPct)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	require.True(t, r.Add(New("Alice")))
	require.False(t, r.Add(New("Alice")), "duplicate add is rejected")

	bob := r.GetOrCreate("Bob")
	require.Same(t, bob, r.GetOrCreate("Bob"))
	require.Equal(t, []string{"Alice", "Bob"}, r.Names())
	require.Equal(t, 2, r.Len())

	_, err := r.Get("Carol")
	require.True(t, errors.Is(err, ErrPlayerNotFound))
	require.Contains(t, err.Error(), "Carol")
}

// Package aggregator feeds parsed matches into player models.
package aggregator

import (
	"github.com/pable/go-tennis-mc/internal/model"
	"github.com/pable/go-tennis-mc/internal/parser"
	"github.com/pable/go-tennis-mc/internal/player"
)

// Stats summarises one aggregation pass.
type Stats struct {
	Matches    int
	Games      int // chunks ingested as games
	Tiebreaks  int // one- and two-token chunks
	Empty      int // chunks left by doubled or trailing separators
	NewPlayers int
	Warnings   []player.UnknownTokenWarning
}

// Aggregate ingests every game of every match into reg, creating players on
// first sight. Chunk i is served by Player1 when i is even and by Player2
// when i is odd; the server's model learns it in the serve role and the
// opponent's in the receive role. Empty chunks keep their index but are not
// ingested.
func Aggregate(matches []model.HistoricalMatch, reg *player.Registry) Stats {
	var st Stats
	for _, m := range matches {
		before := reg.Len()
		p1 := reg.GetOrCreate(m.Player1)
		p2 := reg.GetOrCreate(m.Player2)
		st.NewPlayers += reg.Len() - before

		for i, chunk := range parser.SplitGames(m.PBP) {
			server, receiver := p1, p2
			if i%2 == 1 {
				server, receiver = p2, p1
			}
			switch {
			case chunk == "":
				st.Empty++
				continue
			case len(chunk) <= 2:
				st.Tiebreaks++
			default:
				st.Games++
			}
			st.Warnings = append(st.Warnings, server.Ingest(chunk, model.Serve)...)
			st.Warnings = append(st.Warnings, receiver.Ingest(chunk, model.Receive)...)
		}
		st.Matches++
	}
	return st
}

package player

import (
	"errors"
	"fmt"

	"github.com/pable/go-tennis-mc/internal/model"
)

// ErrPlayerNotFound is returned by Registry.Get for unknown names.
var ErrPlayerNotFound = errors.New("player not found")

// Warning reasons.
const (
	ReasonUnknownToken = "unknown token"
	ReasonPastTerminal = "token after game end"
)

// UnknownTokenWarning describes a pbp token that Ingest skipped. It is
// recoverable: the rest of the game is still ingested.
type UnknownTokenWarning struct {
	Player   string
	Role     model.Role
	Token    rune
	Position int
	Reason   string
}

func (w UnknownTokenWarning) Error() string {
	return fmt.Sprintf("player %s (%s): skipped %s %q at position %d", w.Player, w.Role, w.Reason, w.Token, w.Position)
}

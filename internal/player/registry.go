package player

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Registry is the set of player models built by ingestion, keyed by name.
type Registry struct {
	players map[string]*Model
	logger  zerolog.Logger
}

// NewRegistry returns an empty registry. Models it creates log through logger
// with a "player" field.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		players: make(map[string]*Model),
		logger:  logger,
	}
}

// Add stores m. It returns false, and leaves the registry unchanged, if a
// player with the same name already exists.
func (r *Registry) Add(m *Model) bool {
	if _, ok := r.players[m.Name()]; ok {
		r.logger.Warn().Str("player", m.Name()).Msg("attempted to add player more than once")
		return false
	}
	r.players[m.Name()] = m
	return true
}

// Get returns the named model or an error wrapping ErrPlayerNotFound.
func (r *Registry) Get(name string) (*Model, error) {
	m, ok := r.players[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}
	return m, nil
}

// GetOrCreate returns the named model, creating an empty one if needed.
func (r *Registry) GetOrCreate(name string) *Model {
	if m, ok := r.players[name]; ok {
		return m
	}
	m := New(name, WithLogger(r.logger.With().Str("player", name).Logger()))
	r.players[name] = m
	return m
}

// Names returns all player names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.players))
	for name := range r.players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of players.
func (r *Registry) Len() int { return len(r.players) }

// Models returns all models ordered by name.
func (r *Registry) Models() []*Model {
	out := make([]*Model, 0, len(r.players))
	for _, name := range r.Names() {
		out = append(out, r.players[name])
	}
	return out
}

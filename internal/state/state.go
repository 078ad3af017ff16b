package state

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/cardlang/cgml/internal/cgml"
)

// ErrFrozen is returned by every mutating method after the game has
// entered a terminal state.
var ErrFrozen = errors.New("game state is frozen")

// GameState is the canonical store for one running game. It is owned by
// the engine's single writer; nothing in this package synchronizes.
type GameState struct {
	Def     *cgml.GameDef
	Players []*Player

	zones map[string]*Zone
	cards map[string]*Card
	vars  map[string]*Variable

	// FSM position.
	State   string
	Phase   string
	Current int // current player seat, -1 before the first turn

	frozen bool
	result cgml.Value
}

// Frozen reports whether a terminal state has been entered.
func (s *GameState) Frozen() bool {
	return s.frozen
}

// Freeze seals the store and records the terminal result. Reads keep
// working; every further mutation fails with ErrFrozen.
func (s *GameState) Freeze(result cgml.Value) {
	s.frozen = true
	s.result = result
}

// Result returns the value computed by the terminal state's evaluator,
// or Null before the game ends.
func (s *GameState) Result() cgml.Value {
	if s.result == nil {
		return cgml.Null{}
	}
	return s.result
}

// Zone looks up a zone instance by its key (see ZoneID).
func (s *GameState) Zone(id string) (*Zone, bool) {
	z, ok := s.zones[id]
	return z, ok
}

// ZoneIDs returns every zone instance key in sorted order. Iteration over
// zones must be deterministic wherever it feeds the delta stream.
func (s *GameState) ZoneIDs() []string {
	ids := make([]string, 0, len(s.zones))
	for id := range s.zones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Card looks up a card instance by ID.
func (s *GameState) Card(id string) (*Card, bool) {
	c, ok := s.cards[id]
	return c, ok
}

// Variable looks up a declared variable by name.
func (s *GameState) Variable(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// CurrentPlayer returns the acting player, or nil before the first turn.
func (s *GameState) CurrentPlayer() *Player {
	if s.Current < 0 || s.Current >= len(s.Players) {
		return nil
	}
	return s.Players[s.Current]
}

// MoveCard detaches a card from its current zone and places it into the
// destination per the destination's ordering.
func (s *GameState) MoveCard(c *Card, to *Zone) error {
	if s.frozen {
		return ErrFrozen
	}
	from, ok := s.zones[c.location]
	if !ok {
		return fmt.Errorf("card %s has no zone (location %q)", c.ID, c.location)
	}
	if !from.remove(c) {
		return fmt.Errorf("card %s not held by zone %s", c.ID, from.ID())
	}
	to.put(c)
	return nil
}

// TakeTop removes the top card of a zone and places it into the
// destination. Returns the moved card.
func (s *GameState) TakeTop(from, to *Zone) (*Card, error) {
	if s.frozen {
		return nil, ErrFrozen
	}
	c, ok := from.takeTop()
	if !ok {
		return nil, fmt.Errorf("zone %s is empty", from.ID())
	}
	to.put(c)
	return c, nil
}

// Shuffle permutes a zone with the supplied deterministic source.
func (s *GameState) Shuffle(z *Zone, rng *rand.Rand) error {
	if s.frozen {
		return ErrFrozen
	}
	z.shuffle(rng)
	return nil
}

// SetVariable writes a variable for the owner seat (ignored for globals).
func (s *GameState) SetVariable(name string, owner int, val cgml.Value) error {
	if s.frozen {
		return ErrFrozen
	}
	v, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("variable %q not declared", name)
	}
	return v.set(owner, val)
}

// EnterState records the new top-level state and resets the phase.
func (s *GameState) EnterState(name string) error {
	if s.frozen {
		return ErrFrozen
	}
	s.State = name
	s.Phase = ""
	return nil
}

// SetPhase records the new phase within the current state.
func (s *GameState) SetPhase(name string) error {
	if s.frozen {
		return ErrFrozen
	}
	s.Phase = name
	return nil
}

// SetCurrent records the acting player seat.
func (s *GameState) SetCurrent(seat int) error {
	if s.frozen {
		return ErrFrozen
	}
	s.Current = seat
	return nil
}

// CheckCardInvariant audits the one-location invariant: every card sits in
// exactly one zone, and its recorded location matches that zone.
func (s *GameState) CheckCardInvariant() error {
	seen := make(map[string]string, len(s.cards))
	for _, id := range s.ZoneIDs() {
		z := s.zones[id]
		for _, c := range z.cards {
			if prev, dup := seen[c.ID]; dup {
				return fmt.Errorf("card %s held by both %s and %s", c.ID, prev, id)
			}
			seen[c.ID] = id
			if c.location != id {
				return fmt.Errorf("card %s in zone %s but located at %q", c.ID, id, c.location)
			}
		}
	}
	for id := range s.cards {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("card %s is in no zone", id)
		}
	}
	return nil
}

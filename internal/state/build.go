package state

import (
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
)

// NewGame constructs the initial store for a compiled definition: one zone
// instance per declaration (fanned out per seat for per_player zones),
// decks expanded into their of_deck zones, variables at their initial
// values. The FSM position starts unset; the driver enters the initial
// state on its first tick.
func NewGame(def *cgml.GameDef, playerCount int) (*GameState, error) {
	if playerCount < def.Meta.Players.Min || playerCount > def.Meta.Players.Max {
		return nil, fmt.Errorf("player count %d outside supported range %d..%d",
			playerCount, def.Meta.Players.Min, def.Meta.Players.Max)
	}

	s := &GameState{
		Def:     def,
		Players: newPlayers(playerCount),
		zones:   make(map[string]*Zone),
		cards:   make(map[string]*Card),
		vars:    make(map[string]*Variable),
		Current: -1,
	}

	for _, zd := range def.Components.Zones {
		if zd.PerPlayer {
			for seat := 0; seat < playerCount; seat++ {
				s.addZone(zd, seat)
			}
		} else {
			s.addZone(zd, -1)
		}
	}

	for _, deck := range def.Components.Decks {
		deckType, ok := def.Components.DeckTypes[deck.Type]
		if !ok {
			return nil, fmt.Errorf("deck %q uses undeclared type %q", deck.Name, deck.Type)
		}
		home, err := s.deckHome(deck.Name)
		if err != nil {
			return nil, err
		}
		for _, c := range buildDeck(deck, deckType) {
			if _, dup := s.cards[c.ID]; dup {
				return nil, fmt.Errorf("duplicate card id %q", c.ID)
			}
			s.cards[c.ID] = c
			home.put(c)
		}
	}

	for _, vd := range def.Components.Variables {
		s.vars[vd.Name] = newVariable(vd, playerCount)
	}

	return s, nil
}

func (s *GameState) addZone(zd cgml.ZoneDef, owner int) {
	z := &Zone{
		Name:       zd.Name,
		Owner:      owner,
		Ordering:   zd.Ordering,
		Visibility: zd.Visibility,
	}
	s.zones[z.ID()] = z
}

// deckHome finds the shared zone declared with of_deck naming the deck.
func (s *GameState) deckHome(deckName string) (*Zone, error) {
	for _, zd := range s.Def.Components.Zones {
		if zd.OfDeck != deckName {
			continue
		}
		if zd.PerPlayer {
			return nil, fmt.Errorf("zone %q holds deck %q but is per_player", zd.Name, deckName)
		}
		z, ok := s.zones[ZoneID(zd.Name, -1)]
		if !ok {
			return nil, fmt.Errorf("zone %q not instantiated", zd.Name)
		}
		return z, nil
	}
	return nil, fmt.Errorf("no zone declares of_deck %q", deckName)
}

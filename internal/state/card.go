package state

import (
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
)

// Card is one card instance. Template attributes (rank, suit, ...) are
// immutable after creation; only the location changes, and only through
// zone mutation on the owning GameState.
type Card struct {
	ID    string
	Name  string
	Deck  string
	Props cgml.Map

	// location is the ID of the zone currently holding the card.
	// Maintained exclusively by Zone.put / Zone.take.
	location string
}

// Location returns the ID of the zone holding the card.
func (c *Card) Location() string {
	return c.location
}

// Prop returns a template attribute (e.g. "rank", "suit").
func (c *Card) Prop(name string) (cgml.Value, bool) {
	v, ok := c.Props[name]
	return v, ok
}

// View renders the card as a value for event payloads and expressions.
func (c *Card) View() cgml.Map {
	view := cgml.Map{
		"id":   cgml.String(c.ID),
		"name": cgml.String(c.Name),
		"zone": cgml.String(c.location),
	}
	for k, v := range c.Props {
		view[k] = v
	}
	return view
}

// standardSuits is the suit set expanded by the standard_suits composition
// template when the document does not declare its own.
var standardSuits = []string{"spades", "hearts", "diamonds", "clubs"}

// buildDeck expands a deck definition into card instances.
// Card IDs are deterministic: deck name, suit, rank, and running index.
func buildDeck(deck cgml.DeckDef, deckType cgml.DeckTypeDef) []*Card {
	var cards []*Card
	idx := 0

	for _, comp := range deckType.Composition {
		suits := comp.Suits
		if len(suits) == 0 {
			suits = standardSuits
		}
		copies := comp.Copies
		if copies < 1 {
			copies = 1
		}
		for copyN := 0; copyN < copies; copyN++ {
			for _, suit := range suits {
				for _, rank := range comp.Values {
					idx++
					cards = append(cards, &Card{
						ID:   fmt.Sprintf("%s-%s-%s-%d", deck.Name, suit, rank, idx),
						Name: rank + " of " + suit,
						Deck: deck.Name,
						Props: cgml.Map{
							"rank": cgml.String(rank),
							"suit": cgml.String(suit),
						},
					})
				}
			}
		}
	}

	return cards
}

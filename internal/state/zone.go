package state

import (
	"fmt"
	"math/rand"

	"github.com/cardlang/cgml/internal/cgml"
)

// Zone is one card container instance. A per_player declaration produces
// one Zone per seat; shared declarations produce a single instance.
//
// cards is ordered bottom to top: index 0 is the bottom of the pile, the
// last element is the top. Take always removes from the top; Put places
// according to the declared ordering.
type Zone struct {
	Name       string
	Owner      int // seat index, or -1 for a shared zone
	Ordering   cgml.Ordering
	Visibility string

	cards []*Card
}

// ZoneID builds the instance key for a zone name and owner seat.
func ZoneID(name string, owner int) string {
	if owner < 0 {
		return name
	}
	return fmt.Sprintf("%s:%d", name, owner)
}

// ID returns the zone's instance key.
func (z *Zone) ID() string {
	return ZoneID(z.Name, z.Owner)
}

// Count returns the number of cards in the zone.
func (z *Zone) Count() int {
	return len(z.cards)
}

// Top returns the top card without removing it.
func (z *Zone) Top() (*Card, bool) {
	if len(z.cards) == 0 {
		return nil, false
	}
	return z.cards[len(z.cards)-1], true
}

// Cards returns the zone's cards bottom to top. The slice is a copy;
// mutating it does not affect the zone.
func (z *Zone) Cards() []*Card {
	out := make([]*Card, len(z.cards))
	copy(out, z.cards)
	return out
}

// put places a card per the zone's ordering and claims its location.
// lifo places on top, fifo underneath, unordered on top (shuffles decide
// the real order there).
func (z *Zone) put(c *Card) {
	switch z.Ordering {
	case cgml.OrderingFIFO:
		z.cards = append([]*Card{c}, z.cards...)
	default:
		z.cards = append(z.cards, c)
	}
	c.location = z.ID()
}

// takeTop removes and returns the top card.
func (z *Zone) takeTop() (*Card, bool) {
	if len(z.cards) == 0 {
		return nil, false
	}
	c := z.cards[len(z.cards)-1]
	z.cards = z.cards[:len(z.cards)-1]
	return c, true
}

// remove detaches a specific card wherever it sits in the zone.
func (z *Zone) remove(c *Card) bool {
	for i, held := range z.cards {
		if held == c {
			z.cards = append(z.cards[:i], z.cards[i+1:]...)
			return true
		}
	}
	return false
}

// shuffle permutes the zone in place with the supplied source. The engine
// owns the source and its seed, so identical seeds replay identically.
func (z *Zone) shuffle(rng *rand.Rand) {
	rng.Shuffle(len(z.cards), func(i, j int) {
		z.cards[i], z.cards[j] = z.cards[j], z.cards[i]
	})
}

package state

import "fmt"

// Player is one seat at the table. Index is the seat number used by turn
// rotation; ID is the stable name used in paths and event payloads.
type Player struct {
	Index int
	ID    string
}

func newPlayers(count int) []*Player {
	players := make([]*Player, count)
	for i := range players {
		players[i] = &Player{Index: i, ID: fmt.Sprintf("p%d", i+1)}
	}
	return players
}

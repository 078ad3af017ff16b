package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlang/cgml/internal/cgml"
)

func TestResolvePlayerPaths(t *testing.T) {
	c := evalCtx(t, 1)

	v, err := resolvePath(c, "player.current.id")
	require.NoError(t, err)
	assert.Equal(t, cgml.String("p2"), v)

	v, err = resolvePath(c, "player.0.id")
	require.NoError(t, err)
	assert.Equal(t, cgml.String("p1"), v)

	v, err = resolvePath(c, "player.current.score")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(0), v)

	v, err = resolvePath(c, "player.current.hand.card_count")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(0), v)

	// The older "zones" segment spelling still resolves.
	v, err = resolvePath(c, "player.1.zones.hand.card_count")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(0), v)
}

func TestResolvePlayersMapping(t *testing.T) {
	c := evalCtx(t, 0)

	v, err := resolvePath(c, "players.score")
	require.NoError(t, err)
	assert.Equal(t, cgml.List{cgml.Int(0), cgml.Int(0)}, v)

	v, err = resolvePath(c, "players.hand.card_count")
	require.NoError(t, err)
	assert.Equal(t, cgml.List{cgml.Int(0), cgml.Int(0)}, v)
}

func TestResolveZonePaths(t *testing.T) {
	c := evalCtx(t, 0)

	v, err := resolvePath(c, "zones.deck.card_count")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(16), v)

	// "game." and "zone." are aliases.
	v, err = resolvePath(c, "game.deck.card_count")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(16), v)

	v, err = resolvePath(c, "zone.deck.top_card.rank")
	require.NoError(t, err)
	assert.Contains(t, []cgml.Value{
		cgml.String("3"), cgml.String("5"), cgml.String("7"), cgml.String("K"),
	}, v)
}

func TestResolveEmptyZoneTopCard(t *testing.T) {
	c := evalCtx(t, 0)

	_, err := resolvePath(c, "zones.discard.top_card")
	assert.True(t, IsPathUnresolved(err))
}

func TestResolveUnknownZone(t *testing.T) {
	c := evalCtx(t, 0)

	_, err := resolvePath(c, "zones.banished.card_count")
	assert.True(t, IsPathUnresolved(err))
}

func TestResolvePlayedCard(t *testing.T) {
	c := evalCtx(t, 0)
	c.event.Payload = cgml.Map{
		"card": cgml.Map{"id": cgml.String("x-1"), "rank": cgml.String("7")},
	}

	v, err := resolvePath(c, "card.played.rank")
	require.NoError(t, err)
	assert.Equal(t, cgml.String("7"), v)

	c.event.Payload = cgml.Map{}
	_, err = resolvePath(c, "card.played")
	assert.True(t, IsPathUnresolved(err))
}

func TestResolveEventPayload(t *testing.T) {
	c := evalCtx(t, 0)
	c.event.Payload = cgml.Map{"amount": cgml.Int(3)}

	v, err := resolvePath(c, "event.amount")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(3), v)

	_, err = resolvePath(c, "event.missing")
	assert.True(t, IsPathUnresolved(err))
}

func TestResolveBareVariable(t *testing.T) {
	c := evalCtx(t, 0)

	v, err := resolvePath(c, "round")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(2), v)

	// Scoped variable resolves against the actor.
	v, err = resolvePath(c, "score")
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(0), v)

	// Without an actor a scoped read has no owner.
	c.event.Actor = -1
	_, err = resolvePath(c, "score")
	assert.True(t, IsPathUnresolved(err))
}

func TestResolveCurrentWithoutActor(t *testing.T) {
	c := evalCtx(t, -1)

	_, err := resolvePath(c, "player.current.id")
	assert.True(t, IsPathUnresolved(err))
}

func TestResolveRefBindings(t *testing.T) {
	c := evalCtx(t, 0)
	c.scope.store("picked", cgml.Int(1))

	v, err := evalExpr(c, &cgml.RefExpr{Name: "picked"})
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(1), v)

	_, err = evalExpr(c, &cgml.RefExpr{Name: "never_stored"})
	assert.True(t, IsUnboundRef(err))
}

func TestResolveZoneSelectorForms(t *testing.T) {
	c := evalCtx(t, 1)

	z, err := resolveZoneSelector(c, "zones.deck")
	require.NoError(t, err)
	assert.Equal(t, "deck", z.ID())

	z, err = resolveZoneSelector(c, "deck")
	require.NoError(t, err)
	assert.Equal(t, "deck", z.ID())

	z, err = resolveZoneSelector(c, "player.current.hand")
	require.NoError(t, err)
	assert.Equal(t, "hand:1", z.ID())

	z, err = resolveZoneSelector(c, "hand")
	require.NoError(t, err)
	assert.Equal(t, "hand:1", z.ID(), "bare per-player name follows the actor")

	c.scope.store("selected_player", cgml.String("p1"))
	z, err = resolveZoneSelector(c, "ref:selected_player.hand")
	require.NoError(t, err)
	assert.Equal(t, "hand:0", z.ID())

	_, err = resolveZoneSelector(c, "ref:nobody.hand")
	assert.True(t, IsUnboundRef(err))
}

func TestResolveSeatSelector(t *testing.T) {
	c := evalCtx(t, 1)

	seat, err := resolveSeatSelector(c, "player.current")
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	seat, err = resolveSeatSelector(c, "player.0")
	require.NoError(t, err)
	assert.Equal(t, 0, seat)

	c.scope.store("chosen", cgml.Int(0))
	seat, err = resolveSeatSelector(c, "ref:chosen")
	require.NoError(t, err)
	assert.Equal(t, 0, seat)
}

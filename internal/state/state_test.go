package state

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlang/cgml/internal/cgml"
)

func testDef() *cgml.GameDef {
	return &cgml.GameDef{
		Meta: cgml.MetaDef{
			Name:    "test-game",
			Players: cgml.PlayerRange{Min: 2, Max: 4},
		},
		Components: cgml.ComponentsDef{
			DeckTypes: map[string]cgml.DeckTypeDef{
				"french": {
					Name:          "french",
					RankHierarchy: []string{"2", "3"},
					Composition: []cgml.CompositionDef{
						{Template: "standard_suits", Values: []string{"2", "3"}},
					},
				},
			},
			Decks: []cgml.DeckDef{{Name: "main", Type: "french"}},
			Zones: []cgml.ZoneDef{
				{Name: "deck", OfDeck: "main", Ordering: cgml.OrderingLIFO},
				{Name: "discard", Ordering: cgml.OrderingLIFO},
				{Name: "queue", Ordering: cgml.OrderingFIFO},
				{Name: "hand", PerPlayer: true, Ordering: cgml.OrderingUnordered},
			},
			Variables: []cgml.VariableDef{
				{Name: "round", Scope: cgml.ScopeGlobal, Initial: cgml.Int(1)},
				{Name: "score", Scope: cgml.ScopePerPlayer, Initial: cgml.Int(0)},
				{Name: "lead", Scope: cgml.ScopeGlobal, Computed: &cgml.OpExpr{
					Op:   "max",
					Args: []cgml.Expr{&cgml.PathExpr{Raw: "players.score"}},
				}},
			},
		},
	}
}

func newTestGame(t *testing.T, players int) *GameState {
	t.Helper()
	s, err := NewGame(testDef(), players)
	require.NoError(t, err)
	return s
}

func TestNewGame(t *testing.T) {
	s := newTestGame(t, 2)

	deck, ok := s.Zone("deck")
	require.True(t, ok)
	assert.Equal(t, 8, deck.Count(), "2 ranks x 4 suits")

	_, ok = s.Zone("hand:0")
	assert.True(t, ok)
	_, ok = s.Zone("hand:1")
	assert.True(t, ok)
	_, ok = s.Zone("hand:2")
	assert.False(t, ok, "only declared seats get a hand")

	assert.Equal(t, -1, s.Current)
	assert.NoError(t, s.CheckCardInvariant())
}

func TestNewGamePlayerRange(t *testing.T) {
	_, err := NewGame(testDef(), 1)
	assert.Error(t, err)
	_, err = NewGame(testDef(), 5)
	assert.Error(t, err)
}

func TestDeckBuildDeterministic(t *testing.T) {
	a := newTestGame(t, 2)
	b := newTestGame(t, 2)

	za, _ := a.Zone("deck")
	zb, _ := b.Zone("deck")
	ca, cb := za.Cards(), zb.Cards()
	require.Equal(t, len(ca), len(cb))
	for i := range ca {
		assert.Equal(t, ca[i].ID, cb[i].ID)
	}
}

func TestLIFOTakesLastPut(t *testing.T) {
	s := newTestGame(t, 2)
	deck, _ := s.Zone("deck")
	discard, _ := s.Zone("discard")

	first, err := s.TakeTop(deck, discard)
	require.NoError(t, err)
	second, err := s.TakeTop(deck, discard)
	require.NoError(t, err)

	top, ok := discard.Top()
	require.True(t, ok)
	assert.Equal(t, second.ID, top.ID)
	assert.Equal(t, "discard", first.Location())
	assert.NoError(t, s.CheckCardInvariant())
}

func TestFIFOTakesFirstPut(t *testing.T) {
	s := newTestGame(t, 2)
	deck, _ := s.Zone("deck")
	queue, _ := s.Zone("queue")

	first, err := s.TakeTop(deck, queue)
	require.NoError(t, err)
	_, err = s.TakeTop(deck, queue)
	require.NoError(t, err)

	top, ok := queue.Top()
	require.True(t, ok)
	assert.Equal(t, first.ID, top.ID, "earliest arrival leaves first")
}

func TestTakeTopEmptyZone(t *testing.T) {
	s := newTestGame(t, 2)
	discard, _ := s.Zone("discard")
	queue, _ := s.Zone("queue")

	_, err := s.TakeTop(discard, queue)
	assert.Error(t, err)
}

func TestMoveCardMaintainsLocation(t *testing.T) {
	s := newTestGame(t, 2)
	deck, _ := s.Zone("deck")
	hand, _ := s.Zone("hand:0")

	top, ok := deck.Top()
	require.True(t, ok)
	require.NoError(t, s.MoveCard(top, hand))

	assert.Equal(t, "hand:0", top.Location())
	assert.Equal(t, 7, deck.Count())
	assert.Equal(t, 1, hand.Count())
	assert.NoError(t, s.CheckCardInvariant())
}

func TestShuffleDeterministic(t *testing.T) {
	a := newTestGame(t, 2)
	b := newTestGame(t, 2)
	za, _ := a.Zone("deck")
	zb, _ := b.Zone("deck")

	require.NoError(t, a.Shuffle(za, rand.New(rand.NewSource(42))))
	require.NoError(t, b.Shuffle(zb, rand.New(rand.NewSource(42))))

	ca, cb := za.Cards(), zb.Cards()
	for i := range ca {
		assert.Equal(t, ca[i].ID, cb[i].ID)
	}
	assert.NoError(t, a.CheckCardInvariant())
}

func TestVariables(t *testing.T) {
	s := newTestGame(t, 2)

	round, ok := s.Variable("round")
	require.True(t, ok)
	v, err := round.Get(-1)
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(1), v)

	score, ok := s.Variable("score")
	require.True(t, ok)
	_, err = score.Get(-1)
	var unowned *UnownedVariableError
	assert.ErrorAs(t, err, &unowned)

	require.NoError(t, s.SetVariable("score", 1, cgml.Int(5)))
	v, err = score.Get(1)
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(5), v)
	v, err = score.Get(0)
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(0), v, "other seats keep the initial value")
}

func TestComputedVariableIsReadOnly(t *testing.T) {
	s := newTestGame(t, 2)

	lead, ok := s.Variable("lead")
	require.True(t, ok)
	assert.True(t, lead.Computed())

	var readonly *ReadOnlyVariableError
	_, err := lead.Get(-1)
	assert.ErrorAs(t, err, &readonly, "reads go through the expression, not storage")
	err = s.SetVariable("lead", -1, cgml.Int(9))
	assert.ErrorAs(t, err, &readonly)
}

func TestFreeze(t *testing.T) {
	s := newTestGame(t, 2)
	deck, _ := s.Zone("deck")
	discard, _ := s.Zone("discard")

	s.Freeze(cgml.String("p1"))

	_, err := s.TakeTop(deck, discard)
	assert.ErrorIs(t, err, ErrFrozen)
	assert.ErrorIs(t, s.SetVariable("round", -1, cgml.Int(2)), ErrFrozen)
	assert.ErrorIs(t, s.EnterState("playing"), ErrFrozen)
	assert.ErrorIs(t, s.SetPhase("draw"), ErrFrozen)
	assert.ErrorIs(t, s.SetCurrent(0), ErrFrozen)

	assert.Equal(t, 8, deck.Count(), "reads survive the freeze")
	assert.Equal(t, cgml.String("p1"), s.Result())
}

func TestCheckCardInvariantDetectsCorruption(t *testing.T) {
	s := newTestGame(t, 2)
	deck, _ := s.Zone("deck")

	top, ok := deck.Top()
	require.True(t, ok)
	top.location = "discard"
	assert.Error(t, s.CheckCardInvariant())
}

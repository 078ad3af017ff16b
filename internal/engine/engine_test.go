package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/state"
)

// collector records the delta stream for assertions.
type collector struct {
	deltas []Delta
}

func (c *collector) OnDelta(d Delta) {
	c.deltas = append(c.deltas, d)
}

func (c *collector) ofKind(kind DeltaKind) []Delta {
	var out []Delta
	for _, d := range c.deltas {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// scriptedInput answers input requests from a fixed script and cancels
// once the script runs out.
type scriptedInput struct {
	answers []cgml.Value
	idx     int
}

func (s *scriptedInput) RequestInput(_ context.Context, _ InputRequest) (cgml.Value, error) {
	if s.idx >= len(s.answers) {
		return nil, ErrInputCancelled
	}
	v := s.answers[s.idx]
	s.idx++
	return v, nil
}

func moveDef(action, from, to string, count cgml.Expr) cgml.ActionDef {
	return cgml.ActionDef{Action: action, From: from, To: to, Count: count}
}

// exhaustionDef declares a single Playing -> GameOver transition firing
// when the deck runs out; each draw phase moves two cards off the deck.
func exhaustionDef() *cgml.GameDef {
	return &cgml.GameDef{
		Meta: cgml.MetaDef{Name: "exhaustion", Players: cgml.PlayerRange{Min: 2, Max: 2}},
		Components: cgml.ComponentsDef{
			DeckTypes: map[string]cgml.DeckTypeDef{
				"ranked": {
					Name:          "ranked",
					RankHierarchy: []string{"2", "3"},
					Composition: []cgml.CompositionDef{
						{Template: "standard_suits", Values: []string{"2", "3"}},
					},
				},
			},
			Decks: []cgml.DeckDef{{Name: "main", Type: "ranked"}},
			Zones: []cgml.ZoneDef{
				{Name: "deck", OfDeck: "main", Ordering: cgml.OrderingLIFO},
				{Name: "discard", Ordering: cgml.OrderingLIFO},
			},
		},
		Flow: cgml.FlowDef{
			InitialState: "Playing",
			PlayerOrder:  cgml.OrderClockwise,
			States: []cgml.StateDef{
				{
					Name:          "Playing",
					TurnStructure: []string{"draw"},
					Transitions: []cgml.TransitionDef{
						{To: "GameOver", When: op("isEqual",
							path("game.deck.card_count"), lit(cgml.Int(0)))},
					},
				},
				{
					Name:      "GameOver",
					Terminal:  true,
					Evaluator: lit(cgml.String("done")),
				},
			},
		},
		Rules: []cgml.RuleDef{
			{
				ID:      "draw_two",
				Trigger: "on.phase.draw",
				Effect: []cgml.ActionDef{
					moveDef(cgml.ActionMove, "zones.deck", "zones.discard", lit(cgml.Int(2))),
				},
			},
		},
	}
}

func TestDeckExhaustionTransition(t *testing.T) {
	obs := &collector{}
	e, err := New(exhaustionDef(), 2,
		WithObserver(obs),
		WithToken(NewFixedGenerator("game-1")),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	for i := 0; i < 10 && !e.Done(); i++ {
		require.NoError(t, e.Tick(ctx))
	}

	assert.True(t, e.Done())
	assert.Equal(t, "GameOver", e.State().State)
	assert.Equal(t, cgml.String("done"), e.Result())
	assert.NoError(t, e.State().CheckCardInvariant())

	results := obs.ofKind(DeltaResult)
	require.Len(t, results, 1, "evaluator computed exactly once")
	assert.Equal(t, cgml.String("done"), results[0].Payload["result"])

	// No phase advancement after terminal entry.
	var resultSeq int64 = results[0].Seq
	for _, d := range obs.ofKind(DeltaFSM) {
		assert.Less(t, d.Seq, resultSeq)
	}

	// Further ticks are inert.
	before := len(obs.deltas)
	require.NoError(t, e.Tick(ctx))
	assert.Equal(t, before, len(obs.deltas))
}

// lobbyDef starts in a state with no turn structure whose only
// transition is already true once setup finishes.
func lobbyDef() *cgml.GameDef {
	def := exhaustionDef()
	def.Meta.Name = "lobby"
	def.Flow.InitialState = "Lobby"
	def.Flow.States = append([]cgml.StateDef{{
		Name: "Lobby",
		Transitions: []cgml.TransitionDef{
			{To: "GameOver", When: op("isEqual",
				path("game.deck.card_count"), lit(cgml.Int(8)))},
		},
	}}, def.Flow.States...)
	return def
}

func TestStartFiresInitiallyTrueTransition(t *testing.T) {
	e, err := New(lobbyDef(), 2)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	assert.True(t, e.Done())
	assert.Equal(t, "GameOver", e.State().State)
	assert.Equal(t, cgml.String("done"), e.Result())
}

// playDef declares the play_card_limit rule: a card played under the
// discard top rank is rejected and returned to the player's hand.
func playDef() *cgml.GameDef {
	return &cgml.GameDef{
		Meta: cgml.MetaDef{Name: "play-limit", Players: cgml.PlayerRange{Min: 2, Max: 2}},
		Components: cgml.ComponentsDef{
			DeckTypes: map[string]cgml.DeckTypeDef{
				"ranked": {
					Name:          "ranked",
					RankHierarchy: []string{"3", "5", "7"},
					Composition: []cgml.CompositionDef{
						{Template: "standard_suits", Values: []string{"3", "5", "7"}},
					},
				},
			},
			Decks: []cgml.DeckDef{{Name: "main", Type: "ranked"}},
			Zones: []cgml.ZoneDef{
				{Name: "deck", OfDeck: "main", Ordering: cgml.OrderingLIFO},
				{Name: "discard", Ordering: cgml.OrderingLIFO},
				{Name: "play_area", Ordering: cgml.OrderingLIFO},
				{Name: "hand", PerPlayer: true, Ordering: cgml.OrderingUnordered},
			},
		},
		Flow: cgml.FlowDef{
			InitialState: "Playing",
			PlayerOrder:  cgml.OrderClockwise,
			States:       []cgml.StateDef{{Name: "Playing"}},
		},
		Rules: []cgml.RuleDef{
			{
				ID:      "play_card_limit",
				Trigger: "on.play",
				Condition: op("isLessThan",
					path("card.played.rank"),
					path("zones.discard.top_card.rank")),
				Effect: []cgml.ActionDef{
					{Action: cgml.ActionRejectPlay},
					{Action: cgml.ActionReturnToHand},
				},
			},
		},
	}
}

// cardWithRank pulls a card of the wanted rank out of a zone.
func cardWithRank(t *testing.T, z *state.Zone, rank string) *state.Card {
	t.Helper()
	for _, c := range z.Cards() {
		if v, _ := c.Prop("rank"); v == cgml.String(rank) {
			return c
		}
	}
	t.Fatalf("no card of rank %s in %s", rank, z.ID())
	return nil
}

func TestPlayCardLimit(t *testing.T) {
	obs := &collector{}
	e, err := New(playDef(), 2, WithObserver(obs))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	s := e.State()
	deck, _ := s.Zone("deck")
	discard, _ := s.Zone("discard")
	playArea, _ := s.Zone("play_area")

	// Discard shows a 5; the played 3 sits in the play area.
	require.NoError(t, s.MoveCard(cardWithRank(t, deck, "5"), discard))
	low := cardWithRank(t, deck, "3")
	require.NoError(t, s.MoveCard(low, playArea))

	e.Post("on.play", 0, cgml.Map{"card": low.View()})
	require.NoError(t, e.Tick(ctx))

	assert.Equal(t, "hand:0", low.Location(), "3 under a 5 comes back to hand")
	rejected := false
	for _, d := range obs.ofKind(DeltaEvent) {
		if d.Payload["name"] == cgml.String("on.play.rejected") {
			rejected = true
		}
	}
	assert.True(t, rejected)
	assert.NoError(t, s.CheckCardInvariant())
}

func TestPlayCardLimitDoesNotFireAboveTop(t *testing.T) {
	e, err := New(playDef(), 2)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	s := e.State()
	deck, _ := s.Zone("deck")
	discard, _ := s.Zone("discard")
	playArea, _ := s.Zone("play_area")

	require.NoError(t, s.MoveCard(cardWithRank(t, deck, "5"), discard))
	high := cardWithRank(t, deck, "7")
	require.NoError(t, s.MoveCard(high, playArea))

	e.Post("on.play", 0, cgml.Map{"card": high.View()})
	require.NoError(t, e.Tick(ctx))

	assert.Equal(t, "play_area", high.Location(), "7 over a 5 stands")
}

// stealDef requests a player choice, then moves a card out of the chosen
// player's hand. The MOVE depends on the stored binding.
func stealDef() *cgml.GameDef {
	def := playDef()
	def.Meta.Name = "steal"
	def.Rules = []cgml.RuleDef{
		{
			ID:      "steal",
			Trigger: "action.steal",
			Effect: []cgml.ActionDef{
				{
					Action:  cgml.ActionRequestInput,
					Player:  "player.current",
					Prompt:  "choose a player to steal from",
					StoreAs: "selected_player",
				},
				moveDef(cgml.ActionMove, "ref:selected_player.hand", "player.current.hand", lit(cgml.Int(1))),
			},
		},
	}
	return def
}

func TestCancelledInputAbandonsEffect(t *testing.T) {
	obs := &collector{}
	e, err := New(stealDef(), 2, WithObserver(obs))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	s := e.State()
	deck, _ := s.Zone("deck")
	victim, _ := s.Zone("hand:1")
	require.NoError(t, s.MoveCard(cardWithRank(t, deck, "7"), victim))

	e.Post("action.steal", 0, nil)
	require.NoError(t, e.Tick(ctx))

	// The default provider cancels: the MOVE never ran, the failure is a
	// warning on the stream, not a crash.
	assert.Equal(t, 1, victim.Count())
	warnings := obs.ofKind(DeltaWarning)
	require.NotEmpty(t, warnings)
	assert.Equal(t, cgml.String(string(ErrCodeInputCancelled)), warnings[0].Payload["code"])
	assert.NoError(t, s.CheckCardInvariant())
}

func TestSuppliedInputFeedsDependentMove(t *testing.T) {
	obs := &collector{}
	e, err := New(stealDef(), 2,
		WithObserver(obs),
		WithInput(&scriptedInput{answers: []cgml.Value{cgml.Int(1)}}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	s := e.State()
	deck, _ := s.Zone("deck")
	victim, _ := s.Zone("hand:1")
	thief, _ := s.Zone("hand:0")
	require.NoError(t, s.MoveCard(cardWithRank(t, deck, "7"), victim))

	e.Post("action.steal", 0, nil)
	require.NoError(t, e.Tick(ctx))

	assert.Equal(t, 0, victim.Count())
	assert.Equal(t, 1, thief.Count())
	require.Len(t, obs.ofKind(DeltaInput), 1)
	assert.NoError(t, s.CheckCardInvariant())
}

// shuffleDealDef exercises seeded SHUFFLE and DEAL in setup.
func shuffleDealDef() *cgml.GameDef {
	def := playDef()
	def.Meta.Name = "shuffle-deal"
	def.Setup = []cgml.ActionDef{
		{Action: cgml.ActionShuffle, Target: "zones.deck"},
		moveDef(cgml.ActionDeal, "zones.deck", "zones.hand", lit(cgml.Int(3))),
	}
	def.Rules = nil
	return def
}

func TestDealRoundRobin(t *testing.T) {
	e, err := New(shuffleDealDef(), 2, WithSeed(7))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	s := e.State()
	deck, _ := s.Zone("deck")
	h0, _ := s.Zone("hand:0")
	h1, _ := s.Zone("hand:1")

	assert.Equal(t, 3, h0.Count())
	assert.Equal(t, 3, h1.Count())
	assert.Equal(t, 6, deck.Count())
	assert.NoError(t, s.CheckCardInvariant())
}

// filterDealDef deals only sevens. Three rounds for two seats would need
// six cards; the deck holds four sevens, so the deal stops early.
func filterDealDef() *cgml.GameDef {
	def := playDef()
	def.Meta.Name = "filter-deal"
	def.Setup = []cgml.ActionDef{
		{
			Action: cgml.ActionDeal,
			From:   "zones.deck",
			To:     "zones.hand",
			Count:  lit(cgml.Int(3)),
			Filter: op("isEqual", path("each.rank"), lit(cgml.String("7"))),
		},
	}
	def.Rules = nil
	return def
}

func TestDealFilterRestrictsCards(t *testing.T) {
	e, err := New(filterDealDef(), 2)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	s := e.State()
	deck, _ := s.Zone("deck")
	h0, _ := s.Zone("hand:0")
	h1, _ := s.Zone("hand:1")

	assert.Equal(t, 2, h0.Count())
	assert.Equal(t, 2, h1.Count())
	assert.Equal(t, 8, deck.Count())
	for _, z := range []*state.Zone{h0, h1} {
		for _, c := range z.Cards() {
			rank, _ := c.Prop("rank")
			assert.Equal(t, cgml.String("7"), rank)
		}
	}
	assert.NoError(t, s.CheckCardInvariant())
}

func TestIdenticalRunsProduceIdenticalStreams(t *testing.T) {
	run := func() []string {
		obs := &collector{}
		e, err := New(shuffleDealDef(), 2,
			WithSeed(99),
			WithObserver(obs),
			WithToken(NewFixedGenerator("fixed")),
		)
		require.NoError(t, err)
		require.NoError(t, e.Start(context.Background()))

		hashes := make([]string, len(obs.deltas))
		for i, d := range obs.deltas {
			h, err := d.Hash()
			require.NoError(t, err)
			hashes[i] = h
		}
		return hashes
	}

	assert.Equal(t, run(), run())
}

func TestRuleFailureDoesNotStopDispatch(t *testing.T) {
	def := playDef()
	def.Rules = []cgml.RuleDef{
		{
			ID:      "broken",
			Trigger: "poke",
			Effect: []cgml.ActionDef{
				moveDef(cgml.ActionMove, "zones.nowhere", "zones.discard", nil),
			},
		},
		{
			ID:      "working",
			Trigger: "poke",
			Effect: []cgml.ActionDef{
				moveDef(cgml.ActionMove, "zones.deck", "zones.discard", lit(cgml.Int(1))),
			},
		},
	}

	obs := &collector{}
	e, err := New(def, 2, WithObserver(obs))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	e.Post("poke", 0, nil)
	require.NoError(t, e.Tick(ctx))

	discard, _ := e.State().Zone("discard")
	assert.Equal(t, 1, discard.Count(), "second rule still ran")
	warnings := obs.ofKind(DeltaWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, cgml.String("broken"), warnings[0].Payload["rule"])
}

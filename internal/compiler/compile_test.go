package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cardlang/cgml/internal/cgml"
)

func compileYAML(t *testing.T, src string) (*cgml.GameDef, error) {
	t.Helper()
	var tree map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(src), &tree))
	return Compile(tree)
}

const warDoc = `
cgml_version: "1.0"
meta:
  name: War
  players: {min: 2, max: 2}
components:
  component_types:
    deck_types:
      standard:
        rank_hierarchy: ["2","3","4","5","6","7","8","9","10","J","Q","K","A"]
        composition:
          - template: standard_suits
            values: ["2","3","4","5","6","7","8","9","10","J","Q","K","A"]
  decks:
    main_deck: {type: standard}
  zones:
    - {name: deck, type: pile, of_deck: main_deck, ordering: fifo}
    - {name: hand, type: pile, per_player: true}
    - {name: play_area, type: pile, per_player: true}
  variables:
    - {name: score, scope: per_player, initial: 0}
    - name: cards_left
      scope: global
      computed: {count: [{path: zones.deck.cards}]}
setup:
  - {action: SHUFFLE, target: zones.deck}
  - {action: DEAL_ALL, from_deck: main_deck, to: zones.hand}
flow:
  initial_state: Playing
  player_order: clockwise
  states:
    - name: Playing
      turn_structure: [reveal, resolve]
      transitions:
        - to: GameOver
          when: {isEqual: [{path: player.current.zones.hand.card_count}, {value: 0}]}
    - name: GameOver
      terminal: true
      evaluator: {max: [{path: players.score}]}
rules:
  - id: battle
    trigger: on.phase.resolve
    condition:
      isGreaterThan:
        - {path: player.0.zones.play_area.top_card.rank}
        - {path: player.1.zones.play_area.top_card.rank}
    effect:
      - {action: MOVE_ALL, from: player.1.zones.play_area, to: player.0.zones.hand}
`

func TestCompile_WarDocument(t *testing.T) {
	def, err := compileYAML(t, warDoc)
	require.NoError(t, err)

	assert.Equal(t, "1.0", def.Version)
	assert.Equal(t, "War", def.Meta.Name)
	assert.Equal(t, 2, def.Meta.Players.Max)
	assert.NotEmpty(t, def.DocHash)

	require.Len(t, def.Components.Decks, 1)
	assert.Equal(t, "standard", def.Components.Decks[0].Type)
	require.Len(t, def.Components.Zones, 3)
	assert.Equal(t, cgml.OrderingFIFO, def.Components.Zones[0].Ordering)
	assert.Equal(t, cgml.OrderingLIFO, def.Components.Zones[1].Ordering, "ordering defaults to lifo")

	require.Len(t, def.Components.Variables, 2)
	assert.Equal(t, cgml.ScopePerPlayer, def.Components.Variables[0].Scope)
	assert.NotNil(t, def.Components.Variables[1].Computed)

	require.Len(t, def.Setup, 2)
	assert.Equal(t, cgml.ActionShuffle, def.Setup[0].Action)

	require.Len(t, def.Flow.States, 2)
	assert.True(t, def.Flow.States[1].Terminal)
	assert.NotNil(t, def.Flow.States[1].Evaluator)

	require.Len(t, def.Rules, 1)
	rule := def.Rules[0]
	assert.Equal(t, "battle", rule.ID)
	op, ok := rule.Condition.(*cgml.OpExpr)
	require.True(t, ok)
	assert.Equal(t, "isGreaterThan", op.Op)
	require.Len(t, op.Args, 2)
	_, ok = op.Args[0].(*cgml.PathExpr)
	assert.True(t, ok)
}

func TestCompile_DocHashStable(t *testing.T) {
	a, err := compileYAML(t, warDoc)
	require.NoError(t, err)
	b, err := compileYAML(t, warDoc)
	require.NoError(t, err)
	assert.Equal(t, a.DocHash, b.DocHash)
}

func TestCompile_TransitionToUndeclaredState(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Playing
  states:
    - name: Playing
      transitions: [{to: Nowhere}]
`)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err), "expected InvalidTransitionError, got %v", err)
}

func TestCompile_UndeclaredInitialState(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Missing
  states: [{name: Playing}]
`)
	require.Error(t, err)
}

func TestCompile_ArityViolation(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Playing
  states: [{name: Playing}]
rules:
  - id: bad
    trigger: on.play
    condition: {isEqual: [{value: 1}]}
    effect: [{action: END_TURN}]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "isEqual")
}

func TestCompile_MultiKeyExpressionNode(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Playing
  states: [{name: Playing}]
rules:
  - id: bad
    trigger: on.play
    condition: {isEqual: [{value: 1}, {value: 1}], not: [{value: true}]}
    effect: [{action: END_TURN}]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestCompile_UnknownAction(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Playing
  states: [{name: Playing}]
rules:
  - id: bad
    trigger: on.play
    effect: [{action: TELEPORT}]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEPORT")
}

func TestCompile_MissingActionParam(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Playing
  states: [{name: Playing}]
rules:
  - id: bad
    trigger: on.play
    effect: [{action: MOVE, from: zones.deck}]
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"to"`)
}

func TestCompile_DuplicateRuleID(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Playing
  states: [{name: Playing}]
rules:
  - {id: r1, trigger: on.play, effect: [{action: END_TURN}]}
  - {id: r1, trigger: on.play, effect: [{action: END_TURN}]}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule id")
}

func TestCompile_ComputedVariableWithInitialRejected(t *testing.T) {
	_, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components:
  variables:
    - name: broken
      initial: 5
      computed: {count: [{path: zones.deck.cards}]}
flow:
  initial_state: Playing
  states: [{name: Playing}]
`)
	require.Error(t, err)
}

func TestCompile_RefShorthand(t *testing.T) {
	def, err := compileYAML(t, `
cgml_version: "1.0"
meta: {name: x, players: {min: 2, max: 2}}
components: {}
flow:
  initial_state: Playing
  states: [{name: Playing}]
rules:
  - id: r1
    trigger: on.play
    condition: {isEqual: [{path: "ref:chosen"}, {value: 1}]}
    effect: [{action: END_TURN}]
`)
	require.NoError(t, err)
	op := def.Rules[0].Condition.(*cgml.OpExpr)
	ref, ok := op.Args[0].(*cgml.RefExpr)
	require.True(t, ok, "path with ref: prefix compiles to a RefExpr")
	assert.Equal(t, "chosen", ref.Name)
}

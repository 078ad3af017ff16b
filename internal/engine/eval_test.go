package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/state"
)

func evalDef() *cgml.GameDef {
	return &cgml.GameDef{
		Meta: cgml.MetaDef{
			Name:    "eval-fixture",
			Players: cgml.PlayerRange{Min: 2, Max: 2},
		},
		Components: cgml.ComponentsDef{
			DeckTypes: map[string]cgml.DeckTypeDef{
				"ranked": {
					Name:          "ranked",
					RankHierarchy: []string{"3", "5", "7", "K"},
					Composition: []cgml.CompositionDef{
						{Template: "standard_suits", Values: []string{"3", "5", "7", "K"}},
					},
				},
			},
			Decks: []cgml.DeckDef{{Name: "main", Type: "ranked"}},
			Zones: []cgml.ZoneDef{
				{Name: "deck", OfDeck: "main", Ordering: cgml.OrderingLIFO},
				{Name: "discard", Ordering: cgml.OrderingLIFO},
				{Name: "hand", PerPlayer: true, Ordering: cgml.OrderingUnordered},
			},
			Variables: []cgml.VariableDef{
				{Name: "round", Scope: cgml.ScopeGlobal, Initial: cgml.Int(2)},
				{Name: "score", Scope: cgml.ScopePerPlayer, Initial: cgml.Int(0)},
			},
		},
	}
}

func evalCtx(t *testing.T, actor int) *evalContext {
	t.Helper()
	s, err := state.NewGame(evalDef(), 2)
	require.NoError(t, err)
	return &evalContext{
		state: s,
		event: Event{Name: "test", Actor: actor, Payload: cgml.Map{}},
		scope: newScope(),
	}
}

func lit(v cgml.Value) cgml.Expr { return &cgml.Literal{Val: v} }

func path(p string) cgml.Expr { return &cgml.PathExpr{Raw: p} }

func op(name string, args ...cgml.Expr) cgml.Expr {
	return &cgml.OpExpr{Op: name, Args: args}
}

func TestCompareSameType(t *testing.T) {
	c := evalCtx(t, 0)

	v, err := evalExpr(c, op("isEqual", lit(cgml.Int(3)), lit(cgml.Int(3))))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)

	v, err = evalExpr(c, op("isGreaterThan", lit(cgml.Int(5)), lit(cgml.Int(3))))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)

	v, err = evalExpr(c, op("isLessThan", lit(cgml.String("a")), lit(cgml.String("b"))))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)
}

func TestCompareCrossTypeFails(t *testing.T) {
	c := evalCtx(t, 0)

	_, err := evalExpr(c, op("isEqual", lit(cgml.Int(3)), lit(cgml.String("3x"))))
	assert.True(t, IsTypeMismatch(err))

	_, err = evalExpr(c, op("isGreaterThan", lit(cgml.Bool(true)), lit(cgml.Int(1))))
	assert.True(t, IsTypeMismatch(err))
}

func TestCompareRanksThroughHierarchy(t *testing.T) {
	c := evalCtx(t, 0)

	// "K" sorts before "7" as a raw string but ranks above it.
	v, err := evalExpr(c, op("isGreaterThan", lit(cgml.String("K")), lit(cgml.String("7"))))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)

	v, err = evalExpr(c, op("isLessThan", lit(cgml.String("3")), lit(cgml.String("5"))))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)
}

func TestAndOrShortCircuit(t *testing.T) {
	c := evalCtx(t, 0)

	// The second operand of each would fail; short-circuit skips it.
	v, err := evalExpr(c, op("and", lit(cgml.Bool(false)), path("zones.nowhere.card_count")))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(false), v)

	v, err = evalExpr(c, op("or", lit(cgml.Bool(true)), path("zones.nowhere.card_count")))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)

	v, err = evalExpr(c, op("not", lit(cgml.Bool(false))))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)
}

func TestQuantifiers(t *testing.T) {
	c := evalCtx(t, 0)

	anyKing := op("any", path("zones.deck.cards"),
		op("isEqual", path("each.rank"), lit(cgml.String("K"))))
	v, err := evalExpr(c, anyKing)
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v)

	allKings := op("all", path("zones.deck.cards"),
		op("isEqual", path("each.rank"), lit(cgml.String("K"))))
	v, err = evalExpr(c, allKings)
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(false), v)
}

func TestQuantifiersEmptyList(t *testing.T) {
	c := evalCtx(t, 0)
	pred := op("isEqual", path("each.rank"), lit(cgml.String("K")))

	v, err := evalExpr(c, op("any", path("zones.discard.cards"), pred))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(false), v, "any over empty is false")

	v, err = evalExpr(c, op("all", path("zones.discard.cards"), pred))
	require.NoError(t, err)
	assert.Equal(t, cgml.Bool(true), v, "all over empty is true")
}

func TestAggregations(t *testing.T) {
	c := evalCtx(t, 0)
	nums := lit(cgml.List{cgml.Int(4), cgml.Int(9), cgml.Int(2)})

	v, err := evalExpr(c, op("max", nums))
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(9), v)

	v, err = evalExpr(c, op("min", nums))
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(2), v)

	v, err = evalExpr(c, op("count", path("zones.deck.cards")))
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(16), v)

	v, err = evalExpr(c, op("sum", lit(cgml.List{
		cgml.Int(1),
		cgml.List{cgml.Int(2), cgml.Int(3)},
	})))
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(6), v, "one level of nesting flattens")
}

func TestAggregationsEmptyList(t *testing.T) {
	c := evalCtx(t, 0)
	empty := path("zones.discard.cards")

	v, err := evalExpr(c, op("count", empty))
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(0), v)

	v, err = evalExpr(c, op("sum", empty))
	require.NoError(t, err)
	assert.Equal(t, cgml.Int(0), v)

	_, err = evalExpr(c, op("max", empty))
	assert.Equal(t, ErrCodeEmptyAggregation, CodeOf(err))
	_, err = evalExpr(c, op("min", empty))
	assert.Equal(t, ErrCodeEmptyAggregation, CodeOf(err))
}

func TestArityDefendedAtRuntime(t *testing.T) {
	c := evalCtx(t, 0)

	_, err := evalExpr(c, op("not", lit(cgml.Bool(true)), lit(cgml.Bool(false))))
	assert.Equal(t, ErrCodeArity, CodeOf(err))

	_, err = evalExpr(c, op("isEqual", lit(cgml.Int(1))))
	assert.Equal(t, ErrCodeArity, CodeOf(err))
}

func TestConditionMustBeBool(t *testing.T) {
	c := evalCtx(t, 0)

	_, err := evalCondition(c, lit(cgml.Int(1)))
	assert.True(t, IsTypeMismatch(err))

	hit, err := evalCondition(c, nil)
	require.NoError(t, err)
	assert.True(t, hit, "absent condition is always true")
}

func TestEvaluationIsPure(t *testing.T) {
	c := evalCtx(t, 0)
	expr := op("count", path("zones.deck.cards"))

	first, err := evalExpr(c, expr)
	require.NoError(t, err)
	second, err := evalExpr(c, expr)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NoError(t, c.state.CheckCardInvariant())
}

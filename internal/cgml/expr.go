package cgml

import "fmt"

// Expr is a sealed interface over expression tree nodes.
// An expression is a literal, a path into game state, a scratch-binding
// reference, or an operator node over sub-expressions.
type Expr interface {
	expr()
}

// Literal is a constant operand.
type Literal struct {
	Val Value
}

func (*Literal) expr() {}

// PathExpr is a dotted reference into live game state, resolved at
// evaluation time (e.g. "player.current.score", "zones.discard.top_card.rank").
type PathExpr struct {
	Raw string
}

func (*PathExpr) expr() {}

// RefExpr references a scratch binding stored by a prior action in the same
// effect sequence ("ref:selected_player").
type RefExpr struct {
	Name string
}

func (*RefExpr) expr() {}

// OpExpr is an operator node. Exactly one operator per node; Args arity is
// fixed per operator (see Arities).
type OpExpr struct {
	Op   string
	Args []Expr
}

func (*OpExpr) expr() {}

// Arity bounds the operand count of an operator. Max < 0 means variadic.
type Arity struct {
	Min int
	Max int
}

// Arities is the operator vocabulary with its arity table.
// Adding an operator means adding a row here plus an evaluator case;
// unknown operators are rejected at compile time.
var Arities = map[string]Arity{
	"isEqual":       {2, 2},
	"isGreaterThan": {2, 2},
	"isLessThan":    {2, 2},
	"and":           {2, -1},
	"or":            {2, -1},
	"not":           {1, 1},
	"any":           {2, 2}, // list + predicate
	"all":           {2, 2}, // list + predicate
	"max":           {1, 1},
	"min":           {1, 1},
	"count":         {1, 1},
	"sum":           {1, 1},
}

// CheckArity validates an operator name and operand count against the table.
func CheckArity(op string, argc int) error {
	ar, ok := Arities[op]
	if !ok {
		return fmt.Errorf("unknown operator %q", op)
	}
	if argc < ar.Min {
		return fmt.Errorf("operator %q requires at least %d operands, got %d", op, ar.Min, argc)
	}
	if ar.Max >= 0 && argc > ar.Max {
		return fmt.Errorf("operator %q takes at most %d operands, got %d", op, ar.Max, argc)
	}
	return nil
}

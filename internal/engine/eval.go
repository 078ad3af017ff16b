package engine

import (
	"fmt"
	"sort"

	"github.com/cardlang/cgml/internal/cgml"
)

// evalExpr evaluates an expression tree to a single value under the
// given context. Pure with respect to game state: re-evaluating the same
// tree against unchanged state yields the same value.
func evalExpr(c *evalContext, e cgml.Expr) (cgml.Value, error) {
	switch node := e.(type) {
	case *cgml.Literal:
		return node.Val, nil
	case *cgml.PathExpr:
		return resolvePath(c, node.Raw)
	case *cgml.RefExpr:
		return c.scope.lookup(node.Name)
	case *cgml.OpExpr:
		return evalOp(c, node)
	default:
		return nil, &RuntimeError{
			Code:    ErrCodeActionFailed,
			Message: fmt.Sprintf("unknown expression node %T", e),
		}
	}
}

// evalCondition evaluates a rule or transition condition. A nil
// condition is always true; a non-boolean result is a type error.
func evalCondition(c *evalContext, e cgml.Expr) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := evalExpr(c, e)
	if err != nil {
		return false, err
	}
	b, ok := v.(cgml.Bool)
	if !ok {
		return false, &RuntimeError{
			Code:    ErrCodeTypeMismatch,
			Message: fmt.Sprintf("condition evaluated to %s, want bool", cgml.TypeName(v)),
		}
	}
	return bool(b), nil
}

func evalOp(c *evalContext, op *cgml.OpExpr) (cgml.Value, error) {
	if err := cgml.CheckArity(op.Op, len(op.Args)); err != nil {
		return nil, &RuntimeError{Code: ErrCodeArity, Message: err.Error()}
	}

	switch op.Op {
	case "isEqual", "isGreaterThan", "isLessThan":
		left, err := evalExpr(c, op.Args[0])
		if err != nil {
			return nil, err
		}
		right, err := evalExpr(c, op.Args[1])
		if err != nil {
			return nil, err
		}
		return compare(c, op.Op, left, right)

	case "and":
		for _, arg := range op.Args {
			b, err := evalBool(c, arg, op.Op)
			if err != nil {
				return nil, err
			}
			if !b {
				return cgml.Bool(false), nil
			}
		}
		return cgml.Bool(true), nil

	case "or":
		for _, arg := range op.Args {
			b, err := evalBool(c, arg, op.Op)
			if err != nil {
				return nil, err
			}
			if b {
				return cgml.Bool(true), nil
			}
		}
		return cgml.Bool(false), nil

	case "not":
		b, err := evalBool(c, op.Args[0], op.Op)
		if err != nil {
			return nil, err
		}
		return cgml.Bool(!b), nil

	case "any", "all":
		return evalQuantifier(c, op)

	case "max", "min":
		return evalExtremum(c, op)

	case "count":
		list, err := evalList(c, op.Args[0], op.Op)
		if err != nil {
			return nil, err
		}
		return cgml.Int(len(list)), nil

	case "sum":
		return evalSum(c, op)

	default:
		return nil, &RuntimeError{
			Code:    ErrCodeArity,
			Message: fmt.Sprintf("unknown operator %q", op.Op),
		}
	}
}

func evalBool(c *evalContext, e cgml.Expr, op string) (bool, error) {
	v, err := evalExpr(c, e)
	if err != nil {
		return false, err
	}
	b, ok := v.(cgml.Bool)
	if !ok {
		return false, typeMismatch(op, cgml.TypeName(v), "bool")
	}
	return bool(b), nil
}

func evalList(c *evalContext, e cgml.Expr, op string) (cgml.List, error) {
	v, err := evalExpr(c, e)
	if err != nil {
		return nil, err
	}
	list, ok := v.(cgml.List)
	if !ok {
		return nil, typeMismatch(op, cgml.TypeName(v), "list")
	}
	return list, nil
}

// evalQuantifier evaluates any/all: the first operand yields the list,
// the second is the predicate, run once per element with the element
// bound as "each". Empty list: any is false, all is true.
func evalQuantifier(c *evalContext, op *cgml.OpExpr) (cgml.Value, error) {
	list, err := evalList(c, op.Args[0], op.Op)
	if err != nil {
		return nil, err
	}
	for _, elem := range list {
		sub := &evalContext{
			state: c.state,
			event: c.event,
			scope: c.scope.child("each", elem),
		}
		hit, err := evalCondition(sub, op.Args[1])
		if err != nil {
			return nil, err
		}
		if op.Op == "any" && hit {
			return cgml.Bool(true), nil
		}
		if op.Op == "all" && !hit {
			return cgml.Bool(false), nil
		}
	}
	return cgml.Bool(op.Op == "all"), nil
}

// evalExtremum evaluates max/min over a list. Rank strings are compared
// through the deck's rank hierarchy like the comparison operators; an
// empty list is an aggregation error, never a default.
func evalExtremum(c *evalContext, op *cgml.OpExpr) (cgml.Value, error) {
	list, err := evalList(c, op.Args[0], op.Op)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &RuntimeError{
			Code:    ErrCodeEmptyAggregation,
			Message: fmt.Sprintf("%s over an empty list", op.Op),
		}
	}
	best := list[0]
	for _, v := range list[1:] {
		gt, err := compare(c, "isGreaterThan", v, best)
		if err != nil {
			return nil, err
		}
		if (op.Op == "max") == bool(gt.(cgml.Bool)) {
			best = v
		}
	}
	return best, nil
}

// evalSum sums a list of integers, flattening one level of nesting so
// mapped per-player counts add up directly. Empty list sums to 0.
func evalSum(c *evalContext, op *cgml.OpExpr) (cgml.Value, error) {
	list, err := evalList(c, op.Args[0], op.Op)
	if err != nil {
		return nil, err
	}
	var total cgml.Int
	for _, v := range list {
		switch elem := v.(type) {
		case cgml.Int:
			total += elem
		case cgml.List:
			for _, inner := range elem {
				n, ok := inner.(cgml.Int)
				if !ok {
					return nil, typeMismatch(op.Op, cgml.TypeName(inner), "int")
				}
				total += n
			}
		default:
			return nil, typeMismatch(op.Op, cgml.TypeName(v), "int")
		}
	}
	return total, nil
}

// compare applies a comparison operator. Operands must share a semantic
// type; there is no cross-type coercion. When both operands are members
// of a declared rank hierarchy they compare by hierarchy position, so
// "K" beats "7" even though the raw strings sort the other way.
func compare(c *evalContext, op string, left, right cgml.Value) (cgml.Value, error) {
	if l, r, ok := rankIndices(c, left, right); ok {
		left, right = l, r
	}

	switch l := left.(type) {
	case cgml.Int:
		r, ok := right.(cgml.Int)
		if !ok {
			return nil, typeMismatch(op, cgml.TypeName(left), cgml.TypeName(right))
		}
		switch op {
		case "isEqual":
			return cgml.Bool(l == r), nil
		case "isGreaterThan":
			return cgml.Bool(l > r), nil
		default:
			return cgml.Bool(l < r), nil
		}
	case cgml.String:
		r, ok := right.(cgml.String)
		if !ok {
			return nil, typeMismatch(op, cgml.TypeName(left), cgml.TypeName(right))
		}
		switch op {
		case "isEqual":
			return cgml.Bool(l == r), nil
		case "isGreaterThan":
			return cgml.Bool(l > r), nil
		default:
			return cgml.Bool(l < r), nil
		}
	default:
		if op == "isEqual" {
			if cgml.TypeName(left) != cgml.TypeName(right) {
				return nil, typeMismatch(op, cgml.TypeName(left), cgml.TypeName(right))
			}
			return cgml.Bool(cgml.Equal(left, right)), nil
		}
		return nil, typeMismatch(op, cgml.TypeName(left), cgml.TypeName(right))
	}
}

// rankIndices maps two values onto their positions in a declared rank
// hierarchy when both appear in the same one. Hierarchies are checked in
// sorted deck-type order so the mapping is deterministic with several
// deck types declared.
func rankIndices(c *evalContext, left, right cgml.Value) (cgml.Int, cgml.Int, bool) {
	ls, lok := left.(cgml.String)
	rs, rok := right.(cgml.String)
	if !lok || !rok {
		return 0, 0, false
	}

	types := c.state.Def.Components.DeckTypes
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		hierarchy := types[name].RankHierarchy
		li, ri := -1, -1
		for i, rank := range hierarchy {
			if rank == string(ls) {
				li = i
			}
			if rank == string(rs) {
				ri = i
			}
		}
		if li >= 0 && ri >= 0 {
			return cgml.Int(li), cgml.Int(ri), true
		}
	}
	return 0, 0, false
}

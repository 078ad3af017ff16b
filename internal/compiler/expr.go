package compiler

import (
	"fmt"
	"strings"

	"github.com/cardlang/cgml/internal/cgml"
)

// compileExpr turns a raw document node into an expression tree.
//
// Node shapes:
//   - {path: "zones.deck.card_count"}  - state reference
//   - {value: 5}                       - explicit literal
//   - {ref: "selected_player"}         - scratch-binding reference
//   - {isEqual: [op, op]}              - operator node: exactly one key,
//     which must be a registered operator; the value is the operand list
//     (a single non-list operand is accepted for unary operators)
//   - bare scalar                      - literal shorthand
func compileExpr(raw any, path string) (cgml.Expr, error) {
	switch node := raw.(type) {
	case map[string]any:
		return compileExprNode(node, path)
	case []any:
		return nil, errAt(path, "bare list is not an expression; wrap it in an operator or {value: ...}")
	default:
		val, err := cgml.FromGo(node)
		if err != nil {
			return nil, errAt(path, "bad literal: %v", err)
		}
		return &cgml.Literal{Val: val}, nil
	}
}

func compileExprNode(node map[string]any, path string) (cgml.Expr, error) {
	if len(node) != 1 {
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		return nil, errAt(path, "expression node must have exactly one key, got %d (%s)", len(node), strings.Join(keys, ", "))
	}

	var key string
	var raw any
	for k, v := range node {
		key, raw = k, v
	}

	switch key {
	case "path":
		s, ok := raw.(string)
		if !ok || s == "" {
			return nil, errAt(path, "path operand must be a non-empty string")
		}
		if name, isRef := strings.CutPrefix(s, "ref:"); isRef {
			return &cgml.RefExpr{Name: name}, nil
		}
		return &cgml.PathExpr{Raw: s}, nil

	case "value":
		val, err := cgml.FromGo(raw)
		if err != nil {
			return nil, errAt(path, "bad literal: %v", err)
		}
		return &cgml.Literal{Val: val}, nil

	case "ref":
		s, ok := raw.(string)
		if !ok || s == "" {
			return nil, errAt(path, "ref operand must be a non-empty string")
		}
		return &cgml.RefExpr{Name: strings.TrimPrefix(s, "ref:")}, nil

	default:
		return compileOp(key, raw, path)
	}
}

func compileOp(op string, raw any, path string) (cgml.Expr, error) {
	operands, ok := raw.([]any)
	if !ok {
		// Unary shorthand: not: {...} instead of not: [{...}].
		operands = []any{raw}
	}

	if err := cgml.CheckArity(op, len(operands)); err != nil {
		return nil, errAt(path, "%v", err)
	}

	args := make([]cgml.Expr, len(operands))
	for i, operand := range operands {
		arg, err := compileExpr(operand, fmt.Sprintf("%s.%s[%d]", path, op, i))
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	return &cgml.OpExpr{Op: op, Args: args}, nil
}

// compileOptionalExpr compiles a condition-like field that may be absent.
func compileOptionalExpr(node map[string]any, field, path string) (cgml.Expr, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, nil
	}
	return compileExpr(raw, path+"."+field)
}

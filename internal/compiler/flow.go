package compiler

import (
	"errors"
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/document"
)

// InvalidTransitionError reports a declared transition into a state that
// does not exist in the state graph. Always fatal at load time.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s (undeclared state)", e.From, e.To)
}

// IsInvalidTransition reports whether err wraps an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

func compileFlow(tree document.Tree, def *cgml.GameDef) error {
	flow, ok := tree["flow"].(map[string]any)
	if !ok {
		return errAt("flow", "missing")
	}

	def.Flow.InitialState = stringField(flow, "initial_state")
	if def.Flow.InitialState == "" {
		return errAt("flow.initial_state", "required")
	}

	def.Flow.PlayerOrder = cgml.PlayerOrder(stringField(flow, "player_order"))
	if def.Flow.PlayerOrder == "" {
		def.Flow.PlayerOrder = cgml.OrderClockwise
	}
	switch def.Flow.PlayerOrder {
	case cgml.OrderClockwise, cgml.OrderCounterclockwise, cgml.OrderSimultaneous:
	default:
		return errAt("flow.player_order", "invalid order %q", def.Flow.PlayerOrder)
	}

	states := anyList(flow["states"])
	if len(states) == 0 {
		return errAt("flow.states", "at least one state is required")
	}

	declared := map[string]bool{}
	for i, raw := range states {
		path := fmt.Sprintf("flow.states[%d]", i)
		node, ok := raw.(map[string]any)
		if !ok {
			return errAt(path, "must be a mapping")
		}

		state := cgml.StateDef{
			Name:     stringField(node, "name"),
			Terminal: boolField(node, "terminal"),
		}
		if state.Name == "" {
			return errAt(path, "state name is required")
		}
		if declared[state.Name] {
			return errAt(path, "duplicate state %q", state.Name)
		}
		declared[state.Name] = true

		for j, rawPhase := range anyList(node["turn_structure"]) {
			phase, ok := rawPhase.(string)
			if !ok || phase == "" {
				return errAt(fmt.Sprintf("%s.turn_structure[%d]", path, j), "phase must be a non-empty string")
			}
			state.TurnStructure = append(state.TurnStructure, phase)
		}

		for j, rawTr := range anyList(node["transitions"]) {
			trPath := fmt.Sprintf("%s.transitions[%d]", path, j)
			trNode, ok := rawTr.(map[string]any)
			if !ok {
				return errAt(trPath, "must be a mapping")
			}
			tr := cgml.TransitionDef{To: stringField(trNode, "to")}
			if tr.To == "" {
				return errAt(trPath, "transition target is required")
			}
			when, err := compileOptionalExpr(trNode, "when", trPath)
			if err != nil {
				return err
			}
			tr.When = when
			state.Transitions = append(state.Transitions, tr)
		}

		evaluator, err := compileOptionalExpr(node, "evaluator", path)
		if err != nil {
			return err
		}
		state.Evaluator = evaluator

		def.Flow.States = append(def.Flow.States, state)
	}

	// Structural graph checks: every transition target and the initial
	// state must be declared members of the graph.
	if !declared[def.Flow.InitialState] {
		return errAt("flow.initial_state", "undeclared state %q", def.Flow.InitialState)
	}
	for _, state := range def.Flow.States {
		for _, tr := range state.Transitions {
			if !declared[tr.To] {
				return &InvalidTransitionError{From: state.Name, To: tr.To}
			}
		}
	}

	return nil
}

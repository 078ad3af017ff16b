package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cardlang/cgml/internal/cgml"
)

// The FSM driver. States form a two-level graph: the top-level game
// state, optionally containing a turn/phase cycle scoped to whichever
// seat holds the turn. Both levels are explicit here, state name plus
// phase index, so transition re-checking order stays well defined.

// stateDef finds a declared state by name.
func (e *Engine) stateDef(name string) (*cgml.StateDef, bool) {
	for i := range e.def.Flow.States {
		if e.def.Flow.States[i].Name == name {
			return &e.def.Flow.States[i], true
		}
	}
	return nil, false
}

// checkTransitions re-evaluates the current state's outgoing transitions
// in declaration order; the first whose condition holds fires. After a
// firing the new state's transitions are checked in turn, until nothing
// fires or a terminal state freezes the game.
//
// A condition that fails to evaluate is treated as not holding and
// surfaced as a warning; the remaining transitions still get checked.
func (e *Engine) checkTransitions(ctx context.Context) error {
	for !e.state.Frozen() {
		sd, ok := e.stateDef(e.state.State)
		if !ok {
			return nil
		}

		fired := false
		for _, tr := range sd.Transitions {
			c := &evalContext{
				state: e.state,
				event: Event{Actor: e.state.Current},
				scope: newScope(),
			}
			hit, err := evalCondition(c, tr.When)
			if err != nil {
				e.warn("transition:"+sd.Name+"->"+tr.To, err)
				continue
			}
			if hit {
				if err := e.fireTransition(ctx, sd.Name, tr.To); err != nil {
					return err
				}
				fired = true
				break
			}
		}
		if !fired {
			return nil
		}
	}
	return nil
}

// fireTransition leaves the old state and enters the new one. The exit
// event is dispatched immediately, before the state mutates, so rules
// observing the exit still see the old state.
func (e *Engine) fireTransition(ctx context.Context, from, to string) error {
	slog.Info("state transition", "from", from, "to", to, "token", e.token)
	e.dispatch(ctx, Event{
		Name:    "on.state.exit." + from,
		Actor:   -1,
		Payload: cgml.Map{"state": cgml.String(from)},
	})
	return e.enterState(ctx, to)
}

// enterState mutates the FSM position, dispatches the entry event, and
// either freezes (terminal) or starts the state's turn cycle.
func (e *Engine) enterState(ctx context.Context, name string) error {
	sd, ok := e.stateDef(name)
	if !ok {
		return fmt.Errorf("state %q not declared", name)
	}
	if err := e.state.EnterState(name); err != nil {
		return err
	}
	e.phaseIdx = 0
	e.emit(DeltaFSM, cgml.Map{"state": cgml.String(name)})

	e.dispatch(ctx, Event{
		Name:    "on.state.enter." + name,
		Actor:   -1,
		Payload: cgml.Map{"state": cgml.String(name)},
	})
	if e.state.Frozen() {
		return nil
	}

	if sd.Terminal {
		e.finish(sd)
		return nil
	}
	if len(sd.TurnStructure) > 0 {
		e.startTurnCycle(sd)
		return e.enterPhase(sd)
	}
	return nil
}

// finish computes the win evaluator exactly once and freezes the store.
// The evaluator is never re-evaluated afterwards.
func (e *Engine) finish(sd *cgml.StateDef) {
	result := cgml.Value(cgml.Null{})
	if sd.Evaluator != nil {
		c := &evalContext{
			state: e.state,
			event: Event{Actor: e.state.Current},
			scope: newScope(),
		}
		v, err := evalExpr(c, sd.Evaluator)
		if err != nil {
			e.warn("evaluator:"+sd.Name, err)
		} else {
			result = v
		}
	}
	e.state.Freeze(result)
	slog.Info("terminal state reached", "state", sd.Name, "token", e.token)
	e.emit(DeltaResult, cgml.Map{
		"state":  cgml.String(sd.Name),
		"result": result,
	})
}

// startTurnCycle seats the first turn owner for the declared rotation.
// Simultaneous play has no single owner; phases advance for everyone in
// lock-step with no acting seat.
func (e *Engine) startTurnCycle(sd *cgml.StateDef) {
	switch e.def.Flow.PlayerOrder {
	case cgml.OrderCounterclockwise:
		_ = e.state.SetCurrent(len(e.state.Players) - 1)
	case cgml.OrderSimultaneous:
		_ = e.state.SetCurrent(-1)
	default:
		_ = e.state.SetCurrent(0)
	}
}

// enterPhase records the phase at phaseIdx and enqueues its entry event.
// Phase events go through the queue, not immediate dispatch, so they
// obey the breadth-first ordering of everything else in flight.
func (e *Engine) enterPhase(sd *cgml.StateDef) error {
	phase := sd.TurnStructure[e.phaseIdx]
	if err := e.state.SetPhase(phase); err != nil {
		return err
	}
	e.emit(DeltaFSM, cgml.Map{
		"state":   cgml.String(e.state.State),
		"phase":   cgml.String(phase),
		"current": cgml.Int(e.state.Current),
	})
	e.queue.Enqueue(Event{
		Name:    "on.phase." + phase,
		Actor:   e.state.Current,
		Payload: cgml.Map{"phase": cgml.String(phase)},
	})
	return nil
}

// advancePhase is the implicit cycle step: next phase, and past the last
// phase the turn passes to the next seat and the cycle restarts.
func (e *Engine) advancePhase(ctx context.Context) error {
	sd, ok := e.stateDef(e.state.State)
	if !ok || len(sd.TurnStructure) == 0 || e.state.Frozen() {
		return nil
	}
	e.phaseIdx++
	if e.phaseIdx >= len(sd.TurnStructure) {
		e.phaseIdx = 0
		if err := e.advanceTurn(); err != nil {
			return err
		}
	}
	return e.enterPhase(sd)
}

// advanceTurn rotates the turn owner per the declared player order.
func (e *Engine) advanceTurn() error {
	n := len(e.state.Players)
	switch e.def.Flow.PlayerOrder {
	case cgml.OrderCounterclockwise:
		return e.state.SetCurrent((e.state.Current - 1 + n) % n)
	case cgml.OrderSimultaneous:
		return nil
	default:
		return e.state.SetCurrent((e.state.Current + 1) % n)
	}
}

// setPhase jumps to a named phase of the current state, used by the
// SET_PHASE action. Implicit advancement then continues from there.
func (e *Engine) setPhase(name string) error {
	sd, ok := e.stateDef(e.state.State)
	if !ok {
		return fmt.Errorf("current state %q not declared", e.state.State)
	}
	for i, phase := range sd.TurnStructure {
		if phase == name {
			e.phaseIdx = i
			return e.enterPhase(sd)
		}
	}
	return fmt.Errorf("state %q has no phase %q", sd.Name, name)
}

// endTurn passes the turn and restarts the cycle at the first phase,
// used by the END_TURN action.
func (e *Engine) endTurn() error {
	sd, ok := e.stateDef(e.state.State)
	if !ok || len(sd.TurnStructure) == 0 {
		return fmt.Errorf("current state %q has no turn structure", e.state.State)
	}
	e.phaseIdx = 0
	if err := e.advanceTurn(); err != nil {
		return err
	}
	return e.enterPhase(sd)
}

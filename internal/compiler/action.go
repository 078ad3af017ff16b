package compiler

import (
	"github.com/cardlang/cgml/internal/cgml"
)

// requiredParams lists the parameters each action tag must carry.
// An unknown tag is a compile error - the action vocabulary is closed here
// and extended by adding a row plus an executor handler.
var requiredParams = map[string][]string{
	cgml.ActionMove:         {"from", "to"},
	cgml.ActionMoveAll:      {"from", "to"},
	cgml.ActionDeal:         {"from", "to", "count"},
	cgml.ActionDealAll:      {"from_deck", "to"},
	cgml.ActionShuffle:      {"target"},
	cgml.ActionSetVariable:  {"name", "value"},
	cgml.ActionRequestInput: {"player", "store_as"},
	cgml.ActionRejectPlay:   {},
	cgml.ActionReturnToHand: {},
	cgml.ActionEmitEvent:    {"event"},
	cgml.ActionSetPhase:     {"phase"},
	cgml.ActionEndTurn:      {},
	cgml.ActionSetState:     {"state"},
}

// compileAction builds one typed action from a raw effect/setup entry.
func compileAction(raw any, path string) (*cgml.ActionDef, error) {
	node, ok := raw.(map[string]any)
	if !ok {
		return nil, errAt(path, "action must be a mapping")
	}

	tag := stringField(node, "action")
	if tag == "" {
		return nil, errAt(path, "action tag is required")
	}
	required, known := requiredParams[tag]
	if !known {
		return nil, errAt(path, "unknown action %q", tag)
	}
	for _, param := range required {
		if _, present := node[param]; !present {
			return nil, errAt(path, "action %s requires param %q", tag, param)
		}
	}

	a := &cgml.ActionDef{
		Action:   tag,
		From:     stringField(node, "from"),
		To:       stringField(node, "to"),
		FromDeck: stringField(node, "from_deck"),
		Target:   stringField(node, "target"),
		Card:     stringField(node, "card"),
		Name:     stringField(node, "name"),
		Owner:    stringField(node, "owner"),
		Player:   stringField(node, "player"),
		Prompt:   stringField(node, "prompt"),
		Event:    stringField(node, "event"),
		Phase:    stringField(node, "phase"),
		State:    stringField(node, "state"),
		StoreAs:  stringField(node, "store_as"),
	}

	var err error
	if a.Count, err = compileOptionalExpr(node, "count", path); err != nil {
		return nil, err
	}
	if a.Filter, err = compileOptionalExpr(node, "filter", path); err != nil {
		return nil, err
	}
	if a.Value, err = compileOptionalExpr(node, "value", path); err != nil {
		return nil, err
	}
	if a.Options, err = compileOptionalExpr(node, "options", path); err != nil {
		return nil, err
	}

	if payload, ok := node["payload"].(map[string]any); ok {
		a.Payload = make(map[string]cgml.Expr, len(payload))
		for key := range payload {
			expr, err := compileExpr(payload[key], path+".payload."+key)
			if err != nil {
				return nil, err
			}
			a.Payload[key] = expr
		}
	}

	return a, nil
}

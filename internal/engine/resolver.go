package engine

import (
	"strconv"
	"strings"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/state"
)

// evalContext is the context one rule firing evaluates under: the live
// game state, the event being dispatched, and the effect sequence's
// scratch bindings. Threaded explicitly through resolution, evaluation
// and execution; never ambient.
type evalContext struct {
	state *state.GameState
	event Event
	scope *scope
}

// resolvePath binds a dotted path to a value in the current context.
// Read-only: resolution never mutates state.
//
// Grammar:
//
//	player.current.<attr>   attribute of the acting player
//	player.<seat>.<attr>    attribute of a seat (0-based)
//	players                 list of player views
//	players.<seat>.<attr>   same as player.<seat>
//	players.<attr>          <attr> mapped over every player (a list)
//	zones.<name>.<attr>     shared zone, falling back to the actor's
//	                        per-player instance ("zone." and "game."
//	                        are accepted aliases)
//	card.played.<attr>      the played card carried in the event payload
//	event.<key>             event payload entry
//	each.<attr>             the implicit subject inside any/all
//	<name>                  declared variable (actor-scoped when per_player)
//
// Player attributes are "id", "index", a zone name, or a variable name;
// zone attributes are "top_card", "card_count" and "cards". A "zones"
// segment after a player is accepted and skipped, so older documents
// writing "player.0.zones.hand" keep resolving.
func resolvePath(c *evalContext, raw string) (cgml.Value, error) {
	parts := strings.Split(raw, ".")

	switch parts[0] {
	case "player":
		if len(parts) < 2 {
			return nil, pathError(raw, "path %q needs a seat selector after \"player\"", raw)
		}
		seat, err := seatOf(c, parts[1], raw)
		if err != nil {
			return nil, err
		}
		return resolvePlayerAttr(c, seat, parts[2:], raw)

	case "players":
		if len(parts) == 1 {
			views := make(cgml.List, len(c.state.Players))
			for i, p := range c.state.Players {
				views[i] = playerView(p)
			}
			return views, nil
		}
		if seat, err := strconv.Atoi(parts[1]); err == nil {
			if seat < 0 || seat >= len(c.state.Players) {
				return nil, pathError(raw, "seat %d out of range", seat)
			}
			return resolvePlayerAttr(c, seat, parts[2:], raw)
		}
		// Non-numeric segment maps the attribute over every player.
		out := make(cgml.List, len(c.state.Players))
		for i := range c.state.Players {
			v, err := resolvePlayerAttr(c, i, parts[1:], raw)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case "zones", "zone", "game":
		if len(parts) < 2 {
			return nil, pathError(raw, "path %q needs a zone name", raw)
		}
		z, err := lookupZone(c, parts[1], raw)
		if err != nil {
			return nil, err
		}
		return resolveZoneAttr(z, parts[2:], raw)

	case "card":
		if len(parts) >= 2 && parts[1] == "played" {
			v, ok := c.event.Payload["card"]
			if !ok {
				return nil, pathError(raw, "event %q carries no played card", c.event.Name)
			}
			return descend(v, parts[2:], raw)
		}
		return nil, pathError(raw, "unknown card selector in %q", raw)

	case "event":
		if len(parts) < 2 {
			return cgml.Map(c.event.Payload), nil
		}
		v, ok := c.event.Payload[parts[1]]
		if !ok {
			return nil, pathError(raw, "event %q has no payload entry %q", c.event.Name, parts[1])
		}
		return descend(v, parts[2:], raw)

	case "each":
		subject, err := c.scope.lookup("each")
		if err != nil {
			return nil, err
		}
		return descend(subject, parts[1:], raw)

	default:
		return resolveVariablePath(c, parts, raw)
	}
}

// seatOf resolves a seat selector segment: "current" or a 0-based index.
func seatOf(c *evalContext, sel, raw string) (int, error) {
	if sel == "current" {
		if c.event.Actor < 0 {
			return 0, pathError(raw, "no acting player in this context")
		}
		return c.event.Actor, nil
	}
	seat, err := strconv.Atoi(sel)
	if err != nil {
		return 0, pathError(raw, "seat selector %q is neither \"current\" nor an index", sel)
	}
	if seat < 0 || seat >= len(c.state.Players) {
		return 0, pathError(raw, "seat %d out of range", seat)
	}
	return seat, nil
}

func resolvePlayerAttr(c *evalContext, seat int, parts []string, raw string) (cgml.Value, error) {
	p := c.state.Players[seat]
	if len(parts) == 0 {
		return playerView(p), nil
	}
	// Legacy spelling "player.N.zones.hand".
	if parts[0] == "zones" {
		parts = parts[1:]
		if len(parts) == 0 {
			return nil, pathError(raw, "path %q ends at \"zones\"", raw)
		}
	}

	switch parts[0] {
	case "id":
		return cgml.String(p.ID), nil
	case "index":
		return cgml.Int(p.Index), nil
	}

	if z, ok := c.state.Zone(state.ZoneID(parts[0], seat)); ok {
		return resolveZoneAttr(z, parts[1:], raw)
	}
	if _, ok := c.state.Variable(parts[0]); ok {
		v, err := readVariable(c, parts[0], seat)
		if err != nil {
			return nil, err
		}
		return descend(v, parts[1:], raw)
	}
	return nil, pathError(raw, "player has no zone or variable %q", parts[0])
}

// lookupZone finds a shared zone by name, falling back to the acting
// player's per-player instance.
func lookupZone(c *evalContext, name, raw string) (*state.Zone, error) {
	if z, ok := c.state.Zone(name); ok {
		return z, nil
	}
	if c.event.Actor >= 0 {
		if z, ok := c.state.Zone(state.ZoneID(name, c.event.Actor)); ok {
			return z, nil
		}
	}
	return nil, pathError(raw, "zone %q not found", name)
}

func resolveZoneAttr(z *state.Zone, parts []string, raw string) (cgml.Value, error) {
	if len(parts) == 0 {
		return zoneView(z), nil
	}
	switch parts[0] {
	case "card_count":
		return descend(cgml.Int(z.Count()), parts[1:], raw)
	case "top_card":
		top, ok := z.Top()
		if !ok {
			return nil, pathError(raw, "zone %q is empty", z.ID())
		}
		return descend(top.View(), parts[1:], raw)
	case "cards":
		return descend(cardViews(z.Cards()), parts[1:], raw)
	default:
		return nil, pathError(raw, "zone has no attribute %q", parts[0])
	}
}

// resolveVariablePath handles a bare declared-variable path. Per-player
// variables resolve against the acting player; without an actor the
// lookup fails, unowned scoped reads are never silently global.
func resolveVariablePath(c *evalContext, parts []string, raw string) (cgml.Value, error) {
	name := parts[0]
	vr, ok := c.state.Variable(name)
	if !ok {
		return nil, pathError(raw, "nothing named %q in scope", name)
	}
	owner := -1
	if vr.Def.Scope != cgml.ScopeGlobal {
		if c.event.Actor < 0 {
			return nil, pathError(raw, "variable %q is scoped and no acting player is set", name)
		}
		owner = c.event.Actor
	}
	v, err := readVariable(c, name, owner)
	if err != nil {
		return nil, err
	}
	return descend(v, parts[1:], raw)
}

// readVariable reads a declared variable, evaluating computed variables
// against the current context on every read.
func readVariable(c *evalContext, name string, owner int) (cgml.Value, error) {
	vr, ok := c.state.Variable(name)
	if !ok {
		return nil, pathError(name, "variable %q not declared", name)
	}
	if vr.Computed() {
		return evalExpr(c, vr.Def.Computed)
	}
	v, err := vr.Get(owner)
	if err != nil {
		return nil, pathError(name, "%v", err)
	}
	if v == nil {
		return cgml.Null{}, nil
	}
	return v, nil
}

// descend walks remaining path segments through map keys and list
// indices.
func descend(v cgml.Value, parts []string, raw string) (cgml.Value, error) {
	for _, part := range parts {
		switch cur := v.(type) {
		case cgml.Map:
			next, ok := cur[part]
			if !ok {
				return nil, pathError(raw, "no entry %q", part)
			}
			v = next
		case cgml.List:
			idx, err := strconv.Atoi(part)
			if err != nil {
				return nil, pathError(raw, "cannot index a list with %q", part)
			}
			if idx < 0 || idx >= len(cur) {
				return nil, pathError(raw, "index %d out of range", idx)
			}
			v = cur[idx]
		default:
			return nil, pathError(raw, "cannot descend into %s with %q", cgml.TypeName(v), part)
		}
	}
	return v, nil
}

func playerView(p *state.Player) cgml.Map {
	return cgml.Map{
		"id":    cgml.String(p.ID),
		"index": cgml.Int(p.Index),
	}
}

func zoneView(z *state.Zone) cgml.Map {
	return cgml.Map{
		"name":       cgml.String(z.Name),
		"card_count": cgml.Int(z.Count()),
		"cards":      cardViews(z.Cards()),
	}
}

func cardViews(cards []*state.Card) cgml.List {
	views := make(cgml.List, len(cards))
	for i, c := range cards {
		views[i] = c.View()
	}
	return views
}

package engine

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/state"
)

// actionHandler applies one action atomically: it stages everything that
// can fail before the first mutation, so a failed action leaves no
// partial state behind.
type actionHandler func(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error

// actionRegistry maps action tags to handlers. Adding an action is a row
// here plus its handler; the dispatch path never changes.
var actionRegistry map[string]actionHandler

func init() {
	actionRegistry = map[string]actionHandler{
		cgml.ActionMove:         execMove,
		cgml.ActionMoveAll:      execMoveAll,
		cgml.ActionDeal:         execDeal,
		cgml.ActionDealAll:      execDealAll,
		cgml.ActionShuffle:      execShuffle,
		cgml.ActionSetVariable:  execSetVariable,
		cgml.ActionRequestInput: execRequestInput,
		cgml.ActionRejectPlay:   execRejectPlay,
		cgml.ActionReturnToHand: execReturnToHand,
		cgml.ActionEmitEvent:    execEmitEvent,
		cgml.ActionSetPhase:     execSetPhase,
		cgml.ActionEndTurn:      execEndTurn,
		cgml.ActionSetState:     execSetState,
	}
}

// executeAction runs one action and normalizes its failure into a
// RuntimeError tagged with the owning rule and action.
func (e *Engine) executeAction(ctx context.Context, c *evalContext, rule string, a cgml.ActionDef) error {
	h, ok := actionRegistry[a.Action]
	if !ok {
		return actionFailed(a.Action, "action %q not registered", a.Action)
	}
	if err := h(ctx, e, c, a); err != nil {
		var re *RuntimeError
		if errors.As(err, &re) {
			if re.Rule == "" {
				re.Rule = rule
			}
			if re.Action == "" {
				re.Action = a.Action
			}
			return re
		}
		wrapped := wrapStateError(err)
		wrapped.Rule = rule
		wrapped.Action = a.Action
		return wrapped
	}
	return nil
}

// wrapStateError maps store errors onto runtime error codes.
func wrapStateError(err error) *RuntimeError {
	var readonly *state.ReadOnlyVariableError
	if errors.As(err, &readonly) {
		return &RuntimeError{Code: ErrCodeReadOnlyVariable, Message: err.Error()}
	}
	if errors.Is(err, state.ErrFrozen) {
		return &RuntimeError{Code: ErrCodeStateFrozen, Message: err.Error()}
	}
	return &RuntimeError{Code: ErrCodeActionFailed, Message: err.Error()}
}

// resolveZoneSelector binds an action's zone parameter to a live zone.
// Accepts "zones.<name>" (and the "zone."/"game." aliases), a bare zone
// name, "player.current.<name>", "player.<seat>.<name>", and
// "ref:<binding>[.<name>]" where the binding holds a player or a zone
// name stored earlier in the effect.
func resolveZoneSelector(c *evalContext, sel string) (*state.Zone, error) {
	if ref, ok := strings.CutPrefix(sel, "ref:"); ok {
		name, rest, hasRest := strings.Cut(ref, ".")
		v, err := c.scope.lookup(name)
		if err != nil {
			return nil, err
		}
		if hasRest {
			seat, err := seatFromValue(c, v, sel)
			if err != nil {
				return nil, err
			}
			return playerZone(c, seat, rest, sel)
		}
		zoneName, ok := v.(cgml.String)
		if !ok {
			return nil, pathError(sel, "ref %q does not hold a zone name", name)
		}
		return lookupZone(c, string(zoneName), sel)
	}

	parts := strings.Split(sel, ".")
	switch parts[0] {
	case "zones", "zone", "game":
		if len(parts) < 2 {
			return nil, pathError(sel, "zone selector %q needs a zone name", sel)
		}
		return lookupZone(c, parts[1], sel)
	case "player", "players":
		if len(parts) < 3 {
			return nil, pathError(sel, "selector %q needs a seat and a zone name", sel)
		}
		seat, err := seatOf(c, parts[1], sel)
		if err != nil {
			return nil, err
		}
		name := parts[2]
		if name == "zones" && len(parts) > 3 {
			name = parts[3]
		}
		return playerZone(c, seat, name, sel)
	default:
		return lookupZone(c, parts[0], sel)
	}
}

func playerZone(c *evalContext, seat int, name, sel string) (*state.Zone, error) {
	if z, ok := c.state.Zone(state.ZoneID(name, seat)); ok {
		return z, nil
	}
	if z, ok := c.state.Zone(name); ok {
		return z, nil
	}
	return nil, pathError(sel, "no zone %q for seat %d", name, seat)
}

// resolveSeatSelector binds an action's player parameter to a seat.
func resolveSeatSelector(c *evalContext, sel string) (int, error) {
	if ref, ok := strings.CutPrefix(sel, "ref:"); ok {
		v, err := c.scope.lookup(ref)
		if err != nil {
			return 0, err
		}
		return seatFromValue(c, v, sel)
	}
	parts := strings.Split(sel, ".")
	if parts[0] == "player" || parts[0] == "players" {
		if len(parts) < 2 {
			return 0, pathError(sel, "player selector %q needs a seat", sel)
		}
		return seatOf(c, parts[1], sel)
	}
	return seatOf(c, parts[0], sel)
}

// seatFromValue maps a stored value onto a seat: an index, a player ID,
// or a player view map.
func seatFromValue(c *evalContext, v cgml.Value, sel string) (int, error) {
	switch val := v.(type) {
	case cgml.Int:
		seat := int(val)
		if seat < 0 || seat >= len(c.state.Players) {
			return 0, pathError(sel, "seat %d out of range", seat)
		}
		return seat, nil
	case cgml.String:
		for _, p := range c.state.Players {
			if p.ID == string(val) {
				return p.Index, nil
			}
		}
		return 0, pathError(sel, "no player with id %q", string(val))
	case cgml.Map:
		idx, ok := val["index"].(cgml.Int)
		if !ok {
			return 0, pathError(sel, "player view has no index")
		}
		return seatFromValue(c, idx, sel)
	default:
		return 0, pathError(sel, "%s does not identify a player", cgml.TypeName(v))
	}
}

// zoneNameOf strips a selector down to its final zone name, so "to:
// zones.hand" addresses each seat's "hand" instance in DEAL.
func zoneNameOf(sel string) string {
	if i := strings.LastIndex(sel, "."); i >= 0 {
		return sel[i+1:]
	}
	return sel
}

func evalCount(c *evalContext, e cgml.Expr, def int) (int, error) {
	if e == nil {
		return def, nil
	}
	v, err := evalExpr(c, e)
	if err != nil {
		return 0, err
	}
	n, ok := v.(cgml.Int)
	if !ok {
		return 0, typeMismatch("count", cgml.TypeName(v), "int")
	}
	return int(n), nil
}

// selectCards stages the candidate set for a move: up to count cards off
// the top of the source, keeping only those the filter accepts. Staging
// never mutates; a failing filter aborts before anything moved. count<0
// means no limit.
func selectCards(c *evalContext, from *state.Zone, count int, filter cgml.Expr) ([]*state.Card, error) {
	var picked []*state.Card
	cards := from.Cards()
	for i := len(cards) - 1; i >= 0; i-- {
		if count >= 0 && len(picked) >= count {
			break
		}
		card := cards[i]
		if filter != nil {
			sub := &evalContext{
				state: c.state,
				event: c.event,
				scope: c.scope.child("each", card.View()),
			}
			hit, err := evalCondition(sub, filter)
			if err != nil {
				return nil, err
			}
			if !hit {
				continue
			}
		}
		picked = append(picked, card)
	}
	return picked, nil
}

// moveCard commits one card move and publishes its delta.
func (e *Engine) moveCard(card *state.Card, to *state.Zone) error {
	from := card.Location()
	if err := e.state.MoveCard(card, to); err != nil {
		return err
	}
	e.emit(DeltaZone, cgml.Map{
		"card": cgml.String(card.ID),
		"from": cgml.String(from),
		"to":   cgml.String(to.ID()),
	})
	return nil
}

func execMove(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	from, err := resolveZoneSelector(c, a.From)
	if err != nil {
		return err
	}
	to, err := resolveZoneSelector(c, a.To)
	if err != nil {
		return err
	}
	count, err := evalCount(c, a.Count, 1)
	if err != nil {
		return err
	}
	// Moving zero cards is a no-op, not an error.
	picked, err := selectCards(c, from, count, a.Filter)
	if err != nil {
		return err
	}
	for _, card := range picked {
		if err := e.moveCard(card, to); err != nil {
			return err
		}
	}
	if a.StoreAs != "" {
		c.scope.store(a.StoreAs, cardViews(picked))
	}
	return nil
}

func execMoveAll(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	from, err := resolveZoneSelector(c, a.From)
	if err != nil {
		return err
	}
	to, err := resolveZoneSelector(c, a.To)
	if err != nil {
		return err
	}
	picked, err := selectCards(c, from, -1, a.Filter)
	if err != nil {
		return err
	}
	for _, card := range picked {
		if err := e.moveCard(card, to); err != nil {
			return err
		}
	}
	return nil
}

// execDeal deals count rounds off the source, one card per seat per
// round. Candidates go through the same staging as MOVE, so a filter
// restricts what gets dealt. A source with no eligible cards left ends
// the deal quietly.
func execDeal(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	from, err := resolveZoneSelector(c, a.From)
	if err != nil {
		return err
	}
	count, err := evalCount(c, a.Count, 1)
	if err != nil {
		return err
	}
	toName := zoneNameOf(a.To)
	dests, err := perSeatZones(c, toName, a.To)
	if err != nil {
		return err
	}
	for round := 0; round < count; round++ {
		for seat := range e.state.Players {
			picked, err := selectCards(c, from, 1, a.Filter)
			if err != nil {
				return err
			}
			if len(picked) == 0 {
				return nil
			}
			if err := e.moveCard(picked[0], dests[seat]); err != nil {
				return err
			}
		}
	}
	return nil
}

// execDealAll distributes the whole deck round-robin across seats.
func execDealAll(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	from, err := deckZone(c, a.FromDeck)
	if err != nil {
		return err
	}
	toName := zoneNameOf(a.To)
	dests, err := perSeatZones(c, toName, a.To)
	if err != nil {
		return err
	}
	seat := 0
	for from.Count() > 0 {
		dest := dests[seat%len(dests)]
		card, err := e.state.TakeTop(from, dest)
		if err != nil {
			return err
		}
		e.emit(DeltaZone, cgml.Map{
			"card": cgml.String(card.ID),
			"from": cgml.String(from.ID()),
			"to":   cgml.String(dest.ID()),
		})
		seat++
	}
	return nil
}

// perSeatZones stages the per-seat destination instances for a deal.
func perSeatZones(c *evalContext, name, sel string) ([]*state.Zone, error) {
	dests := make([]*state.Zone, len(c.state.Players))
	for i := range c.state.Players {
		z, ok := c.state.Zone(state.ZoneID(name, i))
		if !ok {
			return nil, pathError(sel, "no per-player zone %q for seat %d", name, i)
		}
		dests[i] = z
	}
	return dests, nil
}

// deckZone finds the shared zone declared with of_deck naming the deck.
func deckZone(c *evalContext, deck string) (*state.Zone, error) {
	for _, zd := range c.state.Def.Components.Zones {
		if zd.OfDeck == deck && !zd.PerPlayer {
			if z, ok := c.state.Zone(zd.Name); ok {
				return z, nil
			}
		}
	}
	return nil, pathError(deck, "no zone holds deck %q", deck)
}

func execShuffle(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	z, err := resolveZoneSelector(c, a.Target)
	if err != nil {
		return err
	}
	if err := e.state.Shuffle(z, e.rng); err != nil {
		return err
	}
	order := make(cgml.List, 0, z.Count())
	for _, card := range z.Cards() {
		order = append(order, cgml.String(card.ID))
	}
	e.emit(DeltaShuffle, cgml.Map{
		"zone":  cgml.String(z.ID()),
		"order": order,
	})
	return nil
}

func execSetVariable(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	vr, ok := c.state.Variable(a.Name)
	if !ok {
		return actionFailed(a.Action, "variable %q not declared", a.Name)
	}
	v, err := evalExpr(c, a.Value)
	if err != nil {
		return err
	}
	owner := -1
	if vr.Def.Scope != cgml.ScopeGlobal {
		if a.Owner != "" {
			owner, err = resolveSeatSelector(c, a.Owner)
			if err != nil {
				return err
			}
		} else {
			if c.event.Actor < 0 {
				return actionFailed(a.Action, "variable %q is scoped and no acting player is set", a.Name)
			}
			owner = c.event.Actor
		}
	}
	if err := e.state.SetVariable(a.Name, owner, v); err != nil {
		return wrapStateError(err)
	}
	e.emit(DeltaVariable, cgml.Map{
		"name":  cgml.String(a.Name),
		"owner": cgml.Int(owner),
		"value": v,
	})
	if a.StoreAs != "" {
		c.scope.store(a.StoreAs, v)
	}
	return nil
}

// execRequestInput suspends the effect sequence on a synchronous call to
// the input provider. Cancellation abandons the rest of the effect; the
// store_as binding stays unbound so dependent actions fail closed.
func execRequestInput(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	seat, err := resolveSeatSelector(c, a.Player)
	if err != nil {
		return err
	}
	var options cgml.List
	if a.Options != nil {
		v, err := evalExpr(c, a.Options)
		if err != nil {
			return err
		}
		list, ok := v.(cgml.List)
		if !ok {
			return typeMismatch(a.Action, cgml.TypeName(v), "list")
		}
		options = list
	}

	choice, err := e.input.RequestInput(ctx, InputRequest{
		Player:  seat,
		Prompt:  a.Prompt,
		Options: options,
	})
	if err != nil {
		// Copy rather than return a shared error value: the caller tags
		// the error with rule and action in place.
		code := ErrCodeInputCancelled
		msg := err.Error()
		var re *RuntimeError
		if errors.As(err, &re) {
			code = re.Code
			msg = re.Message
		}
		return &RuntimeError{Code: code, Message: msg}
	}

	c.scope.store(a.StoreAs, choice)
	e.emit(DeltaInput, cgml.Map{
		"player":   cgml.Int(seat),
		"store_as": cgml.String(a.StoreAs),
		"value":    choice,
	})
	return nil
}

// playedCard resolves the card a reversal action targets, defaulting to
// the played card on the event.
func playedCard(c *evalContext, a cgml.ActionDef) (cgml.Map, error) {
	path := a.Card
	if path == "" {
		path = "card.played"
	}
	v, err := resolvePath(c, path)
	if err != nil {
		return nil, err
	}
	view, ok := v.(cgml.Map)
	if !ok {
		return nil, pathError(path, "%q is not a card", path)
	}
	return view, nil
}

// execRejectPlay vetoes a play attempt by announcing the rejection. It
// does not halt the effect; a rule that wants the card back pairs it
// with RETURN_TO_HAND.
func execRejectPlay(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	view, err := playedCard(c, a)
	if err != nil {
		return err
	}
	e.queue.Enqueue(Event{
		Name:  "on.play.rejected",
		Actor: c.event.Actor,
		Payload: cgml.Map{
			"card":   view,
			"player": cgml.Int(c.event.Actor),
		},
	})
	return nil
}

// execReturnToHand moves the targeted card back to the acting player's
// hand (or the zone named by "to").
func execReturnToHand(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	view, err := playedCard(c, a)
	if err != nil {
		return err
	}
	id, ok := view["id"].(cgml.String)
	if !ok {
		return actionFailed(a.Action, "card view has no id")
	}
	card, ok := c.state.Card(string(id))
	if !ok {
		return actionFailed(a.Action, "no card %q", string(id))
	}

	handName := "hand"
	if a.To != "" {
		handName = zoneNameOf(a.To)
	}
	if c.event.Actor < 0 {
		return actionFailed(a.Action, "no acting player to return the card to")
	}
	dest, err := playerZone(c, c.event.Actor, handName, handName)
	if err != nil {
		return err
	}
	return e.moveCard(card, dest)
}

// execEmitEvent evaluates the payload expressions in sorted key order
// and enqueues the event for the next breadth-first round.
func execEmitEvent(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	payload := cgml.Map{}
	keys := make([]string, 0, len(a.Payload))
	for k := range a.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := evalExpr(c, a.Payload[k])
		if err != nil {
			return err
		}
		payload[k] = v
	}
	e.queue.Enqueue(Event{Name: a.Event, Actor: c.event.Actor, Payload: payload})
	return nil
}

func execSetPhase(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	if err := e.setPhase(a.Phase); err != nil {
		return wrapStateError(err)
	}
	return nil
}

func execEndTurn(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	if err := e.endTurn(); err != nil {
		return wrapStateError(err)
	}
	return nil
}

func execSetState(ctx context.Context, e *Engine, c *evalContext, a cgml.ActionDef) error {
	if _, ok := e.stateDef(a.State); !ok {
		return actionFailed(a.Action, "state %q not declared", a.State)
	}
	if err := e.fireTransition(ctx, e.state.State, a.State); err != nil {
		return wrapStateError(err)
	}
	return nil
}

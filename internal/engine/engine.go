package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/state"
)

// TokenGenerator produces the game token identifying one run in traces.
// Implemented by UUIDGenerator (production) and FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// DefaultSeed seeds the shuffle source when the caller does not supply
// one. Runs are deterministic either way; the seed is recorded with the
// trace so replays reuse it.
const DefaultSeed int64 = 1

// Engine drives one game: it owns the state store, the event queue, the
// logical clock, and the shuffle source, and runs every mutation on a
// single goroutine.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Run(), Tick(), Start(): exactly one goroutine
//   - Rule evaluation order never changes after construction
type Engine struct {
	def   *cgml.GameDef
	state *state.GameState
	clock *Clock
	queue *eventQueue
	rng   *rand.Rand
	seed  int64
	token string
	input InputProvider

	observers []Observer

	// phaseIdx tracks the position in the current state's turn cycle.
	phaseIdx int
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSeed fixes the shuffle seed. Replay passes the recorded seed here.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithInput sets the player-input collaborator.
func WithInput(p InputProvider) Option {
	return func(e *Engine) {
		e.input = p
	}
}

// WithObserver registers a delta stream consumer. Observers are invoked
// in registration order.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithToken fixes the game token. Tests pass a FixedGenerator for stable
// golden traces.
func WithToken(gen TokenGenerator) Option {
	return func(e *Engine) {
		e.token = gen.Generate()
	}
}

// WithClock replaces the logical clock, used by replay to resume from a
// recorded position.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New constructs an engine for a compiled definition and player count.
// The game starts when Start runs the setup sequence.
func New(def *cgml.GameDef, playerCount int, opts ...Option) (*Engine, error) {
	s, err := state.NewGame(def, playerCount)
	if err != nil {
		return nil, fmt.Errorf("build game state: %w", err)
	}

	e := &Engine{
		def:   def,
		state: s,
		clock: NewClock(),
		queue: newEventQueue(),
		seed:  DefaultSeed,
		token: UUIDGenerator{}.Generate(),
		input: NoInput{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rng = rand.New(rand.NewSource(e.seed))
	return e, nil
}

// State exposes the live store for read access (presentation, tests).
// Callers must not retain it across engine calls on other goroutines.
func (e *Engine) State() *state.GameState {
	return e.state
}

// Token returns the game token identifying this run.
func (e *Engine) Token() string {
	return e.token
}

// Seed returns the shuffle seed in effect for this run.
func (e *Engine) Seed() int64 {
	return e.seed
}

// Clock exposes the logical clock, read by trace writers.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Post enqueues an external command event for the given actor seat.
// Thread-safe; returns false once the engine has stopped.
func (e *Engine) Post(name string, actor int, payload cgml.Map) bool {
	if payload == nil {
		payload = cgml.Map{}
	}
	return e.queue.Enqueue(Event{Name: name, Actor: actor, Payload: payload, External: true})
}

// Start runs the setup sequence and enters the initial state, then
// drains everything those steps enqueued. Must be called once, before
// Run or Tick.
func (e *Engine) Start(ctx context.Context) error {
	slog.Info("game starting",
		"game", e.def.Meta.Name,
		"token", e.token,
		"players", len(e.state.Players),
		"seed", e.seed,
	)

	setupCtx := &evalContext{state: e.state, event: Event{Actor: -1}, scope: newScope()}
	for _, a := range e.def.Setup {
		if err := e.executeAction(ctx, setupCtx, "setup", a); err != nil {
			return fmt.Errorf("setup action %s: %w", a.Action, err)
		}
	}

	if err := e.enterState(ctx, e.def.Flow.InitialState); err != nil {
		return err
	}
	if err := e.drain(ctx); err != nil {
		return err
	}
	// A state with no turn cycle enqueues nothing on entry, so a
	// transition already true after setup would otherwise wait for an
	// external event that may never come.
	if err := e.checkTransitions(ctx); err != nil {
		return err
	}
	return e.drain(ctx)
}

// Tick drains every queued event, re-checking transitions after each
// one; when the drain fires nothing and the current state declares a
// turn cycle, the phase advances implicitly. Used by simulation loops:
// repeat until Done.
func (e *Engine) Tick(ctx context.Context) error {
	before := e.clock.Current()
	if err := e.drain(ctx); err != nil {
		return err
	}
	if e.state.Frozen() {
		return nil
	}
	// Implicit phase advancement only when no rule or action moved the
	// machine during this tick.
	if e.clock.Current() == before {
		if err := e.advancePhase(ctx); err != nil {
			return err
		}
		return e.drain(ctx)
	}
	return nil
}

// Done reports whether a terminal state has been reached.
func (e *Engine) Done() bool {
	return e.state.Frozen()
}

// Result returns the terminal evaluator's output, Null until Done.
func (e *Engine) Result() cgml.Value {
	return e.state.Result()
}

// Run is the single-writer loop for interactive use: it drains the
// queue, waits for posted events, and returns when the context is
// cancelled, Stop is called, or the game reaches a terminal state.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := e.drain(ctx); err != nil {
			return err
		}
		if e.state.Frozen() {
			slog.Info("game over", "token", e.token)
			return nil
		}

		select {
		case <-ctx.Done():
			e.queue.Close()
			return ctx.Err()
		case <-e.queue.Wait():
			if e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed", "token", e.token)
				return nil
			}
		}
	}
}

// Stop closes the event queue, which makes Run return after the current
// event finishes.
func (e *Engine) Stop() {
	e.queue.Close()
}

// drain dispatches queued events until the queue is empty, checking
// transitions after every event. Events enqueued by effects run after
// everything already queued (breadth-first).
func (e *Engine) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return nil
		}
		e.dispatch(ctx, ev)
		if err := e.checkTransitions(ctx); err != nil {
			return err
		}
	}
}

// dispatch runs one event against every rule whose trigger matches, in
// declaration order. A rule's failure abandons that rule's remaining
// actions only; the loop proceeds to the next matching rule.
func (e *Engine) dispatch(ctx context.Context, ev Event) {
	ev.Seq = e.clock.Next()
	e.emitSeq(ev.Seq, DeltaEvent, cgml.Map{
		"name":     cgml.String(ev.Name),
		"actor":    cgml.Int(ev.Actor),
		"payload":  ev.Payload,
		"external": cgml.Bool(ev.External),
	})
	slog.Debug("dispatching event", "name", ev.Name, "actor", ev.Actor, "seq", ev.Seq)

	for i := range e.def.Rules {
		rule := &e.def.Rules[i]
		if !cgml.MatchTrigger(rule.Trigger, ev.Name) {
			continue
		}
		c := &evalContext{state: e.state, event: ev, scope: newScope()}

		hit, err := evalCondition(c, rule.Condition)
		if err != nil {
			e.warn(rule.ID, err)
			continue
		}
		if !hit {
			continue
		}

		slog.Debug("rule fired", "rule", rule.ID, "event", ev.Name)
		for _, a := range rule.Effect {
			if err := e.executeAction(ctx, c, rule.ID, a); err != nil {
				e.warn(rule.ID, err)
				break
			}
			if e.state.Frozen() {
				return
			}
		}
	}
}

// emit stamps and publishes a delta.
func (e *Engine) emit(kind DeltaKind, payload cgml.Map) {
	e.emitSeq(e.clock.Next(), kind, payload)
}

func (e *Engine) emitSeq(seq int64, kind DeltaKind, payload cgml.Map) {
	d := Delta{Seq: seq, Kind: kind, Payload: payload}
	for _, o := range e.observers {
		o.OnDelta(d)
	}
}

// warn surfaces a contained failure on the output stream. Nothing is
// swallowed: every contained error becomes an observable warning delta.
func (e *Engine) warn(rule string, err error) {
	code := CodeOf(err)
	if code == "" {
		code = ErrCodeActionFailed
	}
	slog.Warn("rule failure contained", "rule", rule, "code", string(code), "err", err)
	e.emit(DeltaWarning, cgml.Map{
		"rule":    cgml.String(rule),
		"code":    cgml.String(string(code)),
		"message": cgml.String(err.Error()),
	})
}

package engine

import (
	"github.com/cardlang/cgml/internal/cgml"
)

// DeltaKind labels the variants of the output stream.
type DeltaKind string

const (
	// DeltaEvent records an event entering dispatch.
	DeltaEvent DeltaKind = "event"

	// DeltaZone records a card changing zones.
	DeltaZone DeltaKind = "zone"

	// DeltaShuffle records a zone permutation.
	DeltaShuffle DeltaKind = "shuffle"

	// DeltaVariable records a variable write.
	DeltaVariable DeltaKind = "variable"

	// DeltaFSM records a state, phase, or turn-owner change.
	DeltaFSM DeltaKind = "fsm"

	// DeltaInput records a supplied player decision, replayed verbatim
	// when a trace is re-run.
	DeltaInput DeltaKind = "input"

	// DeltaWarning records a contained rule or action failure.
	DeltaWarning DeltaKind = "warning"

	// DeltaResult records the terminal result, emitted exactly once.
	DeltaResult DeltaKind = "result"
)

// Delta is one state-change notification. The payload is a value tree so
// it canonicalizes and hashes stably for traces and replay comparison.
type Delta struct {
	Seq     int64
	Kind    DeltaKind
	Payload cgml.Map
}

// Hash returns the content hash of the delta, covering sequence, kind
// and payload. Replay verifies streams hash-for-hash with this.
func (d Delta) Hash() (string, error) {
	return cgml.DeltaHash(cgml.Map{
		"seq":     cgml.Int(d.Seq),
		"kind":    cgml.String(string(d.Kind)),
		"payload": d.Payload,
	})
}

// Observer receives the delta stream. Called synchronously from the
// engine loop in emission order; implementations must not block for long
// and must not call back into the engine.
type Observer interface {
	OnDelta(d Delta)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(d Delta)

// OnDelta implements Observer.
func (f ObserverFunc) OnDelta(d Delta) { f(d) }

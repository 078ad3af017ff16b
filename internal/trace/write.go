package trace

import (
	"context"
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/engine"
)

// Header identifies one recorded run: everything a replay needs to
// reconstruct the engine besides the document itself.
type Header struct {
	Token         string
	Name          string
	Players       int
	Seed          int64
	DocHash       string
	EngineVersion string
	SpecVersion   string
}

// WriteHeader records a run header. Idempotent on token.
func (s *Store) WriteHeader(ctx context.Context, h Header) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (token, name, players, seed, doc_hash, engine_version, spec_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, h.Token, h.Name, h.Players, h.Seed, h.DocHash, h.EngineVersion, h.SpecVersion)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WriteDelta records one delta for a run. Payloads are serialized to
// canonical JSON, so the stored hash is recomputable from the row.
// Idempotent on (token, seq).
func (s *Store) WriteDelta(ctx context.Context, token string, d engine.Delta) error {
	payload, err := cgml.MarshalCanonical(d.Payload)
	if err != nil {
		return fmt.Errorf("write delta %d: %w", d.Seq, err)
	}
	hash, err := d.Hash()
	if err != nil {
		return fmt.Errorf("write delta %d: %w", d.Seq, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deltas (token, seq, kind, payload, hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token, seq) DO NOTHING
	`, token, d.Seq, string(d.Kind), string(payload), hash)
	if err != nil {
		return fmt.Errorf("write delta %d: %w", d.Seq, err)
	}
	return nil
}

// Recorder adapts the store to the engine's observer interface. Writes
// happen synchronously on the engine loop, which is the single writer;
// the first write error sticks and is reported by Err.
type Recorder struct {
	store *Store
	token string
	ctx   context.Context
	err   error
}

// NewRecorder creates an observer persisting deltas for one run.
func NewRecorder(ctx context.Context, store *Store, token string) *Recorder {
	return &Recorder{store: store, token: token, ctx: ctx}
}

// OnDelta implements engine.Observer.
func (r *Recorder) OnDelta(d engine.Delta) {
	if r.err != nil {
		return
	}
	r.err = r.store.WriteDelta(r.ctx, r.token, d)
}

// Err returns the first write failure, or nil.
func (r *Recorder) Err() error {
	return r.err
}

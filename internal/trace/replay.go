package trace

import (
	"context"
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/engine"
)

// Report is the outcome of a replay verification.
type Report struct {
	Token    string
	Recorded int
	Replayed int

	// DivergedAt is the sequence number of the first hash mismatch, or
	// -1 when the streams match hash-for-hash.
	DivergedAt int64
}

// Match reports whether the replayed stream reproduced the recording.
func (r Report) Match() bool {
	return r.DivergedAt < 0 && r.Recorded == r.Replayed
}

func (r Report) String() string {
	if r.Match() {
		return fmt.Sprintf("replay %s: %d deltas verified", r.Token, r.Recorded)
	}
	if r.DivergedAt >= 0 {
		return fmt.Sprintf("replay %s: diverged at seq %d", r.Token, r.DivergedAt)
	}
	return fmt.Sprintf("replay %s: recorded %d deltas, replayed %d", r.Token, r.Recorded, r.Replayed)
}

// scriptedInputs feeds recorded input decisions back in order.
type scriptedInputs struct {
	values []cgml.Value
	idx    int
}

func (s *scriptedInputs) RequestInput(context.Context, engine.InputRequest) (cgml.Value, error) {
	if s.idx >= len(s.values) {
		return nil, engine.ErrInputCancelled
	}
	v := s.values[s.idx]
	s.idx++
	return v, nil
}

// externalEvent is a recorded command to re-inject at its original
// clock position.
type externalEvent struct {
	seq     int64
	name    string
	actor   int
	payload cgml.Map
}

// Replay re-runs a document against a recorded trace: same seed, same
// token, recorded inputs and recorded external commands at their
// original positions, and compares the produced stream hash-for-hash
// with the stored one.
//
// The definition passed in must be compiled from the same document; a
// doc hash mismatch fails before anything runs.
func Replay(ctx context.Context, store *Store, token string, def *cgml.GameDef) (Report, error) {
	header, err := store.ReadHeader(ctx, token)
	if err != nil {
		return Report{}, err
	}
	if header.DocHash != def.DocHash {
		return Report{}, fmt.Errorf("replay %s: document hash %s does not match recorded %s",
			token, def.DocHash, header.DocHash)
	}
	recorded, err := store.ReadDeltas(ctx, token)
	if err != nil {
		return Report{}, err
	}

	inputs := &scriptedInputs{}
	var externals []externalEvent
	for _, rec := range recorded {
		switch rec.Kind {
		case engine.DeltaInput:
			inputs.values = append(inputs.values, rec.Payload["value"])
		case engine.DeltaEvent:
			if rec.Payload["external"] != cgml.Bool(true) {
				continue
			}
			actor, _ := rec.Payload["actor"].(cgml.Int)
			name, _ := rec.Payload["name"].(cgml.String)
			payload, _ := rec.Payload["payload"].(cgml.Map)
			externals = append(externals, externalEvent{
				seq:     rec.Seq,
				name:    string(name),
				actor:   int(actor),
				payload: payload,
			})
		}
	}

	var replayed []engine.Delta
	e, err := engine.New(def, header.Players,
		engine.WithSeed(header.Seed),
		engine.WithToken(engine.NewFixedGenerator(header.Token)),
		engine.WithInput(inputs),
		engine.WithObserver(engine.ObserverFunc(func(d engine.Delta) {
			replayed = append(replayed, d)
		})),
	)
	if err != nil {
		return Report{}, fmt.Errorf("replay %s: %w", token, err)
	}

	if err := e.Start(ctx); err != nil {
		return Report{}, fmt.Errorf("replay %s: %w", token, err)
	}

	// Drive the run the way it originally ran: re-post each external
	// command when the clock reaches its recorded position, tick
	// otherwise, and stop once the stream is as long as the recording.
	limit := 2*len(recorded) + 100
	for step := 0; step < limit; step++ {
		if len(replayed) >= len(recorded) || e.Done() && len(externals) == 0 {
			break
		}
		if len(externals) > 0 && e.Clock().Current() >= externals[0].seq-1 {
			next := externals[0]
			externals = externals[1:]
			e.Post(next.name, next.actor, next.payload)
		}
		if err := e.Tick(ctx); err != nil {
			return Report{}, fmt.Errorf("replay %s: %w", token, err)
		}
	}

	report := Report{Token: token, Recorded: len(recorded), Replayed: len(replayed), DivergedAt: -1}
	for i, rec := range recorded {
		if i >= len(replayed) {
			break
		}
		hash, err := replayed[i].Hash()
		if err != nil {
			return Report{}, fmt.Errorf("replay %s: hash delta %d: %w", token, replayed[i].Seq, err)
		}
		if hash != rec.Hash {
			report.DivergedAt = rec.Seq
			break
		}
	}
	return report, nil
}

package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/engine"
)

// ErrNotFound reports a token with no recorded run.
var ErrNotFound = errors.New("trace: run not found")

// Recorded is one stored delta with its persisted hash.
type Recorded struct {
	Seq     int64
	Kind    engine.DeltaKind
	Payload cgml.Map
	Hash    string
}

// ReadHeader loads the header for a run token.
func (s *Store) ReadHeader(ctx context.Context, token string) (Header, error) {
	var h Header
	err := s.db.QueryRowContext(ctx, `
		SELECT token, name, players, seed, doc_hash, engine_version, spec_version
		FROM games WHERE token = ?
	`, token).Scan(&h.Token, &h.Name, &h.Players, &h.Seed, &h.DocHash, &h.EngineVersion, &h.SpecVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Header{}, fmt.Errorf("%w: %s", ErrNotFound, token)
	}
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	return h, nil
}

// LatestToken returns the most recently created run token.
func (s *Store) LatestToken(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `
		SELECT token FROM games ORDER BY created_at DESC, token DESC LIMIT 1
	`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest token: %w", err)
	}
	return token, nil
}

// ReadDeltas loads the full recorded stream for a run in sequence order.
// Returns an empty slice, not nil, for a run with no deltas.
func (s *Store) ReadDeltas(ctx context.Context, token string) ([]Recorded, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, payload, hash
		FROM deltas
		WHERE token = ?
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query deltas: %w", err)
	}
	defer rows.Close()

	out := []Recorded{}
	for rows.Next() {
		var (
			rec     Recorded
			kind    string
			payload string
		)
		if err := rows.Scan(&rec.Seq, &kind, &payload, &rec.Hash); err != nil {
			return nil, fmt.Errorf("scan delta: %w", err)
		}
		rec.Kind = engine.DeltaKind(kind)
		rec.Payload, err = cgml.UnmarshalMap([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("delta %d: %w", rec.Seq, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deltas: %w", err)
	}
	return out, nil
}

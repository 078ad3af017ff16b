package engine

import (
	"context"

	"github.com/cardlang/cgml/internal/cgml"
)

// InputRequest describes one REQUEST_INPUT waiting on an external
// decision.
type InputRequest struct {
	// Player is the seat the decision is requested from.
	Player int

	// Prompt is the authored prompt text.
	Prompt string

	// Options holds the evaluated option values, when the action
	// declared any. An empty list means free-form input.
	Options cgml.List
}

// InputProvider supplies player decisions. Called synchronously from the
// engine loop, which suspends the current effect sequence until the call
// returns; nothing else mutates state while it waits.
//
// Returning ErrInputCancelled (or any error) abandons the remainder of
// the effect sequence: the store_as binding stays unbound, so dependent
// actions fail with an unbound reference instead of running on garbage.
type InputProvider interface {
	RequestInput(ctx context.Context, req InputRequest) (cgml.Value, error)
}

// ErrInputCancelled is returned by providers to signal the player backed
// out of a pending decision.
var ErrInputCancelled = &RuntimeError{
	Code:    ErrCodeInputCancelled,
	Message: "input request cancelled",
}

// NoInput rejects every request. The default provider for documents that
// never reach a REQUEST_INPUT, and a safe fallback for those that do.
type NoInput struct{}

// RequestInput implements InputProvider.
func (NoInput) RequestInput(context.Context, InputRequest) (cgml.Value, error) {
	return nil, ErrInputCancelled
}

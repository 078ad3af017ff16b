package engine

import (
	"errors"
	"fmt"
)

// RuntimeErrorCode categorizes errors raised while evaluating expressions
// or executing actions.
type RuntimeErrorCode string

const (
	// ErrCodePathUnresolved indicates a structurally valid path that does
	// not resolve against the current game state.
	ErrCodePathUnresolved RuntimeErrorCode = "PATH_UNRESOLVED"

	// ErrCodeUnboundRef indicates a ref: lookup of a scratch binding that
	// no prior action in the effect sequence stored.
	ErrCodeUnboundRef RuntimeErrorCode = "UNBOUND_REF"

	// ErrCodeTypeMismatch indicates a comparison across semantic types.
	ErrCodeTypeMismatch RuntimeErrorCode = "TYPE_MISMATCH"

	// ErrCodeArity indicates an operator applied to the wrong operand count.
	ErrCodeArity RuntimeErrorCode = "ARITY"

	// ErrCodeEmptyAggregation indicates max/min over an empty list.
	ErrCodeEmptyAggregation RuntimeErrorCode = "EMPTY_AGGREGATION"

	// ErrCodeActionFailed indicates an action that could not apply. The
	// action left no partial mutation behind.
	ErrCodeActionFailed RuntimeErrorCode = "ACTION_FAILED"

	// ErrCodeReadOnlyVariable indicates a write to a computed variable.
	ErrCodeReadOnlyVariable RuntimeErrorCode = "READONLY_VARIABLE"

	// ErrCodeInputCancelled indicates the input provider cancelled a
	// REQUEST_INPUT; the remainder of the effect sequence is abandoned.
	ErrCodeInputCancelled RuntimeErrorCode = "INPUT_CANCELLED"

	// ErrCodeStateFrozen indicates a mutation after terminal entry.
	ErrCodeStateFrozen RuntimeErrorCode = "STATE_FROZEN"
)

// RuntimeError is an error contained to the rule that raised it. The
// dispatch loop reports it as a warning delta and moves on; it never
// brings the engine down.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Rule identifies the rule whose effect raised the error, when known.
	Rule string

	// Action identifies the action tag, for executor errors.
	Action string

	// Path is the offending path or ref, for resolution errors.
	Path string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Rule != "" && e.Action != "":
		return fmt.Sprintf("%s: %s (rule=%s, action=%s)", e.Code, e.Message, e.Rule, e.Action)
	case e.Rule != "":
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.Rule)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf extracts the runtime error code from an error chain, or "" when
// the error is not a RuntimeError.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsPathUnresolved reports whether err is a path resolution failure.
func IsPathUnresolved(err error) bool {
	return CodeOf(err) == ErrCodePathUnresolved
}

// IsUnboundRef reports whether err is an unbound scratch reference.
func IsUnboundRef(err error) bool {
	return CodeOf(err) == ErrCodeUnboundRef
}

// IsTypeMismatch reports whether err is a cross-type comparison.
func IsTypeMismatch(err error) bool {
	return CodeOf(err) == ErrCodeTypeMismatch
}

// IsInputCancelled reports whether err is a cancelled input request.
func IsInputCancelled(err error) bool {
	return CodeOf(err) == ErrCodeInputCancelled
}

func pathError(path, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePathUnresolved,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func unboundRef(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnboundRef,
		Message: fmt.Sprintf("ref %q has no stored binding in this effect sequence", name),
		Path:    "ref:" + name,
	}
}

func typeMismatch(op string, left, right string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTypeMismatch,
		Message: fmt.Sprintf("operator %q cannot compare %s with %s", op, left, right),
	}
}

func actionFailed(action, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeActionFailed,
		Message: fmt.Sprintf(format, args...),
		Action:  action,
	}
}

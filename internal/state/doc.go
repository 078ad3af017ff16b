// Package state holds the canonical mutable model of a running game:
// players, zones, cards, variables, and the FSM position.
//
// INVARIANTS:
//
// Every card is in exactly one zone at all times. Cards enter and leave
// zones only through Take/Put on this package's types, which maintain the
// card's location field; CheckCardInvariant audits the whole store and is
// run by tests (and by the engine loop in debug mode).
//
// Zone ordering (lifo/fifo/unordered) is enforced on every mutation, not
// just at creation: Put places a card according to the zone's declared
// ordering, Take always removes from the top.
//
// Scoped variables exist once per owning player; reading a per-player
// variable without an owner context is an error surfaced by the caller
// (the engine's path resolver).
//
// Once the FSM enters a terminal state the store freezes: every mutating
// method fails with ErrFrozen while reads keep working for result
// reporting.
package state

// Package engine executes a compiled game definition as a live,
// deterministic simulation.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All state mutation happens in one goroutine. Events (player commands,
// phase entries, emitted rule events) are enqueued to a FIFO queue; the
// loop dequeues one event at a time, matches rules in declaration order,
// evaluates their conditions, and runs their effects. Nothing else touches
// the game state.
//
// Event Processing Flow:
//  1. External commands and FSM notifications enter the FIFO queue.
//  2. The loop dequeues one event and stamps it from the logical clock.
//  3. Every rule whose trigger matches runs in declaration order.
//  4. Effects mutate state through the action executor; actions may
//     enqueue further events, which run after all currently queued
//     events (breadth-first, never interleaved mid-effect).
//  5. After each event the FSM driver re-checks transitions for the
//     current state, first declared condition wins.
//
// Determinism rules:
//   - Rules and transitions evaluate in declaration order, always.
//   - Ordering comes from the logical clock, never wall time.
//   - The only randomness is the shuffle source, seeded once per run and
//     recorded so a replay reproduces the identical stream.
//   - REQUEST_INPUT is a synchronous call into the InputProvider from the
//     loop goroutine; while it waits, nothing else mutates state.
//
// Every observable mutation leaves the engine as a Delta on the output
// stream; contained rule failures surface as warning deltas, never as a
// crashed loop.
package engine

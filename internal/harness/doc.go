// Package harness runs conformance scenarios against game documents.
//
// A scenario loads a document, plays a scripted sequence of commands
// against the engine, and asserts on the produced delta stream and the
// final game state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: war_deck_exhaustion
//	description: "Game ends when the draw deck runs out"
//	document: war.yaml
//	players: 2
//	seed: 42
//	inputs:
//	  - 1
//	commands:
//	  - event: action.draw
//	    actor: 0
//	ticks: 10
//	assertions:
//	  - type: delta_contains
//	    kind: zone
//	    payload: { from: deck, to: discard }
//	  - type: delta_order
//	    events: [on.phase.draw, on.play.rejected]
//	  - type: final_zone
//	    zone: discard
//	    count: 52
//	  - type: final_variable
//	    variable: round
//	    value: 3
//	  - type: terminal_result
//	    value: "p1 wins"
//
// # Assertion Types
//
//   - delta_contains: a delta of the given kind with a payload superset
//     of the given fields appears in the stream
//   - delta_order: the named events are dispatched in the given order,
//     not necessarily consecutively
//   - delta_count: exactly N deltas of the given kind appear
//   - final_zone: a zone holds exactly N cards at the end
//   - final_variable: a variable holds the given value at the end
//   - terminal_result: the game reached a terminal state with this result
//
// # Deterministic Execution
//
// Every scenario runs with a fixed seed, a fixed game token, and scripted
// inputs, so the delta stream is identical across runs and can be compared
// against golden snapshots.
package harness

// Package cgml defines the typed model shared by the whole runtime: the
// constrained value system, the compiled game definition (components, flow,
// rules), expression trees, and canonical serialization for content hashing.
//
// VALUE SYSTEM:
//
// Values are a sealed sum type: Null, String, Int, Bool, List, Map. There is
// no float variant - all card-game numerics are integral, and excluding
// floats keeps canonical serialization and replay hashing exact.
//
// DETERMINISM:
//
// Canonical JSON (RFC 8785 key ordering, NFC-normalized strings, no HTML
// escaping) is the only serialization used for content hashing. Two runs that
// produce the same delta stream produce byte-identical canonical encodings,
// which is what the replay verifier compares.
//
// Definitions compiled from a merged document are immutable after compilation.
// Only the game state mutates at runtime.
package cgml

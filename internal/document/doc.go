// Package document loads CGML documents and resolves their modularity
// directives into a single self-consistent tree.
//
// Two directives are supported:
//
//   - !include <ref>  - literal splice: the referenced document's tree
//     replaces the directive node in place.
//   - inherits: [ref, ...] - the referenced documents are treated as bases,
//     resolved depth-first (a base's own inherits resolve before it is used),
//     folded left to right, and the current document is merged on top.
//
// Merge policy: maps merge key-wise and recursively; scalar and list fields
// in the child replace the base, except the additive list fields
// (components.zones, components.variables, rules) which append and then
// de-duplicate by name/id - a child entry wholly overrides a base entry
// with the same key.
//
// Cycles through either directive are fatal (CYCLIC_IMPORT), detected with
// an active-reference stack during recursive resolution. Fetching is
// delegated to a Resolver so the engine never touches the filesystem or
// network directly.
package document

package cgml

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the constrained runtime value types.
// Only Null, String, Int, Bool, List, and Map implement it.
// There is deliberately no float variant - floats break replay determinism.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an absent value (e.g., top_card of an empty zone).
type Null struct{}

func (Null) value() {}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// List represents an ordered sequence of values.
type List []Value

func (List) value() {}

// Map represents string-keyed values (event payloads, card views).
// Use SortedKeys for deterministic iteration.
type Map map[string]Value

func (Map) value() {}

// TypeName returns the semantic type name used in diagnostics
// ("null", "string", "int", "bool", "list", "map").
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nil"
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Equal reports deep equality of two values.
// Values of different types are never equal (no coercion).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which produces a DIFFERENT order
// for strings outside the BMP.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as required by
// RFC 8785 canonical JSON.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}

// FromGo converts a decoded YAML/JSON value into a Value.
// Floats are rejected; integers out of int64 range are rejected.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > 1<<62 {
			return nil, fmt.Errorf("integer out of range: %d", val)
		}
		return Int(val), nil
	case float64:
		// YAML decodes whole numbers as int; an actual float here is a
		// document error, not a representable value.
		return nil, fmt.Errorf("floats are not representable: %v", val)
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			cv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = cv
		}
		return list, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			cv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = cv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// ToGo converts a Value back to plain Go types for serialization surfaces
// (YAML scenario assertions, JSON output).
func ToGo(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

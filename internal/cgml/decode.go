package cgml

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalValue decodes JSON into a Value tree. Numbers must be
// integral; the value domain has no floats, so a fraction or exponent in
// stored data is corruption, not something to round.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return fromJSON(raw)
}

// UnmarshalMap decodes JSON that must be an object at the top level.
func UnmarshalMap(data []byte) (Map, error) {
	v, err := UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Map)
	if !ok {
		return nil, fmt.Errorf("decode value: got %s, want map", TypeName(v))
	}
	return m, nil
}

func fromJSON(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("decode value: non-integral number %q", v.String())
		}
		return Int(n), nil
	case []any:
		list := make(List, len(v))
		for i, elem := range v {
			val, err := fromJSON(elem)
			if err != nil {
				return nil, err
			}
			list[i] = val
		}
		return list, nil
	case map[string]any:
		m := make(Map, len(v))
		for k, elem := range v {
			val, err := fromJSON(elem)
			if err != nil {
				return nil, err
			}
			m[k] = val
		}
		return m, nil
	default:
		return nil, fmt.Errorf("decode value: unsupported JSON shape %T", raw)
	}
}

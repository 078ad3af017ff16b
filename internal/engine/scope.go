package engine

import "github.com/cardlang/cgml/internal/cgml"

// scope holds the scratch bindings of one effect sequence. Bindings are
// written by store_as and read through ref:; the scope is created fresh
// per rule firing and discarded when the effect finishes, so nothing
// leaks between rules.
//
// During any/all predicates the subject element is bound under "each".
type scope struct {
	bindings map[string]cgml.Value
}

func newScope() *scope {
	return &scope{bindings: make(map[string]cgml.Value)}
}

// store records a binding for the remainder of the effect sequence.
func (s *scope) store(name string, v cgml.Value) {
	s.bindings[name] = v
}

// lookup resolves a scratch binding; unbound names are an error, which
// is how an abandoned REQUEST_INPUT poisons dependent actions instead of
// crashing them.
func (s *scope) lookup(name string) (cgml.Value, error) {
	v, ok := s.bindings[name]
	if !ok {
		return nil, unboundRef(name)
	}
	return v, nil
}

// child creates a scope sharing the parent's bindings plus one extra
// binding, used to bind the implicit subject of any/all predicates.
func (s *scope) child(name string, v cgml.Value) *scope {
	c := newScope()
	for k, val := range s.bindings {
		c.bindings[k] = val
	}
	c.bindings[name] = v
	return c
}

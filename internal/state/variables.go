package state

import (
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
)

// Variable is one declared variable with its live values. Global variables
// hold a single value; scoped variables hold one value per owner seat.
// Computed variables hold no value at all: reads go through the declared
// expression, which the caller evaluates.
type Variable struct {
	Def cgml.VariableDef

	global cgml.Value
	scoped map[int]cgml.Value
}

// ReadOnlyVariableError reports a write to a computed variable.
type ReadOnlyVariableError struct {
	Name string
}

func (e *ReadOnlyVariableError) Error() string {
	return fmt.Sprintf("variable %q is computed and cannot be written", e.Name)
}

// UnownedVariableError reports a scoped variable read or write without an
// owner context.
type UnownedVariableError struct {
	Name string
}

func (e *UnownedVariableError) Error() string {
	return fmt.Sprintf("variable %q is scoped and needs an owner", e.Name)
}

// Computed reports whether reads must evaluate the declared expression.
func (v *Variable) Computed() bool {
	return v.Def.Computed != nil
}

// Get returns the stored value for the owner seat. Global variables ignore
// owner; scoped variables require owner >= 0. Computed variables have no
// stored value and return an error so the caller evaluates instead.
func (v *Variable) Get(owner int) (cgml.Value, error) {
	if v.Computed() {
		return nil, &ReadOnlyVariableError{Name: v.Def.Name}
	}
	if v.Def.Scope == cgml.ScopeGlobal {
		return v.global, nil
	}
	if owner < 0 {
		return nil, &UnownedVariableError{Name: v.Def.Name}
	}
	val, ok := v.scoped[owner]
	if !ok {
		return v.Def.Initial, nil
	}
	return val, nil
}

func (v *Variable) set(owner int, val cgml.Value) error {
	if v.Computed() {
		return &ReadOnlyVariableError{Name: v.Def.Name}
	}
	if v.Def.Scope == cgml.ScopeGlobal {
		v.global = val
		return nil
	}
	if owner < 0 {
		return &UnownedVariableError{Name: v.Def.Name}
	}
	v.scoped[owner] = val
	return nil
}

func newVariable(def cgml.VariableDef, playerCount int) *Variable {
	v := &Variable{Def: def}
	if def.Computed != nil {
		return v
	}
	if def.Scope == cgml.ScopeGlobal {
		v.global = def.Initial
		return v
	}
	v.scoped = make(map[int]cgml.Value, playerCount)
	for i := 0; i < playerCount; i++ {
		v.scoped[i] = def.Initial
	}
	return v
}

package harness

import (
	"fmt"
	"strings"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/engine"
)

// AssertionError reports one failed assertion with enough context to
// debug it without rerunning the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Deltas   []engine.Delta
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\ndelta stream:\n")
	for _, d := range e.Deltas {
		fmt.Fprintf(&buf, "  [%d] %s %v\n", d.Seq, d.Kind, cgml.ToGo(d.Payload))
	}
	return buf.String()
}

func checkAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertDeltaContains:
		return assertDeltaContains(r.Deltas, a)
	case AssertDeltaOrder:
		return assertDeltaOrder(r.Deltas, a)
	case AssertDeltaCount:
		return assertDeltaCount(r.Deltas, a)
	case AssertFinalZone:
		return assertFinalZone(r, a)
	case AssertFinalVariable:
		return assertFinalVariable(r, a)
	case AssertTerminalResult:
		return assertTerminalResult(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertDeltaContains looks for a delta of the given kind whose payload
// is a superset of the expected fields.
func assertDeltaContains(deltas []engine.Delta, a Assertion) error {
	expected, err := expectedMap(a.Payload)
	if err != nil {
		return err
	}
	for _, d := range deltas {
		if string(d.Kind) != a.Kind {
			continue
		}
		if payloadMatches(d.Payload, expected) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertDeltaContains,
		Expected: fmt.Sprintf("%s delta with payload %v", a.Kind, a.Payload),
		Actual:   "not found in stream",
		Deltas:   deltas,
	}
}

// assertDeltaOrder checks that the named events were dispatched in the
// given order. Intervening events are allowed.
func assertDeltaOrder(deltas []engine.Delta, a Assertion) error {
	next := 0
	for _, d := range deltas {
		if next >= len(a.Events) {
			break
		}
		if d.Kind != engine.DeltaEvent {
			continue
		}
		if d.Payload["name"] == cgml.String(a.Events[next]) {
			next++
		}
	}
	if next < len(a.Events) {
		return &AssertionError{
			Type:     AssertDeltaOrder,
			Expected: fmt.Sprintf("events in order: %v", a.Events),
			Actual:   fmt.Sprintf("event %q never dispatched after its predecessors", a.Events[next]),
			Deltas:   deltas,
		}
	}
	return nil
}

func assertDeltaCount(deltas []engine.Delta, a Assertion) error {
	count := 0
	for _, d := range deltas {
		if string(d.Kind) == a.Kind {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertDeltaCount,
			Expected: fmt.Sprintf("%d deltas of kind %s", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d deltas", count),
			Deltas:   deltas,
		}
	}
	return nil
}

func assertFinalZone(r *Result, a Assertion) error {
	z, ok := r.Final.Zone(a.Zone)
	if !ok {
		return fmt.Errorf("final_zone: no zone %q (known: %v)", a.Zone, r.Final.ZoneIDs())
	}
	if z.Count() != a.Count {
		return &AssertionError{
			Type:     AssertFinalZone,
			Expected: fmt.Sprintf("zone %s holds %d cards", a.Zone, a.Count),
			Actual:   fmt.Sprintf("%d cards", z.Count()),
			Deltas:   r.Deltas,
		}
	}
	return nil
}

func assertFinalVariable(r *Result, a Assertion) error {
	v, ok := r.Final.Variable(a.Variable)
	if !ok {
		return fmt.Errorf("final_variable: no variable %q", a.Variable)
	}
	got, err := v.Get(a.Player)
	if err != nil {
		return fmt.Errorf("final_variable %s: %w", a.Variable, err)
	}
	want, err := cgml.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("final_variable %s: expected value: %w", a.Variable, err)
	}
	if !cgml.Equal(got, want) {
		return &AssertionError{
			Type:     AssertFinalVariable,
			Expected: fmt.Sprintf("%s = %v", a.Variable, a.Value),
			Actual:   fmt.Sprintf("%v", cgml.ToGo(got)),
			Deltas:   r.Deltas,
		}
	}
	return nil
}

func assertTerminalResult(r *Result, a Assertion) error {
	if !r.Final.Frozen() {
		return &AssertionError{
			Type:     AssertTerminalResult,
			Expected: fmt.Sprintf("terminal result %v", a.Value),
			Actual:   fmt.Sprintf("game still in state %s", r.Final.State),
			Deltas:   r.Deltas,
		}
	}
	want, err := cgml.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("terminal_result: expected value: %w", err)
	}
	if !cgml.Equal(r.Outcome, want) {
		return &AssertionError{
			Type:     AssertTerminalResult,
			Expected: fmt.Sprintf("result %v", a.Value),
			Actual:   fmt.Sprintf("%v", cgml.ToGo(r.Outcome)),
			Deltas:   r.Deltas,
		}
	}
	return nil
}

func expectedMap(raw map[string]any) (cgml.Map, error) {
	if raw == nil {
		return cgml.Map{}, nil
	}
	v, err := cgml.FromGo(map[string]any(raw))
	if err != nil {
		return nil, fmt.Errorf("expected payload: %w", err)
	}
	return v.(cgml.Map), nil
}

// payloadMatches reports whether every expected field equals the
// corresponding payload field. Nested maps match recursively with the
// same subset semantics.
func payloadMatches(payload, expected cgml.Map) bool {
	for k, want := range expected {
		got, ok := payload[k]
		if !ok {
			return false
		}
		if wantMap, isMap := want.(cgml.Map); isMap {
			gotMap, gotIsMap := got.(cgml.Map)
			if !gotIsMap || !payloadMatches(gotMap, wantMap) {
				return false
			}
			continue
		}
		if !cgml.Equal(got, want) {
			return false
		}
	}
	return true
}

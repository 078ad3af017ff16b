package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/cardlang/cgml/internal/cgml"
)

// snapshot converts a run's delta stream into a canonical value tree for
// golden comparison. Canonical JSON keeps the snapshot byte-stable.
func snapshot(scenarioName string, r *Result) cgml.Map {
	deltas := make(cgml.List, len(r.Deltas))
	for i, d := range r.Deltas {
		deltas[i] = cgml.Map{
			"seq":     cgml.Int(d.Seq),
			"kind":    cgml.String(string(d.Kind)),
			"payload": d.Payload,
		}
	}
	return cgml.Map{
		"scenario": cgml.String(scenarioName),
		"deltas":   deltas,
	}
}

// RunWithGolden executes a scenario and compares its delta stream
// against testdata/golden/{scenario.Name}.golden. Regenerate snapshots
// with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	data, err := cgml.MarshalCanonical(snapshot(scenario.Name, result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}

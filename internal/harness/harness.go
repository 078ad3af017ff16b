package harness

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/compiler"
	"github.com/cardlang/cgml/internal/document"
	"github.com/cardlang/cgml/internal/engine"
	"github.com/cardlang/cgml/internal/schema"
	"github.com/cardlang/cgml/internal/state"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Errors lists assertion failures. Empty when Pass is true.
	Errors []string

	// Deltas is the complete delta stream, in emission order.
	Deltas []engine.Delta

	// Final is the game state after the run, for ad hoc inspection.
	Final *state.GameState

	// Outcome is the terminal evaluator's result, Null when the game
	// did not end.
	Outcome cgml.Value
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// scriptedInputs answers REQUEST_INPUT from the scenario's input list
// and cancels once the list runs out.
type scriptedInputs struct {
	values []cgml.Value
	idx    int
}

func (s *scriptedInputs) RequestInput(context.Context, engine.InputRequest) (cgml.Value, error) {
	if s.idx >= len(s.values) {
		return nil, engine.ErrInputCancelled
	}
	v := s.values[s.idx]
	s.idx++
	return v, nil
}

// Run executes a scenario: load and compile the document, play the
// scripted commands, then evaluate every assertion. A non-nil error
// means the run itself broke (bad document, engine failure); assertion
// failures are reported in the result, not as errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	def, err := loadDocument(scenario.Document)
	if err != nil {
		return nil, err
	}

	inputs := &scriptedInputs{}
	for i, raw := range scenario.Inputs {
		v, err := cgml.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("inputs[%d]: %w", i, err)
		}
		inputs.values = append(inputs.values, v)
	}

	token := scenario.Token
	if token == "" {
		token = scenario.Name
	}
	seed := scenario.Seed
	if seed == 0 {
		seed = engine.DefaultSeed
	}

	result := &Result{Pass: true}
	e, err := engine.New(def, scenario.Players,
		engine.WithSeed(seed),
		engine.WithToken(engine.NewFixedGenerator(token)),
		engine.WithInput(inputs),
		engine.WithObserver(engine.ObserverFunc(func(d engine.Delta) {
			result.Deltas = append(result.Deltas, d)
		})),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	if err := e.Start(ctx); err != nil {
		return nil, fmt.Errorf("scenario %s: start: %w", scenario.Name, err)
	}

	for i, cmd := range scenario.Commands {
		if e.Done() {
			break
		}
		payload, err := commandPayload(cmd)
		if err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
		e.Post(cmd.Event, cmd.Actor, payload)
		if err := e.Tick(ctx); err != nil {
			return nil, fmt.Errorf("scenario %s: command %s: %w", scenario.Name, cmd.Event, err)
		}
	}
	for i := 0; i < scenario.Ticks && !e.Done(); i++ {
		if err := e.Tick(ctx); err != nil {
			return nil, fmt.Errorf("scenario %s: tick %d: %w", scenario.Name, i, err)
		}
	}

	result.Final = e.State()
	result.Outcome = e.Result()

	for i, a := range scenario.Assertions {
		if err := checkAssertion(result, a); err != nil {
			result.addError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func commandPayload(cmd Command) (cgml.Map, error) {
	if cmd.Payload == nil {
		return nil, nil
	}
	v, err := cgml.FromGo(cmd.Payload)
	if err != nil {
		return nil, err
	}
	return v.(cgml.Map), nil
}

// loadDocument runs the document pipeline: merge, schema-check, compile.
func loadDocument(path string) (*cgml.GameDef, error) {
	resolver := document.NewFileResolver(filepath.Dir(path))
	tree, err := document.Load(resolver, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := schema.Validate(tree); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	def, err := compiler.Compile(tree)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return def, nil
}

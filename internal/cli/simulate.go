package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/engine"
	"github.com/cardlang/cgml/internal/trace"
)

// randomInput answers input requests by picking a random option with a
// seeded source, so simulations stay reproducible. Requests without
// options are cancelled.
type randomInput struct {
	rng *rand.Rand
}

func (r *randomInput) RequestInput(_ context.Context, req engine.InputRequest) (cgml.Value, error) {
	if len(req.Options) == 0 {
		return nil, engine.ErrInputCancelled
	}
	return req.Options[r.rng.Intn(len(req.Options))], nil
}

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Players  int
	Seed     int64
	MaxTicks int
	Database string
}

// SimulateResult is the simulate command's output.
type SimulateResult struct {
	Token    string `json:"token"`
	Seed     int64  `json:"seed"`
	Players  int    `json:"players"`
	Ticks    int    `json:"ticks"`
	Deltas   int    `json:"deltas"`
	Finished bool   `json:"finished"`
	State    string `json:"state"`
	Result   any    `json:"result,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <document>",
		Short: "Run a game without players",
		Long: `Run a game driven purely by its flow: setup, then implicit phase
advancement until the game ends or the tick limit is reached. Input
requests are cancelled, so documents that depend on player decisions
will log warnings and keep going.

With --db, the delta stream is recorded for later replay and
inspection.

Examples:
  cgml simulate games/war.yaml --players 2 --seed 42
  cgml simulate games/war.yaml --players 2 --db traces.db --ticks 500`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Players, "players", 2, "number of players")
	cmd.Flags().Int64Var(&opts.Seed, "seed", engine.DefaultSeed, "shuffle seed")
	cmd.Flags().IntVar(&opts.MaxTicks, "ticks", 1000, "tick limit before giving up")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the trace to this SQLite database")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)
	formatter := formatterFor(opts.RootOptions, cmd)

	def, err := loadDocument(path)
	if err != nil {
		return WrapExitError(ExitFailure, "document rejected", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token := engine.UUIDGenerator{}.Generate()
	deltaCount := 0
	engineOpts := []engine.Option{
		engine.WithSeed(opts.Seed),
		engine.WithToken(engine.NewFixedGenerator(token)),
		engine.WithInput(&randomInput{rng: rand.New(rand.NewSource(opts.Seed))}),
		engine.WithObserver(engine.ObserverFunc(func(engine.Delta) { deltaCount++ })),
	}

	var recorder *trace.Recorder
	if opts.Database != "" {
		store, err := trace.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "open trace database", err)
		}
		defer store.Close()

		if err := store.WriteHeader(ctx, trace.Header{
			Token:         token,
			Name:          def.Meta.Name,
			Players:       opts.Players,
			Seed:          opts.Seed,
			DocHash:       def.DocHash,
			EngineVersion: cgml.EngineVersion,
			SpecVersion:   def.Version,
		}); err != nil {
			return WrapExitError(ExitCommandError, "write trace header", err)
		}
		recorder = trace.NewRecorder(ctx, store, token)
		engineOpts = append(engineOpts, engine.WithObserver(recorder))
	}

	e, err := engine.New(def, opts.Players, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "build engine", err)
	}

	if err := e.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "game start failed", err)
	}

	ticks := 0
	for ; ticks < opts.MaxTicks && !e.Done(); ticks++ {
		if err := e.Tick(ctx); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("tick %d failed", ticks), err)
		}
	}

	if recorder != nil && recorder.Err() != nil {
		return WrapExitError(ExitCommandError, "trace recording failed", recorder.Err())
	}

	result := SimulateResult{
		Token:    e.Token(),
		Seed:     opts.Seed,
		Players:  opts.Players,
		Ticks:    ticks,
		Deltas:   deltaCount,
		Finished: e.Done(),
		State:    e.State().State,
	}
	if e.Done() {
		result.Result = cgml.ToGo(e.Result())
	}

	if formatter.Format == "json" {
		return formatter.JSON(result)
	}
	formatter.Textf("game %s: %d ticks, %d deltas", result.Token, result.Ticks, result.Deltas)
	if result.Finished {
		formatter.Textf("finished in state %s with result %v", result.State, result.Result)
	} else {
		formatter.Textf("tick limit reached in state %s", result.State)
	}
	return nil
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/engine"
	"github.com/cardlang/cgml/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Players  int
	Seed     int64
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <document>",
		Short: "Play a game interactively",
		Long: `Load a document and play it from the terminal. Commands are read line
by line:

  <event> [actor] [payload-json]   post an event and advance
  tick                             advance without posting
  state                            show zones, variables, and the FSM
  quit                             stop

Input requests from the game (REQUEST_INPUT) prompt on the terminal;
answer with a JSON value or a bare string.

Examples:
  cgml run games/war.yaml --players 2
  cgml run games/crazy_eights.yaml --players 4 --seed 7 --db traces.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Players, "players", 2, "number of players")
	cmd.Flags().Int64Var(&opts.Seed, "seed", engine.DefaultSeed, "shuffle seed")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the trace to this SQLite database")

	return cmd
}

// terminalInput answers REQUEST_INPUT by prompting on the terminal.
type terminalInput struct {
	in  *bufio.Reader
	out io.Writer
}

func (t *terminalInput) RequestInput(ctx context.Context, req engine.InputRequest) (cgml.Value, error) {
	if req.Prompt != "" {
		fmt.Fprintf(t.out, "player %d: %s\n", req.Player, req.Prompt)
	}
	if len(req.Options) > 0 {
		for i, opt := range req.Options {
			fmt.Fprintf(t.out, "  [%d] %v\n", i, cgml.ToGo(opt))
		}
	}
	fmt.Fprintf(t.out, "> ")

	line, err := t.in.ReadString('\n')
	if err != nil {
		return nil, engine.ErrInputCancelled
	}
	return parseValue(strings.TrimSpace(line))
}

// parseValue reads a JSON value, falling back to a bare string.
func parseValue(s string) (cgml.Value, error) {
	if s == "" {
		return nil, engine.ErrInputCancelled
	}
	if v, err := cgml.UnmarshalValue([]byte(s)); err == nil {
		return v, nil
	}
	return cgml.String(s), nil
}

func runInteractive(opts *RunOptions, path string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)
	out := cmd.OutOrStdout()

	def, err := loadDocument(path)
	if err != nil {
		return WrapExitError(ExitFailure, "document rejected", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdin := bufio.NewReader(cmd.InOrStdin())
	token := engine.UUIDGenerator{}.Generate()

	engineOpts := []engine.Option{
		engine.WithSeed(opts.Seed),
		engine.WithToken(engine.NewFixedGenerator(token)),
		engine.WithInput(&terminalInput{in: stdin, out: out}),
	}

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
		engineOpts = append(engineOpts, engine.WithObserver(trace.NewRecorder(ctx, store, token)))
	}

	e, err := engine.New(def, opts.Players, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "build engine", err)
	}

	fmt.Fprintf(out, "%s: %d players, seed %d, token %s\n", def.Meta.Name, opts.Players, opts.Seed, token)
	if err := e.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "game start failed", err)
	}

	for !e.Done() {
		s := e.State()
		fmt.Fprintf(out, "[%s", s.State)
		if s.Phase != "" {
			fmt.Fprintf(out, "/%s", s.Phase)
		}
		if s.Current >= 0 {
			fmt.Fprintf(out, " p%d", s.Current)
		}
		fmt.Fprint(out, "] ")

		line, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Fprintln(out)
			break
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "quit" || line == "exit":
			return nil
		case line == "state":
			printState(out, e)
			continue
		case line == "" || line == "tick":
			if err := e.Tick(ctx); err != nil {
				return WrapExitError(ExitFailure, "tick failed", err)
			}
			continue
		}

		event, actor, payload, err := parseCommand(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		e.Post(event, actor, payload)
		if err := e.Tick(ctx); err != nil {
			return WrapExitError(ExitFailure, "tick failed", err)
		}
	}

	if e.Done() {
		fmt.Fprintf(out, "game over: %v\n", cgml.ToGo(e.Result()))
	}
	return nil
}

// parseCommand splits "<event> [actor] [payload-json]".
func parseCommand(line string) (event string, actor int, payload cgml.Map, err error) {
	fields := strings.SplitN(line, " ", 3)
	event = fields[0]

	if len(fields) > 1 {
		actor, err = strconv.Atoi(fields[1])
		if err != nil {
			return "", 0, nil, fmt.Errorf("actor must be a seat index: %q", fields[1])
		}
	}
	if len(fields) > 2 {
		payload, err = cgml.UnmarshalMap([]byte(fields[2]))
		if err != nil {
			return "", 0, nil, fmt.Errorf("payload: %w", err)
		}
	}
	return event, actor, payload, nil
}

func printState(out io.Writer, e *engine.Engine) {
	s := e.State()
	fmt.Fprintf(out, "state %s phase %q current %d\n", s.State, s.Phase, s.Current)
	for _, id := range s.ZoneIDs() {
		z, _ := s.Zone(id)
		fmt.Fprintf(out, "  zone %-16s %d cards\n", id, z.Count())
	}
}

package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Token    string
	Kind     string
}

// TraceDelta is one delta in trace command output.
type TraceDelta struct {
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
	Hash    string `json:"hash"`
}

// TraceResult is the trace command's output for one game.
type TraceResult struct {
	Token   string       `json:"token"`
	Name    string       `json:"name"`
	Players int          `json:"players"`
	Seed    int64        `json:"seed"`
	DocHash string       `json:"doc_hash"`
	Deltas  []TraceDelta `json:"deltas"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a recorded game",
		Long: `Print the recorded delta stream of a game: every event dispatch, card
movement, shuffle, input, variable write, and state change, in order.

Without --game, the most recent recording is shown. --kind filters to
one delta kind.

Examples:
  cgml trace --db traces.db
  cgml trace --db traces.db --game 0190a5e2-... --kind zone
  cgml trace --db traces.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the trace database (required)")
	cmd.Flags().StringVar(&opts.Token, "game", "", "game token (default: latest)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show deltas of this kind")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	store, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open trace database", err)
	}
	defer store.Close()

	ctx := context.Background()
	token := opts.Token
	if token == "" {
		token, err = store.LatestToken(ctx)
		if errors.Is(err, trace.ErrNotFound) {
			return NewExitError(ExitCommandError, "no recorded games in database")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "find latest game", err)
		}
	}

	header, err := store.ReadHeader(ctx, token)
	if errors.Is(err, trace.ErrNotFound) {
		return NewExitError(ExitCommandError, "no recorded game with token "+token)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "read game header", err)
	}

	recorded, err := store.ReadDeltas(ctx, token)
	if err != nil {
		return WrapExitError(ExitCommandError, "read deltas", err)
	}

	result := TraceResult{
		Token:   header.Token,
		Name:    header.Name,
		Players: header.Players,
		Seed:    header.Seed,
		DocHash: header.DocHash,
	}
	for _, rec := range recorded {
		if opts.Kind != "" && string(rec.Kind) != opts.Kind {
			continue
		}
		result.Deltas = append(result.Deltas, TraceDelta{
			Seq:     rec.Seq,
			Kind:    string(rec.Kind),
			Payload: cgml.ToGo(rec.Payload),
			Hash:    rec.Hash,
		})
	}

	if formatter.Format == "json" {
		return formatter.JSON(result)
	}

	formatter.Textf("game %s: %s, %d players, seed %d", result.Token, result.Name, result.Players, result.Seed)
	formatter.Textf("document %s", result.DocHash)
	for _, d := range result.Deltas {
		formatter.Textf("  [%d] %-8s %v", d.Seq, d.Kind, d.Payload)
	}
	return nil
}

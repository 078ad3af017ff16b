package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/cardlang/cgml/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Token    string
}

// ReplayResult is the replay command's output.
type ReplayResult struct {
	Token      string `json:"token"`
	Match      bool   `json:"match"`
	Recorded   int    `json:"recorded"`
	Replayed   int    `json:"replayed"`
	DivergedAt int64  `json:"diverged_at,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <document>",
		Short: "Re-run a recorded game and verify determinism",
		Long: `Re-run a recorded game against its document and compare the produced
delta stream hash-for-hash with the stored one. A divergence means the
document changed, the store was tampered with, or determinism broke.

Without --game, the most recent recording is replayed.

Examples:
  cgml replay games/war.yaml --db traces.db
  cgml replay games/war.yaml --db traces.db --game 0190a5e2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the trace database (required)")
	cmd.Flags().StringVar(&opts.Token, "game", "", "game token to replay (default: latest)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)
	formatter := formatterFor(opts.RootOptions, cmd)

	def, err := loadDocument(path)
	if err != nil {
		return WrapExitError(ExitFailure, "document rejected", err)
	}

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
		formatter.VerboseLog("replaying latest game %s", token)
	}

	report, err := trace.Replay(ctx, store, token, def)
	if errors.Is(err, trace.ErrNotFound) {
		return NewExitError(ExitCommandError, "no recorded game with token "+token)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	result := ReplayResult{
		Token:      report.Token,
		Match:      report.Match(),
		Recorded:   report.Recorded,
		Replayed:   report.Replayed,
		DivergedAt: report.DivergedAt,
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(result); err != nil {
			return err
		}
	} else {
		formatter.Textf("%s", report)
	}

	if !report.Match() {
		return NewExitError(ExitFailure, "replay diverged from recording")
	}
	return nil
}

package cli

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cardlang/cgml/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
}

// TestResult is the test command's output.
type TestResult struct {
	Total     int                 `json:"total"`
	Passed    int                 `json:"passed"`
	Failed    int                 `json:"failed"`
	Scenarios map[string]TestCase `json:"scenarios"`
}

// TestCase is one scenario's outcome.
type TestCase struct {
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run every YAML scenario in a directory against its document and report
assertion results.

Examples:
  cgml test ./scenarios
  cgml test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}
	return cmd
}

func runTest(opts *TestOptions, dir string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)
	formatter := formatterFor(opts.RootOptions, cmd)

	suite, err := harness.RunDir(context.Background(), dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "run scenarios", err)
	}
	if suite.Total == 0 {
		return NewExitError(ExitCommandError, "no scenarios found in "+dir)
	}

	result := TestResult{
		Total:     suite.Total,
		Passed:    suite.Passed,
		Failed:    suite.Failed,
		Scenarios: make(map[string]TestCase, len(suite.Results)),
	}
	for name, r := range suite.Results {
		result.Scenarios[name] = TestCase{Pass: r.Pass, Errors: r.Errors}
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(result); err != nil {
			return err
		}
	} else {
		names := make([]string, 0, len(result.Scenarios))
		for name := range result.Scenarios {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			tc := result.Scenarios[name]
			if tc.Pass {
				formatter.Textf("PASS %s", name)
				continue
			}
			formatter.Textf("FAIL %s", name)
			for _, msg := range tc.Errors {
				formatter.Textf("     %s", msg)
			}
		}
		formatter.Textf("%d scenarios: %d passed, %d failed", result.Total, result.Passed, result.Failed)
	}

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, "scenarios failed")
	}
	return nil
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/compiler"
	"github.com/cardlang/cgml/internal/document"
	"github.com/cardlang/cgml/internal/schema"
)

// loadDocument runs the full document pipeline: merge directives,
// schema-check the merged tree, compile to a game definition.
func loadDocument(path string) (*cgml.GameDef, error) {
	tree, err := loadTree(path)
	if err != nil {
		return nil, err
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

// loadTree merges a document without schema-checking or compiling it.
// The validate command wants the intermediate tree to report on.
func loadTree(path string) (document.Tree, error) {
	resolver := document.NewFileResolver(filepath.Dir(path))
	tree, err := document.Load(resolver, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return tree, nil
}

// setupLogging configures slog for a command run. Verbose lowers the
// level to debug; logs always go to stderr so stdout stays clean for
// command output.
func setupLogging(opts *RootOptions) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// formatterFor builds the output formatter for a command invocation.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cardlang/cgml/internal/compiler"
	"github.com/cardlang/cgml/internal/document"
	"github.com/cardlang/cgml/internal/schema"
)

// DocumentIssue is one problem found in a document, from any pipeline
// stage.
type DocumentIssue struct {
	Stage   string `json:"stage"` // "load", "schema", "compile"
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationResult is the validate command's output.
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Name   string          `json:"name,omitempty"`
	Hash   string          `json:"doc_hash,omitempty"`
	Issues []DocumentIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Check a game document without running it",
		Long: `Load a CGML document, resolve its includes and inheritance, check it
against the schema, and compile it. Reports every problem found; a valid
document prints its name and content hash.

Examples:
  cgml validate games/war.yaml
  cgml validate games/war.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := formatterFor(opts, cmd)

	result := ValidationResult{Valid: true}

	tree, err := loadTree(path)
	if err != nil {
		var loadErr *document.LoadError
		if errors.As(err, &loadErr) {
			result.Issues = append(result.Issues, DocumentIssue{
				Stage: "load", Path: loadErr.Ref, Message: loadErr.Msg,
			})
		} else {
			result.Issues = append(result.Issues, DocumentIssue{Stage: "load", Message: err.Error()})
		}
		return outputValidation(formatter, result)
	}
	formatter.VerboseLog("document merged: %d top-level keys", len(tree))

	if err := schema.Validate(tree); err != nil {
		var schemaErrs *schema.Errors
		if errors.As(err, &schemaErrs) {
			for _, v := range schemaErrs.Violations {
				result.Issues = append(result.Issues, DocumentIssue{
					Stage: "schema", Path: v.Path, Message: v.Message,
				})
			}
		} else {
			result.Issues = append(result.Issues, DocumentIssue{Stage: "schema", Message: err.Error()})
		}
		return outputValidation(formatter, result)
	}
	formatter.VerboseLog("schema check passed")

	def, err := compiler.Compile(tree)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			result.Issues = append(result.Issues, DocumentIssue{
				Stage: "compile", Path: compileErr.Path, Message: compileErr.Message,
			})
		} else {
			result.Issues = append(result.Issues, DocumentIssue{Stage: "compile", Message: err.Error()})
		}
		return outputValidation(formatter, result)
	}

	result.Name = def.Meta.Name
	result.Hash = def.DocHash

	// Rule cycle analysis is advisory: warn, do not fail.
	for _, warning := range compiler.AnalyzeRuleCycles(def.Rules) {
		formatter.VerboseLog("warning: %s", warning.Message)
	}

	return outputValidation(formatter, result)
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	result.Valid = len(result.Issues) == 0

	if f.Format == "json" {
		if err := f.JSON(result); err != nil {
			return err
		}
	} else if result.Valid {
		f.Textf("valid: %s (%s)", result.Name, result.Hash)
	} else {
		f.Textf("invalid: %d issue(s)", len(result.Issues))
		for _, issue := range result.Issues {
			if issue.Path != "" {
				f.Textf("  [%s] %s: %s", issue.Stage, issue.Path, issue.Message)
			} else {
				f.Textf("  [%s] %s", issue.Stage, issue.Message)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "document is invalid")
	}
	return nil
}

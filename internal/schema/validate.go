// Package schema validates a merged CGML document tree against the embedded
// CUE grammar. Validation runs after the Document Merger and before the
// compiler; a schema failure fails the whole load - no partial activation.
package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError is one schema violation with its document location.
type ValidationError struct {
	Path    string // dotted location inside the document, "" if unknown
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Errors aggregates all violations found in one document.
type Errors struct {
	Violations []ValidationError
}

func (e *Errors) Error() string {
	if len(e.Violations) == 1 {
		return "schema: " + e.Violations[0].Error()
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("schema: %d violations: %s", len(e.Violations), strings.Join(msgs, "; "))
}

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaErr  error
)

// compiledSchema compiles the embedded grammar once per process.
func compiledSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("embedded schema is invalid: %w", err)
			return
		}
		schemaVal = v.LookupPath(cue.ParsePath("#Document"))
		if err := schemaVal.Err(); err != nil {
			schemaErr = fmt.Errorf("embedded schema missing #Document: %w", err)
		}
	})
	return schemaVal, schemaErr
}

// Validate checks a merged document tree against the grammar.
// Returns *Errors listing every violation, or nil if the tree conforms.
func Validate(tree map[string]any) error {
	def, err := compiledSchema()
	if err != nil {
		return err
	}

	// Each validation needs its own context-independent encoding; cue.Value
	// unification requires both values in the same context, so re-encode the
	// schema context's view of the tree.
	doc := def.Context().Encode(tree)
	if encErr := doc.Err(); encErr != nil {
		return &Errors{Violations: []ValidationError{{Message: encErr.Error()}}}
	}

	unified := def.Unify(doc)
	vErr := unified.Validate(cue.Final(), cue.Concrete(true))
	if vErr == nil {
		return nil
	}

	var out Errors
	for _, e := range cueerrors.Errors(vErr) {
		path := strings.Join(e.Path(), ".")
		out.Violations = append(out.Violations, ValidationError{
			Path:    path,
			Message: e.Error(),
		})
	}
	return &out
}

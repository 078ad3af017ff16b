package compiler

import "fmt"

// CompileError is a fatal compilation failure with the offending document
// location (dotted path into the merged tree).
type CompileError struct {
	Path    string
	Message string
}

func (e *CompileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("compile: %s: %s", e.Path, e.Message)
	}
	return "compile: " + e.Message
}

func errAt(path, format string, args ...any) *CompileError {
	return &CompileError{Path: path, Message: fmt.Sprintf(format, args...)}
}

package document

import (
	"errors"
	"fmt"
)

// Error codes for document loading failures. All are fatal - a document
// that fails to load never starts a game.
const (
	ErrCodeCyclicImport = "CYCLIC_IMPORT"
	ErrCodeNotFound     = "IMPORT_NOT_FOUND"
	ErrCodeFetch        = "IMPORT_FETCH"
	ErrCodeParse        = "PARSE"
	ErrCodeMerge        = "MERGE"
)

// LoadError is a document loading failure with the offending reference.
type LoadError struct {
	Code string
	Ref  string // document reference being resolved when the error occurred
	Msg  string
}

func (e *LoadError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Ref, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// IsCyclicImport reports whether err is a cyclic import failure.
// Uses errors.As to handle wrapped errors.
func IsCyclicImport(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == ErrCodeCyclicImport
}

// IsNotFound reports whether err is a missing-import failure.
func IsNotFound(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == ErrCodeNotFound
}

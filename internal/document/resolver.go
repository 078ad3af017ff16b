package document

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolver fetches raw document content for an import reference.
// References are opaque to the merger; the resolver defines their meaning.
type Resolver interface {
	// Resolve returns the raw bytes for ref, and the canonical identifier
	// used for cycle detection (e.g. an absolute path). Two refs naming the
	// same document must canonicalize identically.
	Resolve(ref string) (data []byte, canonical string, err error)
}

// FileResolver resolves references as filesystem paths relative to a root
// directory. Nested relative references resolve against the including
// document's directory via the canonical identifiers it returns.
type FileResolver struct {
	Root string
}

// NewFileResolver creates a resolver rooted at dir.
func NewFileResolver(dir string) *FileResolver {
	return &FileResolver{Root: dir}
}

// Resolve reads ref relative to the root directory.
func (r *FileResolver) Resolve(ref string) ([]byte, string, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, ref)
	}
	canonical, err := filepath.Abs(path)
	if err != nil {
		return nil, "", &LoadError{Code: ErrCodeFetch, Ref: ref, Msg: err.Error()}
	}

	data, err := os.ReadFile(canonical)
	if os.IsNotExist(err) {
		return nil, "", &LoadError{Code: ErrCodeNotFound, Ref: ref, Msg: "no such document"}
	}
	if err != nil {
		return nil, "", &LoadError{Code: ErrCodeFetch, Ref: ref, Msg: err.Error()}
	}
	return data, canonical, nil
}

// MapResolver serves documents from an in-memory map. Test use only.
type MapResolver struct {
	Docs map[string]string
}

// Resolve returns the mapped content; the ref is its own canonical form.
func (r *MapResolver) Resolve(ref string) ([]byte, string, error) {
	doc, ok := r.Docs[ref]
	if !ok {
		return nil, "", &LoadError{Code: ErrCodeNotFound, Ref: ref, Msg: fmt.Sprintf("not in map (%d docs)", len(r.Docs))}
	}
	return []byte(doc), ref, nil
}

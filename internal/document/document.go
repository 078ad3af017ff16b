package document

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tree is a decoded document: string-keyed, directive-free after loading.
type Tree = map[string]any

// includeTag marks a scalar node whose value is a reference to splice.
const includeTag = "!include"

// inheritTag may mark entries of the inherits list; it is equivalent to a
// plain string there.
const inheritTag = "!inherit"

// inheritsKey is the root-level key listing base documents.
const inheritsKey = "inherits"

// Load fetches, parses, and fully resolves the document at ref.
// The returned tree contains no unresolved directives.
func Load(r Resolver, ref string) (Tree, error) {
	l := &loader{resolver: r, active: make(map[string]bool)}
	return l.load(ref)
}

// loader carries the active-reference stack for cycle detection.
// A reference is on the stack while its resolution is in progress; seeing it
// again means the import graph has a cycle. Diamond imports (the same
// document reachable twice without recursion) are legal.
type loader struct {
	resolver Resolver
	active   map[string]bool
}

func (l *loader) load(ref string) (Tree, error) {
	data, canonical, err := l.resolver.Resolve(ref)
	if err != nil {
		return nil, err
	}

	if l.active[canonical] {
		return nil, &LoadError{Code: ErrCodeCyclicImport, Ref: ref, Msg: "import cycle detected"}
	}
	l.active[canonical] = true
	defer delete(l.active, canonical)

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Ref: ref, Msg: err.Error()}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, &LoadError{Code: ErrCodeParse, Ref: ref, Msg: "empty document"}
	}

	converted, err := l.convert(root.Content[0], ref)
	if err != nil {
		return nil, err
	}

	tree, ok := converted.(map[string]any)
	if !ok {
		return nil, &LoadError{Code: ErrCodeParse, Ref: ref, Msg: "document root must be a mapping"}
	}

	return l.applyInheritance(tree, ref)
}

// convert walks a yaml node into plain Go values, splicing !include
// directives as it goes.
func (l *loader) convert(n *yaml.Node, ref string) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == includeTag || n.Tag == inheritTag {
			return l.load(n.Value)
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Ref: ref, Msg: err.Error()}
		}
		return v, nil

	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, &LoadError{Code: ErrCodeParse, Ref: ref, Msg: "non-scalar mapping key"}
			}
			val, err := l.convert(valNode, ref)
			if err != nil {
				return nil, err
			}
			m[keyNode.Value] = val
		}
		return m, nil

	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			val, err := l.convert(item, ref)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil

	case yaml.AliasNode:
		return l.convert(n.Alias, ref)

	default:
		return nil, &LoadError{Code: ErrCodeParse, Ref: ref, Msg: fmt.Sprintf("unsupported node kind %d", n.Kind)}
	}
}

// applyInheritance resolves the inherits key: bases are loaded depth-first
// (each base resolves its own inherits first), folded left to right, then
// the child is merged on top. The inherits key does not survive the merge.
func (l *loader) applyInheritance(child Tree, ref string) (Tree, error) {
	raw, ok := child[inheritsKey]
	if !ok {
		return child, nil
	}
	delete(child, inheritsKey)

	entries, err := inheritEntries(raw, ref)
	if err != nil {
		return nil, err
	}

	var folded Tree
	for i, entry := range entries {
		var base Tree
		switch v := entry.(type) {
		case string:
			base, err = l.load(v)
			if err != nil {
				return nil, err
			}
		case map[string]any:
			// A !inherit-tagged entry was already spliced during convert.
			base = v
		default:
			return nil, &LoadError{
				Code: ErrCodeMerge,
				Ref:  ref,
				Msg:  fmt.Sprintf("inherits[%d] must be a document reference, got %T", i, entry),
			}
		}
		if folded == nil {
			folded = base
		} else {
			folded = mergeTrees(folded, base, "")
		}
	}
	if folded == nil {
		return child, nil
	}

	return mergeTrees(folded, child, ""), nil
}

// inheritEntries normalizes the inherits value to a list.
func inheritEntries(raw any, ref string) ([]any, error) {
	switch v := raw.(type) {
	case string:
		return []any{v}, nil
	case map[string]any:
		return []any{v}, nil
	case []any:
		return v, nil
	default:
		return nil, &LoadError{Code: ErrCodeMerge, Ref: ref, Msg: fmt.Sprintf("inherits must be a reference or list, got %T", raw)}
	}
}

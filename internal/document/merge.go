package document

// additiveFields maps dotted field paths to the entry key used for
// de-duplication. Lists at these paths append across an inheritance merge;
// everywhere else a child list replaces the base list.
var additiveFields = map[string]string{
	"components.zones":     "name",
	"components.variables": "name",
	"rules":                "id",
}

// mergeTrees merges child over base. Neither input is mutated.
func mergeTrees(base, child Tree, path string) Tree {
	out := make(Tree, len(base)+len(child))
	for k, v := range base {
		out[k] = v
	}
	for k, cv := range child {
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}
		bv, exists := out[k]
		if !exists {
			out[k] = cv
			continue
		}
		out[k] = mergeValues(bv, cv, childPath)
	}
	return out
}

// mergeValues applies the per-field merge rule: maps merge key-wise,
// additive lists append with child-wins de-duplication, everything else
// is replaced by the child.
func mergeValues(base, child any, path string) any {
	bm, bok := base.(map[string]any)
	cm, cok := child.(map[string]any)
	if bok && cok {
		return mergeTrees(bm, cm, path)
	}

	if key, additive := additiveFields[path]; additive {
		bl, blok := base.([]any)
		cl, clok := child.([]any)
		if blok && clok {
			return mergeAdditiveList(bl, cl, key)
		}
	}

	return child
}

// mergeAdditiveList appends child entries to the base list, de-duplicating
// by the given key field. A child entry with a duplicate key wholly replaces
// the base entry in its original position; unkeyed entries pass through.
func mergeAdditiveList(base, child []any, key string) []any {
	out := make([]any, len(base))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, entry := range out {
		if name, ok := entryKey(entry, key); ok {
			index[name] = i
		}
	}

	for _, entry := range child {
		name, ok := entryKey(entry, key)
		if !ok {
			out = append(out, entry)
			continue
		}
		if i, dup := index[name]; dup {
			out[i] = entry // child wholly overrides base entry
			continue
		}
		index[name] = len(out)
		out = append(out, entry)
	}

	return out
}

func entryKey(entry any, key string) (string, bool) {
	m, ok := entry.(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := m[key].(string)
	return name, ok
}

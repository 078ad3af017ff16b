package compiler

import "sort"

func anyList(raw any) []any {
	list, _ := raw.([]any)
	return list
}

func stringField(node map[string]any, field string) string {
	s, _ := node[field].(string)
	return s
}

func boolField(node map[string]any, field string) bool {
	b, _ := node[field].(bool)
	return b
}

func intField(node map[string]any, field string, fallback int) int {
	switch v := node[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return fallback
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package cgml

import "strings"

// MatchTrigger reports whether an event name matches a rule's trigger
// pattern. A pattern is an exact event name, or a prefix pattern ending in
// ".*" which matches any event under that prefix (e.g. "on.phase.*"
// matches "on.phase.draw").
func MatchTrigger(pattern, event string) bool {
	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.HasPrefix(event, prefix+".")
	}
	return pattern == event
}

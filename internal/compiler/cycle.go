package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cardlang/cgml/internal/cgml"
)

// CycleWarning flags a potential rule-chain cycle: a set of rules whose
// effects can re-trigger each other indefinitely.
//
// Cycles are warnings, not errors, because they may be intentional - a
// conditioned rule chain can terminate even though its trigger graph loops
// (e.g. "on every card_moved, move a card back until the hand is empty").
type CycleWarning struct {
	Path    []string `json:"path"`    // cycle traversal: ["rule-a", "rule-b", "rule-a"]
	Message string   `json:"message"`
	Level   string   `json:"level"` // "warning"
}

// AnalyzeRuleCycles performs static cycle analysis over the rule set.
//
// The trigger graph has an edge rule A -> rule B when an event A's effect
// can emit (EMIT_EVENT, or the implicit phase/state entry events of
// SET_PHASE and SET_STATE) matches B's trigger pattern. Strongly connected
// components with more than one member, or with a self-loop, are reported.
//
// A DAG returns an empty list.
func AnalyzeRuleCycles(rules []cgml.RuleDef) []CycleWarning {
	if len(rules) == 0 {
		return nil
	}

	graph := buildTriggerGraph(rules)
	sccs := tarjanSCC(graph)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	return warnings
}

// triggerGraph maps rule id -> rule ids its effects can trigger.
type triggerGraph map[string][]string

// emittedEvents lists the event names a rule's effect can put on the queue.
func emittedEvents(rule cgml.RuleDef) []string {
	var events []string
	for _, action := range rule.Effect {
		switch action.Action {
		case cgml.ActionEmitEvent:
			events = append(events, action.Event)
		case cgml.ActionSetPhase:
			events = append(events, "on.phase."+action.Phase)
		case cgml.ActionSetState:
			events = append(events, "on.state.enter."+action.State)
		case cgml.ActionRejectPlay:
			events = append(events, "on.play.rejected")
		}
	}
	return events
}

func buildTriggerGraph(rules []cgml.RuleDef) triggerGraph {
	graph := make(triggerGraph, len(rules))

	for _, rule := range rules {
		graph[rule.ID] = []string{}
		for _, event := range emittedEvents(rule) {
			for _, candidate := range rules {
				if cgml.MatchTrigger(candidate.Trigger, event) {
					graph[rule.ID] = append(graph[rule.ID], candidate.ID)
				}
			}
		}
	}

	return graph
}

func hasSelfLoop(node string, graph triggerGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so warning output is deterministic.
func tarjanSCC(graph triggerGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToWarning(scc []string, graph triggerGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("self-triggering rule: %s -> %s", id, id),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: "potential rule cycle: " + strings.Join(path, " -> "),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges within the SCC from its first member
// until the walk returns to the start.
func reconstructCyclePath(scc []string, graph triggerGraph) []string {
	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{current: true}

	for {
		var next string
		for _, neighbor := range graph[current] {
			if neighbor == start && len(path) > 1 {
				return append(path, start)
			}
			if sccSet[neighbor] && !visited[neighbor] {
				next = neighbor
				break
			}
		}
		if next == "" {
			return append(path, start)
		}
		visited[next] = true
		path = append(path, next)
		current = next
	}
}

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlang/cgml/internal/cgml"
)

func emitRule(id, trigger, emits string) cgml.RuleDef {
	return cgml.RuleDef{
		ID:      id,
		Trigger: trigger,
		Effect:  []cgml.ActionDef{{Action: cgml.ActionEmitEvent, Event: emits}},
	}
}

func TestAnalyzeRuleCycles_DAGHasNoWarnings(t *testing.T) {
	rules := []cgml.RuleDef{
		emitRule("a", "on.play", "card_moved"),
		emitRule("b", "card_moved", "score_changed"),
		{ID: "c", Trigger: "score_changed", Effect: []cgml.ActionDef{{Action: cgml.ActionEndTurn}}},
	}

	assert.Empty(t, AnalyzeRuleCycles(rules))
}

func TestAnalyzeRuleCycles_SelfLoop(t *testing.T) {
	rules := []cgml.RuleDef{emitRule("echo", "card_moved", "card_moved")}

	warnings := AnalyzeRuleCycles(rules)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"echo", "echo"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
}

func TestAnalyzeRuleCycles_TwoRuleCycle(t *testing.T) {
	rules := []cgml.RuleDef{
		emitRule("ping", "pong_event", "ping_event"),
		emitRule("pong", "ping_event", "pong_event"),
	}

	warnings := AnalyzeRuleCycles(rules)
	require.Len(t, warnings, 1)
	assert.Len(t, warnings[0].Path, 3, "cycle path closes on its start")
}

func TestAnalyzeRuleCycles_WildcardTriggerEdges(t *testing.T) {
	rules := []cgml.RuleDef{
		{ID: "phased", Trigger: "on.phase.*", Effect: []cgml.ActionDef{{Action: cgml.ActionSetPhase, Phase: "draw"}}},
	}

	warnings := AnalyzeRuleCycles(rules)
	require.Len(t, warnings, 1, "SET_PHASE emits on.phase.draw, which on.phase.* matches")
}

func TestAnalyzeRuleCycles_RejectPlayEdges(t *testing.T) {
	rules := []cgml.RuleDef{
		{ID: "limit", Trigger: "on.play", Effect: []cgml.ActionDef{{Action: cgml.ActionRejectPlay}}},
		emitRule("retry", "on.play.rejected", "on.play"),
	}

	warnings := AnalyzeRuleCycles(rules)
	require.Len(t, warnings, 1, "REJECT_PLAY emits on.play.rejected, closing the loop")
	assert.Len(t, warnings[0].Path, 3, "cycle path closes on its start")
	assert.Contains(t, warnings[0].Path, "limit")
	assert.Contains(t, warnings[0].Path, "retry")
}

func TestAnalyzeRuleCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeRuleCycles(nil))
}

// Package compiler turns a merged, schema-validated document tree into the
// typed game definition the engine executes. It performs the static checks
// that need cross-field knowledge the structural schema cannot express:
// operator arities, per-action parameter requirements, state-graph
// consistency, and duplicate identifiers. All compile errors are fatal.
package compiler

import (
	"fmt"

	"github.com/cardlang/cgml/internal/cgml"
	"github.com/cardlang/cgml/internal/document"
)

// Compile builds a GameDef from a merged document tree.
// The tree is expected to have passed schema validation; the compiler still
// defends against shape surprises, but its diagnostics assume good faith.
func Compile(tree document.Tree) (*cgml.GameDef, error) {
	def := &cgml.GameDef{}

	version, _ := tree["cgml_version"].(string)
	if version == "" {
		return nil, errAt("cgml_version", "missing or not a string")
	}
	def.Version = version

	docHash, err := documentHash(tree)
	if err != nil {
		return nil, err
	}
	def.DocHash = docHash

	if err := compileMeta(tree, def); err != nil {
		return nil, err
	}
	if err := compileComponents(tree, def); err != nil {
		return nil, err
	}
	if err := compileSetup(tree, def); err != nil {
		return nil, err
	}
	if err := compileFlow(tree, def); err != nil {
		return nil, err
	}
	if err := compileRules(tree, def); err != nil {
		return nil, err
	}

	return def, nil
}

func documentHash(tree document.Tree) (string, error) {
	val, err := cgml.FromGo(map[string]any(tree))
	if err != nil {
		return "", errAt("", "document not hashable: %v", err)
	}
	return cgml.DocumentHash(val.(cgml.Map))
}

func compileMeta(tree document.Tree, def *cgml.GameDef) error {
	meta, ok := tree["meta"].(map[string]any)
	if !ok {
		return errAt("meta", "missing")
	}
	def.Meta.Name, _ = meta["name"].(string)

	players, ok := meta["players"].(map[string]any)
	if !ok {
		return errAt("meta.players", "missing")
	}
	def.Meta.Players.Min = intField(players, "min", 0)
	def.Meta.Players.Max = intField(players, "max", 0)
	if def.Meta.Players.Min < 1 || def.Meta.Players.Max < def.Meta.Players.Min {
		return errAt("meta.players", "invalid range %d..%d", def.Meta.Players.Min, def.Meta.Players.Max)
	}
	return nil
}

func compileComponents(tree document.Tree, def *cgml.GameDef) error {
	comps, ok := tree["components"].(map[string]any)
	if !ok {
		return errAt("components", "missing")
	}

	if err := compileDeckTypes(comps, def); err != nil {
		return err
	}
	if err := compileDecks(comps, def); err != nil {
		return err
	}
	if err := compileZones(comps, def); err != nil {
		return err
	}
	return compileVariables(comps, def)
}

func compileDeckTypes(comps map[string]any, def *cgml.GameDef) error {
	def.Components.DeckTypes = map[string]cgml.DeckTypeDef{}

	types, ok := comps["component_types"].(map[string]any)
	if !ok {
		return nil
	}
	deckTypes, ok := types["deck_types"].(map[string]any)
	if !ok {
		return nil
	}

	for name, raw := range deckTypes {
		node, ok := raw.(map[string]any)
		if !ok {
			return errAt("components.component_types.deck_types."+name, "must be a mapping")
		}
		dt := cgml.DeckTypeDef{Name: name}
		for _, r := range anyList(node["rank_hierarchy"]) {
			dt.RankHierarchy = append(dt.RankHierarchy, fmt.Sprint(r))
		}
		for i, rawEntry := range anyList(node["composition"]) {
			entry, ok := rawEntry.(map[string]any)
			if !ok {
				return errAt(fmt.Sprintf("components.component_types.deck_types.%s.composition[%d]", name, i), "must be a mapping")
			}
			comp := cgml.CompositionDef{
				Template: stringField(entry, "template"),
				Copies:   intField(entry, "copies", 1),
			}
			for _, s := range anyList(entry["suits"]) {
				comp.Suits = append(comp.Suits, fmt.Sprint(s))
			}
			for _, v := range anyList(entry["values"]) {
				comp.Values = append(comp.Values, fmt.Sprint(v))
			}
			dt.Composition = append(dt.Composition, comp)
		}
		def.Components.DeckTypes[name] = dt
	}
	return nil
}

func compileDecks(comps map[string]any, def *cgml.GameDef) error {
	decks, ok := comps["decks"].(map[string]any)
	if !ok {
		return nil
	}

	// Deck names sorted for deterministic card ID assignment; the document
	// shape is a mapping, so declaration order is not recoverable.
	for _, name := range sortedKeys(decks) {
		node, ok := decks[name].(map[string]any)
		if !ok {
			return errAt("components.decks."+name, "must be a mapping")
		}
		typeName := stringField(node, "type")
		if _, declared := def.Components.DeckTypes[typeName]; !declared {
			return errAt("components.decks."+name, "undeclared deck type %q", typeName)
		}
		def.Components.Decks = append(def.Components.Decks, cgml.DeckDef{Name: name, Type: typeName})
	}
	return nil
}

func compileZones(comps map[string]any, def *cgml.GameDef) error {
	seen := map[string]bool{}
	for i, raw := range anyList(comps["zones"]) {
		path := fmt.Sprintf("components.zones[%d]", i)
		node, ok := raw.(map[string]any)
		if !ok {
			return errAt(path, "must be a mapping")
		}
		zone := cgml.ZoneDef{
			Name:       stringField(node, "name"),
			Type:       stringField(node, "type"),
			OfDeck:     stringField(node, "of_deck"),
			PerPlayer:  boolField(node, "per_player"),
			Ordering:   cgml.Ordering(stringField(node, "ordering")),
			Visibility: stringField(node, "visibility"),
		}
		if zone.Name == "" {
			return errAt(path, "zone name is required")
		}
		if seen[zone.Name] {
			return errAt(path, "duplicate zone name %q", zone.Name)
		}
		seen[zone.Name] = true
		if zone.Ordering == "" {
			zone.Ordering = cgml.OrderingLIFO
		}
		switch zone.Ordering {
		case cgml.OrderingLIFO, cgml.OrderingFIFO, cgml.OrderingUnordered:
		default:
			return errAt(path, "invalid ordering %q", zone.Ordering)
		}
		def.Components.Zones = append(def.Components.Zones, zone)
	}
	return nil
}

func compileVariables(comps map[string]any, def *cgml.GameDef) error {
	seen := map[string]bool{}
	for i, raw := range anyList(comps["variables"]) {
		path := fmt.Sprintf("components.variables[%d]", i)
		node, ok := raw.(map[string]any)
		if !ok {
			return errAt(path, "must be a mapping")
		}

		v := cgml.VariableDef{
			Name:  stringField(node, "name"),
			Scope: cgml.VariableScope(stringField(node, "scope")),
		}
		if v.Name == "" {
			return errAt(path, "variable name is required")
		}
		if seen[v.Name] {
			return errAt(path, "duplicate variable name %q", v.Name)
		}
		seen[v.Name] = true
		if v.Scope == "" {
			v.Scope = cgml.ScopeGlobal
		}
		switch v.Scope {
		case cgml.ScopeGlobal, cgml.ScopePerPlayer, cgml.ScopePerTeam:
		default:
			return errAt(path, "invalid scope %q", v.Scope)
		}

		if rawInit, ok := node["initial"]; ok {
			val, err := cgml.FromGo(rawInit)
			if err != nil {
				return errAt(path+".initial", "%v", err)
			}
			v.Initial = val
		}

		computed, err := compileOptionalExpr(node, "computed", path)
		if err != nil {
			return err
		}
		v.Computed = computed
		if v.Computed != nil && v.Initial != nil {
			return errAt(path, "computed variable %q cannot also declare an initial value", v.Name)
		}
		if v.Computed == nil && v.Initial == nil {
			v.Initial = cgml.Int(0)
		}

		def.Components.Variables = append(def.Components.Variables, v)
	}
	return nil
}

func compileSetup(tree document.Tree, def *cgml.GameDef) error {
	for i, raw := range anyList(tree["setup"]) {
		action, err := compileAction(raw, fmt.Sprintf("setup[%d]", i))
		if err != nil {
			return err
		}
		def.Setup = append(def.Setup, *action)
	}
	return nil
}

func compileRules(tree document.Tree, def *cgml.GameDef) error {
	seen := map[string]bool{}
	for i, raw := range anyList(tree["rules"]) {
		path := fmt.Sprintf("rules[%d]", i)
		node, ok := raw.(map[string]any)
		if !ok {
			return errAt(path, "must be a mapping")
		}

		rule := cgml.RuleDef{
			ID:      stringField(node, "id"),
			Trigger: stringField(node, "trigger"),
		}
		if rule.ID == "" {
			return errAt(path, "rule id is required")
		}
		if seen[rule.ID] {
			return errAt(path, "duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = true
		if rule.Trigger == "" {
			return errAt(path, "rule trigger is required")
		}

		cond, err := compileOptionalExpr(node, "condition", path)
		if err != nil {
			return err
		}
		rule.Condition = cond

		effects := anyList(node["effect"])
		if len(effects) == 0 {
			return errAt(path, "rule effect must list at least one action")
		}
		for j, rawAction := range effects {
			action, err := compileAction(rawAction, fmt.Sprintf("%s.effect[%d]", path, j))
			if err != nil {
				return err
			}
			rule.Effect = append(rule.Effect, *action)
		}

		def.Rules = append(def.Rules, rule)
	}
	return nil
}

package cgml

// GameDef is a compiled game definition. Immutable after compilation -
// only game state mutates at runtime.
type GameDef struct {
	Version    string
	Meta       MetaDef
	Components ComponentsDef
	Setup      []ActionDef
	Flow       FlowDef
	Rules      []RuleDef

	// DocHash is the content hash of the merged document tree,
	// recorded in the trace header for replay verification.
	DocHash string
}

// MetaDef carries document metadata.
type MetaDef struct {
	Name    string
	Players PlayerRange
}

// PlayerRange bounds the supported player count.
type PlayerRange struct {
	Min int
	Max int
}

// ComponentsDef declares the physical pieces of the game.
type ComponentsDef struct {
	DeckTypes map[string]DeckTypeDef
	Decks     []DeckDef // declaration order preserved for deterministic card IDs
	Zones     []ZoneDef
	Variables []VariableDef
}

// DeckTypeDef describes a family of decks: how ranks compare and what
// cards the deck is composed of.
type DeckTypeDef struct {
	Name          string
	RankHierarchy []string
	Composition   []CompositionDef
}

// CompositionDef is one entry of a deck composition.
// Template "standard_suits" expands Values across the four French suits.
type CompositionDef struct {
	Template string
	Suits    []string
	Values   []string
	Copies   int
}

// DeckDef instantiates a deck of a declared type.
type DeckDef struct {
	Name string
	Type string
}

// Ordering defines zone mutation semantics.
type Ordering string

const (
	OrderingLIFO      Ordering = "lifo"
	OrderingFIFO      Ordering = "fifo"
	OrderingUnordered Ordering = "unordered"
)

// ZoneDef declares a card container.
type ZoneDef struct {
	Name       string
	Type       string
	OfDeck     string
	PerPlayer  bool
	Ordering   Ordering
	Visibility string
}

// VariableScope defines who owns a variable instance.
type VariableScope string

const (
	ScopeGlobal    VariableScope = "global"
	ScopePerPlayer VariableScope = "per_player"
	ScopePerTeam   VariableScope = "per_team"
)

// VariableDef declares a named variable. Computed variables carry an
// expression and are re-evaluated on read; they are never written.
type VariableDef struct {
	Name     string
	Scope    VariableScope
	Initial  Value
	Computed Expr
}

// PlayerOrder defines turn rotation semantics.
type PlayerOrder string

const (
	OrderClockwise        PlayerOrder = "clockwise"
	OrderCounterclockwise PlayerOrder = "counterclockwise"
	OrderSimultaneous     PlayerOrder = "simultaneous"
)

// FlowDef is the declared state machine: top-level states, each optionally
// containing a turn/phase sub-machine.
type FlowDef struct {
	InitialState string
	PlayerOrder  PlayerOrder
	States       []StateDef // declaration order preserved (transition tie-break)
}

// StateDef declares one top-level game state.
type StateDef struct {
	Name          string
	Terminal      bool
	TurnStructure []string // ordered phase cycle, empty if no sub-machine
	Transitions   []TransitionDef
	Evaluator     Expr // win evaluator, computed once at terminal entry
}

// TransitionDef declares an outgoing transition. From is the owning state.
// Transitions are checked in declaration order; the first whose condition
// holds fires.
type TransitionDef struct {
	To   string
	When Expr
}

// RuleDef is one trigger-condition-effect rule. Immutable at runtime.
type RuleDef struct {
	ID        string
	Trigger   string // event name, or prefix pattern ending in ".*"
	Condition Expr   // nil means always true
	Effect    []ActionDef
}

// Action tags registered with the executor.
const (
	ActionMove         = "MOVE"
	ActionMoveAll      = "MOVE_ALL"
	ActionDeal         = "DEAL"
	ActionDealAll      = "DEAL_ALL"
	ActionShuffle      = "SHUFFLE"
	ActionSetVariable  = "SET_VARIABLE"
	ActionRequestInput = "REQUEST_INPUT"
	ActionRejectPlay   = "REJECT_PLAY"
	ActionReturnToHand = "RETURN_TO_HAND"
	ActionEmitEvent    = "EMIT_EVENT"
	ActionSetPhase     = "SET_PHASE"
	ActionEndTurn      = "END_TURN"
	ActionSetState     = "SET_STATE"
)

// ActionDef is one compiled action. Fields are populated per the action's
// vocabulary; the compiler rejects missing required params, so handlers can
// assume their fields are present.
type ActionDef struct {
	Action string

	// Zone selectors (MOVE, MOVE_ALL, DEAL, DEAL_ALL, SHUFFLE).
	From     string
	To       string
	FromDeck string
	Target   string

	// Card selector (REJECT_PLAY, RETURN_TO_HAND); empty means "card.played".
	Card string

	Count  Expr // nil means 1 (MOVE) or deal-all semantics (DEAL_ALL)
	Filter Expr // nil means all candidate cards match

	// SET_VARIABLE.
	Name  string
	Owner string // owner selector for scoped variables, e.g. "player.current"
	Value Expr

	// REQUEST_INPUT.
	Player  string
	Prompt  string
	Options Expr

	// EMIT_EVENT.
	Event   string
	Payload map[string]Expr

	// FSM control.
	Phase string
	State string

	// StoreAs binds the action's result into the effect sequence's
	// scratch bindings (visible via ref: for the rest of the sequence).
	StoreAs string
}

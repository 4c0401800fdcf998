package teams

import "fieldops.ai/internal/sim/catalogs"

// Side is which faction an actor slot belongs to.
type Side int

const (
	SideAuthority Side = iota
	SideResistance
)

func (s Side) String() string {
	switch s {
	case SideAuthority:
		return "AUTHORITY"
	case SideResistance:
		return "RESISTANCE"
	default:
		return "UNKNOWN"
	}
}

// ActorRef identifies an actor slot on one side.
type ActorRef struct {
	Slot int  `json:"slot"`
	Side Side `json:"side"`
}

// ActorInfo is what the engine needs to know about one actor.
type ActorInfo struct {
	Slot     int
	Side     Side
	Name     string
	Active   bool
	Capacity int

	// PreferredArc biases cold-start seeding; -1 for none.
	PreferredArc int
	// NodeActions run against a node when this actor neutralises a team there.
	NodeActions []catalogs.EffectDef
}

// NodeInfo describes a node teams can be deployed to.
type NodeInfo struct {
	ID   int
	Name string
	// MaxTeams overrides the engine-wide per-node limit when > 0.
	MaxTeams int
}

// ActorLookup resolves actor slots per side.
type ActorLookup interface {
	Actor(slot int, side Side) (ActorInfo, bool)
	Actors(side Side) []ActorInfo
}

// NodeLookup resolves node ids.
type NodeLookup interface {
	Node(id int) (NodeInfo, bool)
}

type Clock interface {
	CurrentTurn() int
}

// EffectResult reports one node effect. Err means it was not applied.
type EffectResult struct {
	Applied bool
	Text    string
	Err     error
}

// EffectApplier applies arc effects and node actions to node state.
type EffectApplier interface {
	ApplyNodeEffect(effect catalogs.EffectDef, nodeID int, by ActorRef) EffectResult
}

// RenownLedger credits actors for completed deployments.
type RenownLedger interface {
	AddRenown(actor ActorRef, amount int)
}

// Rand returns an int in [min, maxExclusive). Only seeding uses it.
type Rand interface {
	Int(min, maxExclusive int) int
}

// Notifier receives engine events after each operation.
type Notifier interface {
	Notify(ev Event)
}

// Collaborators are the engine's view of the rest of the campaign. Nil
// members are tolerated: lookups fail, effects and notifications are dropped.
type Collaborators struct {
	Actors   ActorLookup
	Nodes    NodeLookup
	Clock    Clock
	Effects  EffectApplier
	Renown   RenownLedger
	Notifier Notifier
}

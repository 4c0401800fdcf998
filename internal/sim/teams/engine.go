// Package teams runs the team leasing lifecycle: teams of a catalogue arc move
// between the Available, Deployed and Cooldown pools, are held by authority
// actors while deployed to a node, and return through Cooldown when recalled,
// neutralised, or when their timer runs out.
//
// The engine is single-threaded. All state changes go through Engine methods.
package teams

import (
	"sort"

	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/tuning"
)

// Config holds the engine rules. Zero PickerMax and MaxTeamsPerNode fall
// back to 3.
type Config struct {
	DeployDuration       int
	MaxTeamsPerNode      int
	PickerMax            int
	PreferredBiasPercent int
	// Strict panics on any internal consistency violation after a mutation.
	Strict bool
}

// ConfigFromTuning maps campaign tuning onto engine rules.
func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		DeployDuration:       t.DeployDuration,
		MaxTeamsPerNode:      t.MaxTeamsPerNode,
		PickerMax:            t.PickerMax,
		PreferredBiasPercent: t.PreferredBiasPercent,
		Strict:               t.StrictInvariants,
	}
}

func (c Config) normalized() Config {
	if c.DeployDuration < 0 {
		c.DeployDuration = 0
	}
	if c.MaxTeamsPerNode <= 0 {
		c.MaxTeamsPerNode = 3
	}
	if c.PickerMax <= 0 {
		c.PickerMax = 3
	}
	if c.PreferredBiasPercent < 0 {
		c.PreferredBiasPercent = 0
	}
	if c.PreferredBiasPercent > 100 {
		c.PreferredBiasPercent = 100
	}
	return c
}

// Engine owns every team and the indices over them.
type Engine struct {
	cfg  Config
	arcs *catalogs.ArcCatalog
	c    Collaborators

	teams  map[int]*Team
	pools  [numPools]map[int]struct{}
	inv    []Inventory
	stats  []ArcStats
	nextID int
	seeded bool

	// deploySeq is the next deployment sequence number.
	deploySeq int

	// nodeTeams lists deployed team ids per node in deployment order.
	nodeTeams map[int][]int
	// held lists deployed team ids per authority actor slot in deployment order.
	held map[int][]int

	queue []Event
}

// New returns an empty, unseeded engine.
func New(cfg Config, arcs *catalogs.ArcCatalog, c Collaborators) *Engine {
	e := &Engine{
		cfg:  cfg.normalized(),
		arcs: arcs,
		c:    c,
	}
	e.reset()
	return e
}

func (e *Engine) reset() {
	n := e.arcs.Len()
	e.teams = map[int]*Team{}
	for i := range e.pools {
		e.pools[i] = map[int]struct{}{}
	}
	e.inv = make([]Inventory, n)
	e.stats = make([]ArcStats, n)
	e.nodeTeams = map[int][]int{}
	e.held = map[int][]int{}
	e.nextID = 0
	e.deploySeq = 0
	e.seeded = false
	e.queue = nil
}

func (e *Engine) Config() Config              { return e.cfg }
func (e *Engine) Arcs() *catalogs.ArcCatalog { return e.arcs }
func (e *Engine) Seeded() bool               { return e.seeded }

func (e *Engine) currentTurn() int {
	if e.c.Clock == nil {
		return 0
	}
	return e.c.Clock.CurrentTurn()
}

// Team returns the team with id, or nil.
func (e *Engine) Team(id int) *Team { return e.teams[id] }

// PoolIDs returns a sorted copy of the ids currently in pool p.
func (e *Engine) PoolIDs(p Pool) []int {
	set := e.pools[p]
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// PoolSize returns the number of teams in pool p.
func (e *Engine) PoolSize(p Pool) int { return len(e.pools[p]) }

// ArcInventory returns a copy of the counters for arc, and false for unknown arcs.
func (e *Engine) ArcInventory(arc int) (Inventory, bool) {
	if arc < 0 || arc >= len(e.inv) {
		return Inventory{}, false
	}
	return e.inv[arc], true
}

// Held returns a copy of the team ids held by an authority actor.
func (e *Engine) Held(slot int) []int {
	return append([]int(nil), e.held[slot]...)
}

// TeamsAt returns a copy of the team ids deployed at node.
func (e *Engine) TeamsAt(node int) []int {
	return append([]int(nil), e.nodeTeams[node]...)
}

func (e *Engine) setPool(t *Team, to Pool) {
	delete(e.pools[t.pool], t.id)
	e.pools[to][t.id] = struct{}{}
	e.inv[t.arc].move(t.pool, to)
	t.pool = to
}

func (e *Engine) checkStrict() {
	if !e.cfg.Strict {
		return
	}
	if err := e.Verify(); err != nil {
		panic(err)
	}
}

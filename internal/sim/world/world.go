// Package world holds the campaign state around the team engine: the actor
// roster, the nodes teams are deployed to, the renown ledger and the turn
// clock. A *World satisfies every collaborator interface the engine needs.
package world

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/teams"
)

type Actor struct {
	Slot         int
	Side         teams.Side
	Name         string
	Active       bool
	Capacity     int
	PreferredArc int
	NodeActions  []catalogs.EffectDef
}

// Node stats stay within 0..MaxStat.
type Node struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	MaxTeams int    `json:"max_teams"`

	Stability int `json:"stability"`
	Support   int `json:"support"`
	Security  int `json:"security"`

	Spider   bool `json:"spider"`
	Tracer   bool `json:"tracer"`
	Contacts bool `json:"contacts"`
}

type World struct {
	arcs   *catalogs.ArcCatalog
	actors map[teams.ActorRef]*Actor
	nodes  map[int]*Node
	renown map[teams.ActorRef]int
	turn   int
}

func New(cfg Config, arcs *catalogs.ArcCatalog) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := &World{
		arcs:   arcs,
		actors: map[teams.ActorRef]*Actor{},
		nodes:  map[int]*Node{},
		renown: map[teams.ActorRef]int{},
		turn:   1,
	}
	for _, a := range cfg.Actors {
		side, _ := parseSide(strings.ToLower(strings.TrimSpace(a.Side)))
		pref := -1
		if a.PreferredArc != "" {
			id, ok := arcs.ByName[strings.ToUpper(a.PreferredArc)]
			if !ok {
				return nil, fmt.Errorf("actor %q: unknown preferred arc %q", a.Name, a.PreferredArc)
			}
			pref = id
		}
		w.actors[teams.ActorRef{Slot: a.Slot, Side: side}] = &Actor{
			Slot:         a.Slot,
			Side:         side,
			Name:         a.Name,
			Active:       a.Active,
			Capacity:     a.Capacity,
			PreferredArc: pref,
			NodeActions:  toEffects(a.NodeActions),
		}
	}
	for _, n := range cfg.Nodes {
		w.nodes[n.ID] = &Node{
			ID:        n.ID,
			Name:      n.Name,
			MaxTeams:  n.MaxTeams,
			Stability: clampStat(n.Stability),
			Support:   clampStat(n.Support),
			Security:  clampStat(n.Security),
		}
	}
	return w, nil
}

func parseSide(s string) (teams.Side, bool) {
	switch s {
	case "authority":
		return teams.SideAuthority, true
	case "resistance":
		return teams.SideResistance, true
	}
	return 0, false
}

// Collaborators wires the world into a team engine. n may be nil.
func (w *World) Collaborators(n teams.Notifier) teams.Collaborators {
	return teams.Collaborators{
		Actors:   w,
		Nodes:    w,
		Clock:    w,
		Effects:  w,
		Renown:   w,
		Notifier: n,
	}
}

func (w *World) CurrentTurn() int { return w.turn }

// AdvanceTurn moves the clock forward and returns the new turn.
func (w *World) AdvanceTurn() int {
	w.turn++
	return w.turn
}

func (w *World) SetTurn(turn int) { w.turn = turn }

func (w *World) Actor(slot int, side teams.Side) (teams.ActorInfo, bool) {
	a, ok := w.actors[teams.ActorRef{Slot: slot, Side: side}]
	if !ok {
		return teams.ActorInfo{}, false
	}
	return a.info(), true
}

func (w *World) Actors(side teams.Side) []teams.ActorInfo {
	var out []teams.ActorInfo
	for ref, a := range w.actors {
		if ref.Side == side {
			out = append(out, a.info())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func (a *Actor) info() teams.ActorInfo {
	return teams.ActorInfo{
		Slot:         a.Slot,
		Side:         a.Side,
		Name:         a.Name,
		Active:       a.Active,
		Capacity:     a.Capacity,
		PreferredArc: a.PreferredArc,
		NodeActions:  append([]catalogs.EffectDef(nil), a.NodeActions...),
	}
}

// SetActive toggles an actor. Teams it already holds stay deployed.
func (w *World) SetActive(ref teams.ActorRef, active bool) error {
	a, ok := w.actors[ref]
	if !ok {
		return fmt.Errorf("%s actor %d not found", strings.ToLower(ref.Side.String()), ref.Slot)
	}
	a.Active = active
	return nil
}

func (w *World) Node(id int) (teams.NodeInfo, bool) {
	n, ok := w.nodes[id]
	if !ok {
		return teams.NodeInfo{}, false
	}
	return teams.NodeInfo{ID: n.ID, Name: n.Name, MaxTeams: n.MaxTeams}, true
}

// NodeState returns a copy of the node's current stats.
func (w *World) NodeState(id int) (Node, bool) {
	n, ok := w.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of every node ordered by id.
func (w *World) Nodes() []Node {
	out := make([]Node, 0, len(w.nodes))
	for _, n := range w.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) AddRenown(actor teams.ActorRef, amount int) {
	w.renown[actor] += amount
}

func (w *World) Renown(actor teams.ActorRef) int { return w.renown[actor] }

type RenownEntry struct {
	Slot   int        `json:"slot"`
	Side   teams.Side `json:"side"`
	Renown int        `json:"renown"`
}

// RenownTable lists non-zero balances ordered by side then slot.
func (w *World) RenownTable() []RenownEntry {
	out := make([]RenownEntry, 0, len(w.renown))
	for ref, v := range w.renown {
		if v == 0 {
			continue
		}
		out = append(out, RenownEntry{Slot: ref.Slot, Side: ref.Side, Renown: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Side != out[j].Side {
			return out[i].Side < out[j].Side
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

// RNG adapts math/rand to the engine's Rand.
type RNG struct {
	r *rand.Rand
}

func NewRNG(seed int64) *RNG { return &RNG{r: rand.New(rand.NewSource(seed))} }

func (g *RNG) Int(min, maxExclusive int) int {
	if maxExclusive <= min {
		return min
	}
	return min + g.r.Intn(maxExclusive-min)
}

// Percent reports whether a roll in [0,100) lands below p.
func (g *RNG) Percent(p int) bool { return g.r.Intn(100) < p }

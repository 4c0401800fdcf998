package world

import (
	"fmt"

	"fieldops.ai/internal/sim/teams"
)

// State is the mutable part of a world. The roster itself comes from config.
type State struct {
	Turn   int           `json:"turn"`
	Nodes  []Node        `json:"nodes"`
	Active []ActiveFlag  `json:"active"`
	Renown []RenownEntry `json:"renown"`
}

type ActiveFlag struct {
	Slot   int        `json:"slot"`
	Side   teams.Side `json:"side"`
	Active bool       `json:"active"`
}

func (w *World) ExportState() State {
	s := State{
		Turn:   w.turn,
		Nodes:  w.Nodes(),
		Renown: w.RenownTable(),
	}
	for _, side := range []teams.Side{teams.SideAuthority, teams.SideResistance} {
		for _, a := range w.Actors(side) {
			s.Active = append(s.Active, ActiveFlag{Slot: a.Slot, Side: a.Side, Active: a.Active})
		}
	}
	return s
}

// ImportState overlays s onto a world built from the same config. Nodes and
// actors it names must already exist.
func (w *World) ImportState(s State) error {
	for _, n := range s.Nodes {
		if _, ok := w.nodes[n.ID]; !ok {
			return fmt.Errorf("snapshot node %d not in world config", n.ID)
		}
	}
	for _, f := range s.Active {
		if _, ok := w.actors[teams.ActorRef{Slot: f.Slot, Side: f.Side}]; !ok {
			return fmt.Errorf("snapshot %s actor %d not in world config", f.Side, f.Slot)
		}
	}

	w.turn = s.Turn
	for _, n := range s.Nodes {
		cur := w.nodes[n.ID]
		cur.Stability = clampStat(n.Stability)
		cur.Support = clampStat(n.Support)
		cur.Security = clampStat(n.Security)
		cur.Spider = n.Spider
		cur.Tracer = n.Tracer
		cur.Contacts = n.Contacts
	}
	for _, f := range s.Active {
		w.actors[teams.ActorRef{Slot: f.Slot, Side: f.Side}].Active = f.Active
	}
	w.renown = map[teams.ActorRef]int{}
	for _, r := range s.Renown {
		w.renown[teams.ActorRef{Slot: r.Slot, Side: r.Side}] = r.Renown
	}
	return nil
}

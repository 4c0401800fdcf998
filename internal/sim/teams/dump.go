package teams

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

type ArcRow struct {
	Arc     int    `json:"arc"`
	ArcName string `json:"arc_name"`
	Inventory
	Stats ArcStats `json:"stats"`
}

type Holding struct {
	Actor    int    `json:"actor"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Capacity int    `json:"capacity"`
	Teams    []int  `json:"teams"`
}

// Dump is the read-only diagnostic view used by tooling.
type Dump struct {
	Turn      int        `json:"turn"`
	Inventory []ArcRow   `json:"inventory"`
	Holdings  []Holding  `json:"holdings"`
	Teams     []TeamView `json:"teams"`
	Digest    string     `json:"digest"`
}

func (e *Engine) Inventory() []ArcRow {
	rows := make([]ArcRow, len(e.inv))
	for arc := range e.inv {
		rows[arc] = ArcRow{Arc: arc, ArcName: e.arcs.Name(arc), Inventory: e.inv[arc], Stats: e.stats[arc]}
	}
	return rows
}

// Holdings lists every authority actor known to the roster, plus any slot
// that holds teams without a roster entry.
func (e *Engine) Holdings() []Holding {
	byActor := map[int]Holding{}
	if e.c.Actors != nil {
		for _, a := range e.c.Actors.Actors(SideAuthority) {
			byActor[a.Slot] = Holding{Actor: a.Slot, Name: a.Name, Active: a.Active, Capacity: a.Capacity}
		}
	}
	for slot, ids := range e.held {
		h, ok := byActor[slot]
		if !ok {
			h = Holding{Actor: slot, Name: fmt.Sprintf("actor %d", slot)}
		}
		h.Teams = append([]int(nil), ids...)
		byActor[slot] = h
	}
	out := make([]Holding, 0, len(byActor))
	for _, h := range byActor {
		if h.Teams == nil {
			h.Teams = []int{}
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out
}

func (e *Engine) view(t *Team) TeamView {
	return TeamView{
		ID:           t.id,
		Arc:          t.arc,
		ArcName:      e.arcs.Name(t.arc),
		Name:         t.name,
		Pool:         t.pool.String(),
		Actor:        t.actor,
		Node:         t.node,
		Timer:        t.timer,
		TurnDeployed: t.turnDeployed,
		DeploySeq:    t.seq,
	}
}

// Teams returns every team ordered by id.
func (e *Engine) Teams() []TeamView {
	ids := make([]int, 0, len(e.teams))
	for id := range e.teams {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]TeamView, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.view(e.teams[id]))
	}
	return out
}

func (e *Engine) Dump() Dump {
	rows := e.Teams()
	return Dump{
		Turn:      e.currentTurn(),
		Inventory: e.Inventory(),
		Holdings:  e.Holdings(),
		Teams:     rows,
		Digest:    digestRows(rows),
	}
}

// Digest hashes the team table; equal digests mean equal lease state.
func (e *Engine) Digest() string { return digestRows(e.Teams()) }

func digestRows(rows []TeamView) string {
	h := sha256.New()
	for _, r := range rows {
		fmt.Fprintf(h, "%d|%d|%s|%d|%d|%d|%d|%d\n", r.ID, r.Arc, r.Pool, r.Actor, r.Node, r.Timer, r.TurnDeployed, r.DeploySeq)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WriteDump prints the three diagnostic tables.
func (e *Engine) WriteDump(w io.Writer) error {
	d := e.Dump()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "-- inventory (turn %d)\n", d.Turn)
	fmt.Fprintln(tw, "ARC\tAVAIL\tDEPLOYED\tCOOLDOWN\tTOTAL\tDEPLOYS\tRECALLS\tNEUTRALISED\tEXPIRED")
	for _, r := range d.Inventory {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", r.ArcName, r.Available, r.Deployed, r.Cooldown, r.Total,
			r.Stats.Deployed, r.Stats.Recalled, r.Stats.Neutralised, r.Stats.Expired)
	}

	fmt.Fprintln(tw, "\n-- holdings")
	fmt.Fprintln(tw, "ACTOR\tNAME\tACTIVE\tHELD\tTEAMS")
	for _, h := range d.Holdings {
		ids := make([]string, len(h.Teams))
		for i, id := range h.Teams {
			ids[i] = itoa(id)
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%d/%d\t%s\n", h.Actor, h.Name, h.Active, len(h.Teams), h.Capacity, strings.Join(ids, ","))
	}

	fmt.Fprintln(tw, "\n-- teams")
	fmt.Fprintln(tw, "ID\tNAME\tPOOL\tACTOR\tNODE\tTIMER\tDEPLOYED_TURN")
	for _, t := range d.Teams {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n", t.ID, t.Name, t.Pool, t.Actor, t.Node, t.Timer, t.TurnDeployed)
	}
	fmt.Fprintf(tw, "\ndigest %s\n", d.Digest)
	return tw.Flush()
}

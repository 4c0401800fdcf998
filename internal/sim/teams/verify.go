package teams

import (
	"fmt"
	"sort"
)

// Verify checks every cross-structure invariant and returns the first
// violation as an E_INVARIANT error.
func (e *Engine) Verify() error {
	bad := func(format string, args ...any) error {
		return &Error{Code: CodeInvariantBreak, Msg: fmt.Sprintf(format, args...)}
	}

	// Pool sets partition the registry.
	seen := 0
	for p := range e.pools {
		for id := range e.pools[p] {
			t, ok := e.teams[id]
			if !ok {
				return bad("pool %s holds unknown team %d", Pool(p), id)
			}
			if t.pool != Pool(p) {
				return bad("team %d is %s but sits in pool set %s", id, t.pool, Pool(p))
			}
			seen++
		}
	}
	if seen != len(e.teams) {
		return bad("pool sets hold %d ids, registry has %d", seen, len(e.teams))
	}

	// Per-team placement fields, recomputed inventory and indices.
	counts := make([]Inventory, len(e.inv))
	wantNode := map[int][]int{}
	wantHeld := map[int][]int{}
	for id, t := range e.teams {
		if t.id != id {
			return bad("team keyed %d reports id %d", id, t.id)
		}
		if t.arc < 0 || t.arc >= len(e.inv) {
			return bad("team %d has unknown arc %d", id, t.arc)
		}
		if id >= e.nextID {
			return bad("team %d at or above next id %d", id, e.nextID)
		}
		switch t.pool {
		case PoolDeployed:
			if t.actor < 0 || t.node < 0 || t.timer < 0 {
				return bad("deployed team %d has actor=%d node=%d timer=%d", id, t.actor, t.node, t.timer)
			}
			if t.seq < 0 || t.seq >= e.deploySeq {
				return bad("deployed team %d has deploy seq %d, next is %d", id, t.seq, e.deploySeq)
			}
			wantNode[t.node] = append(wantNode[t.node], id)
			wantHeld[t.actor] = append(wantHeld[t.actor], id)
		default:
			if t.actor != -1 || t.node != -1 || t.timer != -1 || t.seq != -1 {
				return bad("%s team %d has actor=%d node=%d timer=%d", t.pool, id, t.actor, t.node, t.timer)
			}
		}
		*counts[t.arc].slot(t.pool)++
		counts[t.arc].Total++
	}
	for arc, inv := range e.inv {
		if !inv.balanced() {
			return bad("arc %s inventory unbalanced: %+v", e.arcs.Name(arc), inv)
		}
		if inv != counts[arc] {
			return bad("arc %s inventory %+v, teams say %+v", e.arcs.Name(arc), inv, counts[arc])
		}
	}

	if err := sameIndex("node", e.nodeTeams, wantNode); err != nil {
		return bad("%v", err)
	}
	if err := sameIndex("actor", e.held, wantHeld); err != nil {
		return bad("%v", err)
	}

	// Every occupied node must still be one admit would have accepted.
	if e.c.Nodes != nil {
		for nodeID, ids := range e.nodeTeams {
			n, ok := e.c.Nodes.Node(nodeID)
			if !ok {
				return bad("teams %v deployed at unknown node %d", ids, nodeID)
			}
			if limit := e.nodeLimit(n); len(ids) > limit {
				return bad("node %s holds %d teams over limit %d", n.Name, len(ids), limit)
			}
			arcs := map[int]int{}
			for _, id := range ids {
				if prev, dup := arcs[e.teams[id].arc]; dup {
					return bad("node %s holds teams %d and %d of arc %s", n.Name, prev, id, e.arcs.Name(e.teams[id].arc))
				}
				arcs[e.teams[id].arc] = id
			}
		}
	}

	if e.c.Actors != nil {
		for slot, ids := range e.held {
			if a, ok := e.c.Actors.Actor(slot, SideAuthority); ok && len(ids) > a.Capacity {
				return bad("actor %d holds %d teams over capacity %d", slot, len(ids), a.Capacity)
			}
		}
	}
	return nil
}

func sameIndex(label string, got, want map[int][]int) error {
	if len(got) != len(want) {
		return fmt.Errorf("%s index has %d keys, want %d", label, len(got), len(want))
	}
	for k, w := range want {
		g := append([]int(nil), got[k]...)
		sort.Ints(g)
		sort.Ints(w)
		if len(g) != len(w) {
			return fmt.Errorf("%s %d lists %v, want %v", label, k, g, w)
		}
		for i := range g {
			if g[i] != w[i] {
				return fmt.Errorf("%s %d lists %v, want %v", label, k, g, w)
			}
		}
	}
	return nil
}

package campaign

import (
	"errors"
	"sort"

	"fieldops.ai/internal/sim/teams"
	"fieldops.ai/internal/sim/world"
)

// playPolicy runs the scripted actors for one turn, in three phases:
//   - authority actors with spare capacity deploy their preferred arc (or the
//     best-stocked one) to the least secure node that admits it;
//   - nodes at or above the recall threshold have their oldest team recalled;
//   - resistance actors neutralise a team at the node with the most support.
func (r *Runner) playPolicy(rng *world.RNG) (deployed []int, outcomes []teams.Outcome) {
	p := r.tune.Policy

	for _, a := range r.world.Actors(teams.SideAuthority) {
		if !a.Active || len(r.engine.Held(a.Slot)) >= a.Capacity {
			continue
		}
		if !rng.Percent(p.DeployChancePercent) {
			continue
		}
		arc := r.pickArc(a)
		if arc < 0 {
			continue
		}
		if id, ok := r.deployAnywhere(arc, a); ok {
			deployed = append(deployed, id)
		}
	}

	if p.RecallSecurityThreshold > 0 {
		for _, n := range r.world.Nodes() {
			if n.Security < p.RecallSecurityThreshold || len(r.engine.TeamsAt(n.ID)) == 0 {
				continue
			}
			pick, err := r.engine.InitiateRecall(n.ID)
			if err != nil {
				continue
			}
			outcomes = append(outcomes, r.engine.ResolveRecall(pick.Options[0].TeamID, n.ID))
		}
	}

	for _, a := range r.world.Actors(teams.SideResistance) {
		if !a.Active || !rng.Percent(p.NeutraliseChancePercent) {
			continue
		}
		node, ok := r.hottestNode()
		if !ok {
			break
		}
		pick, err := r.engine.InitiateCancellation(node, a.Slot)
		if err != nil {
			continue
		}
		choice := pick.Options[rng.Int(0, len(pick.Options))]
		outcomes = append(outcomes, r.engine.ResolveCancellation(choice.TeamID, node, a.Slot))
	}
	return deployed, outcomes
}

// pickArc returns the actor's preferred arc if any of it is in reserve,
// otherwise the arc with the most Available teams, or -1.
func (r *Runner) pickArc(a teams.ActorInfo) int {
	if inv, ok := r.engine.ArcInventory(a.PreferredArc); ok && inv.Available > 0 {
		return a.PreferredArc
	}
	best, most := -1, 0
	for arc := 0; arc < r.cats.Arcs.Len(); arc++ {
		inv, _ := r.engine.ArcInventory(arc)
		if inv.Available > most {
			best, most = arc, inv.Available
		}
	}
	return best
}

func (r *Runner) deployAnywhere(arc int, a teams.ActorInfo) (int, bool) {
	nodes := r.world.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Security < nodes[j].Security })
	for _, n := range nodes {
		id, err := r.engine.Deploy(arc, a.Slot, n.ID)
		if err == nil {
			return id, true
		}
		if !errors.Is(err, teams.ErrNodeRejected) {
			r.logger.Printf("policy: %s cannot deploy %s: %v", a.Name, r.cats.Arcs.Name(arc), err)
			return -1, false
		}
	}
	return -1, false
}

// hottestNode is the occupied node with the highest support, lowest id first.
func (r *Runner) hottestNode() (int, bool) {
	best, support := -1, -1
	for _, n := range r.world.Nodes() {
		if len(r.engine.TeamsAt(n.ID)) == 0 {
			continue
		}
		if n.Support > support {
			best, support = n.ID, n.Support
		}
	}
	return best, best >= 0
}

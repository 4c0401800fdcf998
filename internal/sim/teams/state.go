package teams

import "sort"

// State is the engine's persistent form.
type State struct {
	NextTeamID    int        `json:"next_team_id"`
	NextDeploySeq int        `json:"next_deploy_seq"`
	Teams         []TeamView `json:"teams"`
	Stats         []ArcStats `json:"stats"`
}

func (e *Engine) ExportState() State {
	return State{
		NextTeamID:    e.nextID,
		NextDeploySeq: e.deploySeq,
		Teams:         e.Teams(),
		Stats:         append([]ArcStats(nil), e.stats...),
	}
}

// ImportState replaces all engine state with s and rebuilds the indices from
// the team rows. On error the engine is left empty and unseeded.
func (e *Engine) ImportState(s State) error {
	e.reset()
	if err := e.importState(s); err != nil {
		e.reset()
		return err
	}
	return nil
}

func (e *Engine) importState(s State) error {
	for _, r := range s.Teams {
		if _, dup := e.teams[r.ID]; dup {
			return errf(CodeBadState, "duplicate team id %d", r.ID)
		}
		if _, ok := e.arcs.Arc(r.Arc); !ok {
			return errf(CodeBadState, "team %d has unknown arc %d", r.ID, r.Arc)
		}
		pool, ok := ParsePool(r.Pool)
		if !ok {
			return errf(CodeBadState, "team %d has unknown pool %q", r.ID, r.Pool)
		}
		t := &Team{
			id:           r.ID,
			arc:          r.Arc,
			name:         r.Name,
			pool:         pool,
			actor:        r.Actor,
			node:         r.Node,
			timer:        r.Timer,
			turnDeployed: r.TurnDeployed,
			seq:          -1,
		}
		e.teams[t.id] = t
		e.pools[pool][t.id] = struct{}{}
		*e.inv[t.arc].slot(pool)++
		e.inv[t.arc].Total++
		if pool == PoolDeployed {
			t.seq = r.DeploySeq
			if t.seq >= e.deploySeq {
				e.deploySeq = t.seq + 1
			}
			e.nodeTeams[t.node] = append(e.nodeTeams[t.node], t.id)
			e.held[t.actor] = append(e.held[t.actor], t.id)
		}
	}
	for _, idx := range []map[int][]int{e.nodeTeams, e.held} {
		for k := range idx {
			e.sortByDeployment(idx[k])
		}
	}
	for i, st := range s.Stats {
		if i < len(e.stats) {
			e.stats[i] = st
		}
	}
	e.nextID = s.NextTeamID
	if s.NextDeploySeq > e.deploySeq {
		e.deploySeq = s.NextDeploySeq
	}
	e.seeded = true
	if err := e.Verify(); err != nil {
		return errf(CodeBadState, "%v", err)
	}
	return nil
}

// sortByDeployment restores deployment order; ties fall back to
// (turnDeployed, id).
func (e *Engine) sortByDeployment(ids []int) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := e.teams[ids[i]], e.teams[ids[j]]
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		if a.turnDeployed != b.turnDeployed {
			return a.turnDeployed < b.turnDeployed
		}
		return a.id < b.id
	})
}

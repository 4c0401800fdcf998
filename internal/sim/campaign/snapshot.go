package campaign

import (
	"fmt"

	"fieldops.ai/internal/persistence/snapshot"
	"fieldops.ai/internal/sim/teams"
	"fieldops.ai/internal/sim/world"
)

// ExportSnapshot captures the campaign after the last completed turn.
func (r *Runner) ExportSnapshot() snapshot.SnapshotV1 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exportLocked()
}

func (r *Runner) exportLocked() snapshot.SnapshotV1 {
	es := r.engine.ExportState()
	ws := r.world.ExportState()

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:    snapshot.Version,
			CampaignID: r.id,
			Turn:       ws.Turn - 1,
		},
		Seed:            r.tune.Seed,
		DeployDuration:  r.tune.DeployDuration,
		MaxTeamsPerNode: r.tune.MaxTeamsPerNode,
		ArcsDigest:      r.cats.Arcs.Digest,
		NextTeamID:      es.NextTeamID,
		NextDeploySeq:   es.NextDeploySeq,
		Digest:          r.engine.Digest(),
	}
	for _, t := range es.Teams {
		snap.Teams = append(snap.Teams, snapshot.TeamV1{
			ID:           t.ID,
			Arc:          t.Arc,
			Name:         t.Name,
			Pool:         t.Pool,
			Actor:        t.Actor,
			Node:         t.Node,
			Timer:        t.Timer,
			TurnDeployed: t.TurnDeployed,
			DeploySeq:    t.DeploySeq,
		})
	}
	for _, s := range es.Stats {
		snap.Stats = append(snap.Stats, snapshot.ArcStatsV1(s))
	}
	for _, n := range ws.Nodes {
		snap.Nodes = append(snap.Nodes, snapshot.NodeV1{
			ID:        n.ID,
			Stability: n.Stability,
			Support:   n.Support,
			Security:  n.Security,
			Spider:    n.Spider,
			Tracer:    n.Tracer,
			Contacts:  n.Contacts,
		})
	}
	for _, a := range ws.Active {
		snap.Active = append(snap.Active, snapshot.ActiveV1{Slot: a.Slot, Side: int(a.Side), Active: a.Active})
	}
	for _, e := range ws.Renown {
		snap.Renown = append(snap.Renown, snapshot.RenownV1{Slot: e.Slot, Side: int(e.Side), Renown: e.Renown})
	}
	return snap
}

// Restore rebuilds a campaign from snap. The arc catalogue must be the one the
// snapshot was taken with, and the world config must still name every node
// and actor the snapshot refers to. Deploy duration and the node limit must
// match opts.Tuning. The next StepOnce plays turn
// snap.Header.Turn+1.
func Restore(opts Options, snap snapshot.SnapshotV1) (*Runner, error) {
	if opts.Catalogs != nil && snap.ArcsDigest != "" && snap.ArcsDigest != opts.Catalogs.Arcs.Digest {
		return nil, fmt.Errorf("campaign: snapshot arcs digest %s does not match catalogue %s", short(snap.ArcsDigest), short(opts.Catalogs.Arcs.Digest))
	}
	if snap.DeployDuration != opts.Tuning.DeployDuration || snap.MaxTeamsPerNode != opts.Tuning.MaxTeamsPerNode {
		return nil, fmt.Errorf("campaign: snapshot rules deploy_duration=%d max_teams_per_node=%d, tuning has %d and %d",
			snap.DeployDuration, snap.MaxTeamsPerNode, opts.Tuning.DeployDuration, opts.Tuning.MaxTeamsPerNode)
	}
	if snap.Header.CampaignID != "" {
		opts.CampaignID = snap.Header.CampaignID
	}
	opts.Tuning.Seed = snap.Seed
	r, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	es := teams.State{NextTeamID: snap.NextTeamID, NextDeploySeq: snap.NextDeploySeq}
	for _, t := range snap.Teams {
		es.Teams = append(es.Teams, teams.TeamView{
			ID:           t.ID,
			Arc:          t.Arc,
			ArcName:      r.cats.Arcs.Name(t.Arc),
			Name:         t.Name,
			Pool:         t.Pool,
			Actor:        t.Actor,
			Node:         t.Node,
			Timer:        t.Timer,
			TurnDeployed: t.TurnDeployed,
			DeploySeq:    t.DeploySeq,
		})
	}
	for _, s := range snap.Stats {
		es.Stats = append(es.Stats, teams.ArcStats(s))
	}

	ws := world.State{Turn: snap.Header.Turn + 1}
	for _, n := range snap.Nodes {
		ws.Nodes = append(ws.Nodes, world.Node{
			ID:        n.ID,
			Stability: n.Stability,
			Support:   n.Support,
			Security:  n.Security,
			Spider:    n.Spider,
			Tracer:    n.Tracer,
			Contacts:  n.Contacts,
		})
	}
	for _, a := range snap.Active {
		ws.Active = append(ws.Active, world.ActiveFlag{Slot: a.Slot, Side: teams.Side(a.Side), Active: a.Active})
	}
	for _, e := range snap.Renown {
		ws.Renown = append(ws.Renown, world.RenownEntry{Slot: e.Slot, Side: teams.Side(e.Side), Renown: e.Renown})
	}

	// The world goes first so the engine's capacity checks see restored actors.
	if err := r.world.ImportState(ws); err != nil {
		return nil, fmt.Errorf("campaign: restore world: %w", err)
	}
	if err := r.engine.ImportState(es); err != nil {
		return nil, fmt.Errorf("campaign: restore teams: %w", err)
	}
	if snap.Digest != "" && snap.Digest != r.engine.Digest() {
		return nil, fmt.Errorf("campaign: restored digest %s does not match snapshot %s", short(r.engine.Digest()), short(snap.Digest))
	}
	r.events = nil
	return r, nil
}

func short(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

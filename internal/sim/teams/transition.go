package teams

// TransitionRequest carries the actor and node for a move into Deployed.
// Other destinations ignore it. The zero value names neither; build one with
// Placement.
type TransitionRequest struct {
	Actor    int
	Node     int
	HasActor bool
	HasNode  bool
}

// Placement is the request for deploying under actor to node.
func Placement(actor, node int) TransitionRequest {
	return TransitionRequest{Actor: actor, Node: node, HasActor: true, HasNode: true}
}

// Transition moves team id into dest. The allowed moves are
// Available->Deployed, Deployed->Cooldown and Cooldown->Available.
// A refused move returns an *Error and changes nothing.
func (e *Engine) Transition(dest Pool, id int, req TransitionRequest) error {
	err := e.transition(dest, id, req, EventTeamRecalled)
	e.flush()
	return err
}

// Deploy sends the lowest-id Available team of arc to node under actor and
// returns its id.
func (e *Engine) Deploy(arc, actor, node int) (int, error) {
	if _, ok := e.ArcInventory(arc); !ok {
		return -1, errf(CodeInvalidTeam, "unknown arc %d", arc)
	}
	id := e.firstAvailable(arc)
	if id < 0 {
		return -1, errf(CodeArcExhausted, "no %s team available", e.arcs.Name(arc))
	}
	if err := e.Transition(PoolDeployed, id, Placement(actor, node)); err != nil {
		return -1, err
	}
	return id, nil
}

func (e *Engine) firstAvailable(arc int) int {
	best := -1
	for id := range e.pools[PoolAvailable] {
		if e.teams[id].arc == arc && (best < 0 || id < best) {
			best = id
		}
	}
	return best
}

// transition is the single mutation path. exitKind labels a Deployed->Cooldown
// move for stats and events.
func (e *Engine) transition(dest Pool, id int, req TransitionRequest, exitKind EventKind) error {
	t, ok := e.teams[id]
	if !ok {
		return errf(CodeInvalidTeam, "team %d not found", id)
	}
	switch dest {
	case PoolDeployed:
		return e.deploy(t, req)
	case PoolCooldown:
		if t.pool != PoolDeployed {
			return errf(CodeInvalidTeam, "team %d is %s, not DEPLOYED", id, t.pool)
		}
		e.withdraw(t, exitKind)
		return nil
	case PoolAvailable:
		if t.pool != PoolCooldown {
			return errf(CodeInvalidTeam, "team %d is %s, not COOLDOWN", id, t.pool)
		}
		e.release(t)
		return nil
	default:
		return errf(CodeInvalidTeam, "bad destination pool %d", int(dest))
	}
}

// deploy checks, in order: arc inventory, source pool, actor, node.
func (e *Engine) deploy(t *Team, req TransitionRequest) error {
	if e.inv[t.arc].Available <= 0 {
		return errf(CodeArcExhausted, "no %s team available", e.arcs.Name(t.arc))
	}
	if t.pool != PoolAvailable {
		return errf(CodeInvalidTeam, "team %d is %s, not AVAILABLE", t.id, t.pool)
	}

	if !req.HasActor {
		return errf(CodeActorNotFound, "no actor given for %s", t.name)
	}
	if e.c.Actors == nil {
		return errf(CodeActorNotFound, "actor %d not found", req.Actor)
	}
	a, ok := e.c.Actors.Actor(req.Actor, SideAuthority)
	if !ok {
		return errf(CodeActorNotFound, "actor %d not found", req.Actor)
	}
	if !a.Active {
		return errf(CodeActorInactive, "%s is not active", a.Name)
	}
	if held := len(e.held[req.Actor]); held >= a.Capacity {
		return errf(CodeActorAtCap, "%s already holds %d of %d teams", a.Name, held, a.Capacity)
	}

	if !req.HasNode {
		return errf(CodeNodeRejected, "no node given for %s", t.name)
	}
	if err := e.admit(req.Node, t.arc); err != nil {
		return err
	}

	e.setPool(t, PoolDeployed)
	t.actor = req.Actor
	t.node = req.Node
	t.timer = e.cfg.DeployDuration
	t.turnDeployed = e.currentTurn()
	t.seq = e.deploySeq
	e.deploySeq++
	e.nodeTeams[req.Node] = append(e.nodeTeams[req.Node], t.id)
	e.held[req.Actor] = append(e.held[req.Actor], t.id)
	e.stats[t.arc].Deployed++

	e.emit(Event{
		Kind:   EventTeamDeployed,
		TeamID: t.id,
		Arc:    t.arc,
		Actor:  t.actor,
		Node:   t.node,
		Text:   t.name + " deployed to " + e.nodeName(t.node) + " by " + a.Name,
	})
	e.checkStrict()
	return nil
}

// withdraw moves a Deployed team to Cooldown and clears its placement.
func (e *Engine) withdraw(t *Team, kind EventKind) {
	actor, node := t.actor, t.node

	e.nodeTeams[node] = removeID(e.nodeTeams[node], t.id)
	if len(e.nodeTeams[node]) == 0 {
		delete(e.nodeTeams, node)
	}
	e.held[actor] = removeID(e.held[actor], t.id)
	if len(e.held[actor]) == 0 {
		delete(e.held, actor)
	}
	e.setPool(t, PoolCooldown)
	t.clearPlacement()

	verb := "recalled from"
	switch kind {
	case EventTeamNeutralised:
		e.stats[t.arc].Neutralised++
		verb = "neutralised at"
	case EventTeamExpired:
		e.stats[t.arc].Expired++
		verb = "completed its deployment at"
	default:
		kind = EventTeamRecalled
		e.stats[t.arc].Recalled++
	}
	e.emit(Event{
		Kind:   kind,
		TeamID: t.id,
		Arc:    t.arc,
		Actor:  actor,
		Node:   node,
		Text:   t.name + " " + verb + " " + e.nodeName(node),
	})
	e.checkStrict()
}

// release returns a Cooldown team to Available.
func (e *Engine) release(t *Team) {
	e.setPool(t, PoolAvailable)
	e.emit(Event{Kind: EventTeamAvailable, TeamID: t.id, Arc: t.arc, Actor: -1, Node: -1, Text: t.name + " back in reserve"})
	e.checkStrict()
}

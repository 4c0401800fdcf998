package teams

import "fmt"

type PickerKind string

const (
	PickerRecall     PickerKind = "RECALL"
	PickerNeutralise PickerKind = "NEUTRALISE"
)

type PickerOption struct {
	TeamID    int    `json:"team_id"`
	Name      string `json:"name"`
	Arc       string `json:"arc"`
	Actor     int    `json:"actor"`
	ActorName string `json:"actor_name"`
	TurnsLeft int    `json:"turns_left"`
}

// PickerPayload is what a player chooses from. Options never exceed Max.
type PickerPayload struct {
	Kind      PickerKind     `json:"kind"`
	NodeID    int            `json:"node_id"`
	NodeName  string         `json:"node_name"`
	Requester int            `json:"requester"`
	Header    string         `json:"header"`
	Max       int            `json:"max"`
	Options   []PickerOption `json:"options"`
}

// Outcome reports a resolved pick. Failed picks carry the refusal code and
// leave the engine untouched.
type Outcome struct {
	Kind    PickerKind `json:"kind"`
	Success bool       `json:"success"`
	Code    Code       `json:"code,omitempty"`
	TeamID  int        `json:"team_id"`
	NodeID  int        `json:"node_id"`
	Text    string     `json:"text"`
}

// InitiateRecall lists the teams the authority can pull back from node.
func (e *Engine) InitiateRecall(nodeID int) (PickerPayload, error) {
	return e.picker(PickerRecall, nodeID, -1)
}

// InitiateCancellation lists the teams resistance actor slot can neutralise at
// node. An empty node is reported before the requester is checked.
func (e *Engine) InitiateCancellation(nodeID, slot int) (PickerPayload, error) {
	if len(e.nodeTeams[nodeID]) == 0 {
		return e.picker(PickerNeutralise, nodeID, slot)
	}
	if _, err := e.resistanceActor(slot); err != nil {
		return PickerPayload{Kind: PickerNeutralise, NodeID: nodeID, Requester: slot}, err
	}
	return e.picker(PickerNeutralise, nodeID, slot)
}

func (e *Engine) picker(kind PickerKind, nodeID, requester int) (PickerPayload, error) {
	p := PickerPayload{
		Kind:      kind,
		NodeID:    nodeID,
		NodeName:  e.nodeName(nodeID),
		Requester: requester,
		Max:       e.cfg.PickerMax,
	}
	ids := e.nodeTeams[nodeID]
	if len(ids) == 0 {
		return p, errf(CodeEmptyNode, "there are no teams at %s", p.NodeName)
	}
	if kind == PickerRecall {
		p.Header = "Recall which team from " + p.NodeName + "?"
	} else {
		p.Header = "Neutralise which team at " + p.NodeName + "?"
	}
	for _, id := range ids {
		if len(p.Options) == p.Max {
			break
		}
		t := e.teams[id]
		opt := PickerOption{
			TeamID:    t.id,
			Name:      t.name,
			Arc:       e.arcs.Name(t.arc),
			Actor:     t.actor,
			ActorName: fmt.Sprintf("actor %d", t.actor),
			TurnsLeft: t.timer,
		}
		if e.c.Actors != nil {
			if a, ok := e.c.Actors.Actor(t.actor, SideAuthority); ok {
				opt.ActorName = a.Name
			}
		}
		p.Options = append(p.Options, opt)
	}
	return p, nil
}

// ResolveRecall sends the chosen team straight to Cooldown.
func (e *Engine) ResolveRecall(teamID, nodeID int) Outcome {
	out := Outcome{Kind: PickerRecall, TeamID: teamID, NodeID: nodeID}
	defer e.flush()
	t, err := e.deployedAt(teamID, nodeID)
	if err != nil {
		return failed(out, err)
	}
	name := t.name
	if err := e.transition(PoolCooldown, teamID, TransitionRequest{}, EventTeamRecalled); err != nil {
		return failed(out, err)
	}
	out.Success = true
	out.Text = name + " recalled from " + e.nodeName(nodeID) + ". It will be back in reserve next turn."
	return out
}

// ResolveCancellation neutralises the chosen team, which always succeeds, and
// then runs the requesting actor's node actions at the node.
func (e *Engine) ResolveCancellation(teamID, nodeID, slot int) Outcome {
	out := Outcome{Kind: PickerNeutralise, TeamID: teamID, NodeID: nodeID}
	defer e.flush()
	a, err := e.resistanceActor(slot)
	if err != nil {
		return failed(out, err)
	}
	t, err := e.deployedAt(teamID, nodeID)
	if err != nil {
		return failed(out, err)
	}
	name, arc := t.name, t.arc
	if err := e.transition(PoolCooldown, teamID, TransitionRequest{}, EventTeamNeutralised); err != nil {
		return failed(out, err)
	}
	applied, bad := e.applyEffects(a.NodeActions, teamID, arc, nodeID, ActorRef{Slot: slot, Side: SideResistance})
	out.Success = true
	out.Text = fmt.Sprintf("%s neutralised %s at %s (%d node actions, %d failed)", a.Name, name, e.nodeName(nodeID), applied, bad)
	return out
}

func (e *Engine) deployedAt(teamID, nodeID int) (*Team, error) {
	t, ok := e.teams[teamID]
	if !ok {
		return nil, errf(CodeInvalidTeam, "team %d not found", teamID)
	}
	if t.pool != PoolDeployed || t.node != nodeID {
		return nil, errf(CodeInvalidTeam, "%s is not deployed at %s", t.name, e.nodeName(nodeID))
	}
	return t, nil
}

func (e *Engine) resistanceActor(slot int) (ActorInfo, error) {
	if e.c.Actors == nil {
		return ActorInfo{}, errf(CodeActorNotFound, "resistance actor %d not found", slot)
	}
	a, ok := e.c.Actors.Actor(slot, SideResistance)
	if !ok {
		return ActorInfo{}, errf(CodeActorNotFound, "resistance actor %d not found", slot)
	}
	if !a.Active {
		return ActorInfo{}, errf(CodeActorInactive, "%s is not active", a.Name)
	}
	return a, nil
}

func failed(out Outcome, err error) Outcome {
	out.Success = false
	out.Code = CodeOf(err)
	out.Text = err.Error()
	return out
}

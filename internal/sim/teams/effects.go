package teams

import (
	"fmt"

	"fieldops.ai/internal/sim/catalogs"
)

// expire forces a Deployed team out and pays off its arc effects. The team is
// out of Deployed before any effect runs, so an expiry pays exactly once.
func (e *Engine) expire(t *Team) {
	arc, node, holder := t.arc, t.node, t.actor
	e.withdraw(t, EventTeamExpired)
	e.applyArcEffects(t.id, arc, node, ActorRef{Slot: holder, Side: SideAuthority})
}

// applyArcEffects applies every effect of arc to node. Deployment success is
// guaranteed, so there is no roll. A clean run credits the holder one renown.
func (e *Engine) applyArcEffects(teamID, arc, node int, holder ActorRef) (applied, failed int) {
	def, ok := e.arcs.Arc(arc)
	if !ok {
		return 0, 0
	}
	applied, failed = e.applyEffects(def.Effects, teamID, arc, node, holder)
	if failed == 0 && e.c.Renown != nil {
		e.c.Renown.AddRenown(holder, 1)
	}
	return applied, failed
}

// applyEffects runs fx against node on behalf of by, emitting one event per effect.
func (e *Engine) applyEffects(fx []catalogs.EffectDef, teamID, arc, node int, by ActorRef) (applied, failed int) {
	for _, f := range fx {
		var res EffectResult
		if e.c.Effects == nil {
			res = EffectResult{Err: fmt.Errorf("no effect applier")}
		} else {
			res = e.c.Effects.ApplyNodeEffect(f, node, by)
		}
		ev := Event{TeamID: teamID, Arc: arc, Actor: by.Slot, Node: node}
		if res.Err != nil {
			failed++
			ev.Kind = EventEffectFailed
			ev.Text = f.String() + " at " + e.nodeName(node) + ": " + res.Err.Error()
		} else {
			applied++
			ev.Kind = EventEffectApplied
			ev.Text = f.String() + " at " + e.nodeName(node)
			if res.Text != "" {
				ev.Text = res.Text
			}
		}
		e.emit(ev)
	}
	return applied, failed
}

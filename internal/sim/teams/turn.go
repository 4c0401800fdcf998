package teams

// RunTurnStart drains Cooldown: every team there returns to Available.
// It must run before RunTurnEnd within a turn.
func (e *Engine) RunTurnStart() int {
	ids := e.PoolIDs(PoolCooldown)
	for _, id := range ids {
		e.release(e.teams[id])
	}
	e.flush()
	return len(ids)
}

// RunTurnEnd decrements every Deployed timer. A timer that drops below zero
// forces the team into Cooldown, without asking the holder, and then applies
// the arc's node effects. Expiries run in team id order.
// It returns the ids of the expired teams.
func (e *Engine) RunTurnEnd() []int {
	var expired []int
	for _, id := range e.PoolIDs(PoolDeployed) {
		t := e.teams[id]
		if t.pool != PoolDeployed {
			continue
		}
		t.timer--
		if t.timer >= 0 {
			continue
		}
		e.expire(t)
		expired = append(expired, id)
	}
	e.flush()
	return expired
}

package teams

// Seed builds the starting reserve: one team per arc, plus Capacity teams per
// authority actor, each of which goes to the actor's preferred arc with
// PreferredBiasPercent chance and to a random arc otherwise. Teams are
// constructed directly into Available.
func (e *Engine) Seed(actors []ActorInfo, rng Rand) error {
	if e.seeded || len(e.teams) > 0 {
		return errf(CodeAlreadySeeded, "engine already holds %d teams", len(e.teams))
	}
	n := e.arcs.Len()
	if n == 0 {
		return errf(CodeBadState, "empty arc catalogue")
	}

	counts := make([]int, n)
	for i := range counts {
		counts[i] = 1
	}
	for _, a := range actors {
		if a.Side != SideAuthority {
			continue
		}
		for i := 0; i < a.Capacity; i++ {
			counts[e.seedArc(a, rng)]++
		}
	}

	for arc, c := range counts {
		name := e.arcs.Name(arc)
		for k := 1; k <= c; k++ {
			t := newTeam(e.nextID, arc, teamName(name, k))
			e.nextID++
			e.teams[t.id] = t
			e.pools[PoolAvailable][t.id] = struct{}{}
			e.inv[arc].Available++
			e.inv[arc].Total++
		}
	}
	e.seeded = true

	if err := e.Verify(); err != nil {
		e.reset()
		return err
	}
	return nil
}

func (e *Engine) seedArc(a ActorInfo, rng Rand) int {
	n := e.arcs.Len()
	pref := a.PreferredArc
	hasPref := pref >= 0 && pref < n
	if rng == nil {
		if hasPref {
			return pref
		}
		return 0
	}
	if hasPref && rng.Int(0, 100) < e.cfg.PreferredBiasPercent {
		return pref
	}
	return rng.Int(0, n)
}

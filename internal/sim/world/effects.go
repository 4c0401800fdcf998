package world

import (
	"fmt"

	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/teams"
)

const (
	KindStability = "STABILITY"
	KindSupport   = "SUPPORT"
	KindSecurity  = "SECURITY"
	KindSpider    = "SPIDER"
	KindTracer    = "TRACER"
	KindContacts  = "CONTACTS"
)

const MaxStat = 3

func knownKind(kind string) bool {
	switch kind {
	case KindStability, KindSupport, KindSecurity, KindSpider, KindTracer, KindContacts:
		return true
	}
	return false
}

func clampStat(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxStat {
		return MaxStat
	}
	return v
}

// ApplyNodeEffect changes node state permanently. A stat already at its bound
// still counts as applied; unknown nodes and kinds are errors.
func (w *World) ApplyNodeEffect(effect catalogs.EffectDef, nodeID int, by teams.ActorRef) teams.EffectResult {
	n, ok := w.nodes[nodeID]
	if !ok {
		return teams.EffectResult{Err: fmt.Errorf("node %d not found", nodeID)}
	}
	switch effect.Kind {
	case KindStability:
		return statResult(n, "stability", &n.Stability, effect.Amount)
	case KindSupport:
		return statResult(n, "support", &n.Support, effect.Amount)
	case KindSecurity:
		return statResult(n, "security", &n.Security, effect.Amount)
	case KindSpider:
		return flagResult(n, "spider network", &n.Spider, effect.Amount)
	case KindTracer:
		return flagResult(n, "tracer", &n.Tracer, effect.Amount)
	case KindContacts:
		return flagResult(n, "contacts", &n.Contacts, effect.Amount)
	default:
		return teams.EffectResult{Err: fmt.Errorf("unknown effect kind %q", effect.Kind)}
	}
}

func statResult(n *Node, label string, stat *int, amount int) teams.EffectResult {
	before := *stat
	*stat = clampStat(before + amount)
	return teams.EffectResult{
		Applied: true,
		Text:    fmt.Sprintf("%s %s %d -> %d", n.Name, label, before, *stat),
	}
}

func flagResult(n *Node, label string, flag *bool, amount int) teams.EffectResult {
	switch {
	case amount > 0:
		*flag = true
		return teams.EffectResult{Applied: true, Text: fmt.Sprintf("%s %s set", n.Name, label)}
	case amount < 0:
		*flag = false
		return teams.EffectResult{Applied: true, Text: fmt.Sprintf("%s %s cleared", n.Name, label)}
	default:
		return teams.EffectResult{Applied: true, Text: fmt.Sprintf("%s %s unchanged", n.Name, label)}
	}
}

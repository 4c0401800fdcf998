package world

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fieldops.ai/internal/sim/catalogs"
)

// Config is the static roster loaded from world.yaml.
type Config struct {
	Actors []ActorConfig `yaml:"actors"`
	Nodes  []NodeConfig  `yaml:"nodes"`
}

type ActorConfig struct {
	Slot     int    `yaml:"slot"`
	Side     string `yaml:"side"` // "authority" or "resistance"
	Name     string `yaml:"name"`
	Active   bool   `yaml:"active"`
	Capacity int    `yaml:"capacity"`
	// PreferredArc names an arc from arcs.json; empty for none.
	PreferredArc string         `yaml:"preferred_arc"`
	NodeActions  []EffectConfig `yaml:"node_actions"`
}

type EffectConfig struct {
	Kind   string `yaml:"kind"`
	Amount int    `yaml:"amount"`
}

type NodeConfig struct {
	ID        int    `yaml:"id"`
	Name      string `yaml:"name"`
	MaxTeams  int    `yaml:"max_teams"`
	Stability int    `yaml:"stability"`
	Support   int    `yaml:"support"`
	Security  int    `yaml:"security"`
}

func LoadConfig(path string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("world.yaml: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, fmt.Errorf("world.yaml: %w", err)
	}
	return c, nil
}

func (c Config) validate() error {
	type key struct {
		side string
		slot int
	}
	seen := map[key]bool{}
	for _, a := range c.Actors {
		side := strings.ToLower(strings.TrimSpace(a.Side))
		if _, ok := parseSide(side); !ok {
			return fmt.Errorf("actor %q: bad side %q", a.Name, a.Side)
		}
		if a.Slot < 0 {
			return fmt.Errorf("actor %q: negative slot", a.Name)
		}
		if a.Capacity < 0 {
			return fmt.Errorf("actor %q: negative capacity", a.Name)
		}
		k := key{side, a.Slot}
		if seen[k] {
			return fmt.Errorf("duplicate %s slot %d", side, a.Slot)
		}
		seen[k] = true
		for _, fx := range a.NodeActions {
			if !knownKind(fx.Kind) {
				return fmt.Errorf("actor %q: unknown node action %q", a.Name, fx.Kind)
			}
		}
	}
	ids := map[int]bool{}
	for _, n := range c.Nodes {
		if ids[n.ID] {
			return fmt.Errorf("duplicate node id %d", n.ID)
		}
		ids[n.ID] = true
		if n.MaxTeams < 0 {
			return fmt.Errorf("node %d: negative max_teams", n.ID)
		}
	}
	return nil
}

func toEffects(in []EffectConfig) []catalogs.EffectDef {
	if len(in) == 0 {
		return nil
	}
	out := make([]catalogs.EffectDef, 0, len(in))
	for _, fx := range in {
		out = append(out, catalogs.EffectDef{Kind: strings.ToUpper(fx.Kind), Amount: fx.Amount})
	}
	return out
}

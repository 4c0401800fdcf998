package teams

import (
	"fmt"
	"testing"

	"fieldops.ai/internal/sim/catalogs"
)

const testArcsJSON = `[
  {"id":0,"name":"CONTROL","effects":[{"kind":"SECURITY","amount":1}]},
  {"id":1,"name":"CIVIL","effects":[{"kind":"STABILITY","amount":1}]},
  {"id":2,"name":"MEDIA","effects":[{"kind":"SUPPORT","amount":-1},{"kind":"CONTACTS","amount":1}]}
]`

const (
	arcControl = 0
	arcCivil   = 1
	arcMedia   = 2
)

type fakeActors struct {
	authority  map[int]ActorInfo
	resistance map[int]ActorInfo
}

func (f *fakeActors) Actor(slot int, side Side) (ActorInfo, bool) {
	m := f.authority
	if side == SideResistance {
		m = f.resistance
	}
	a, ok := m[slot]
	return a, ok
}

func (f *fakeActors) Actors(side Side) []ActorInfo {
	m := f.authority
	if side == SideResistance {
		m = f.resistance
	}
	out := make([]ActorInfo, 0, len(m))
	for i := 0; i < 16; i++ {
		if a, ok := m[i]; ok {
			out = append(out, a)
		}
	}
	return out
}

type fakeNodes map[int]NodeInfo

func (f fakeNodes) Node(id int) (NodeInfo, bool) {
	n, ok := f[id]
	return n, ok
}

type fakeClock struct{ turn int }

func (c *fakeClock) CurrentTurn() int { return c.turn }

type appliedEffect struct {
	Effect catalogs.EffectDef
	Node   int
	By     ActorRef
}

type fakeEffects struct {
	applied []appliedEffect
	fail    map[string]bool
}

func (f *fakeEffects) ApplyNodeEffect(fx catalogs.EffectDef, node int, by ActorRef) EffectResult {
	if f.fail[fx.Kind] {
		return EffectResult{Err: fmt.Errorf("%s refused", fx.Kind)}
	}
	f.applied = append(f.applied, appliedEffect{Effect: fx, Node: node, By: by})
	return EffectResult{Applied: true}
}

type fakeRenown map[ActorRef]int

func (f fakeRenown) AddRenown(a ActorRef, n int) { f[a] += n }

type fakeNotifier struct{ events []Event }

func (f *fakeNotifier) Notify(ev Event) { f.events = append(f.events, ev) }

func (f *fakeNotifier) count(kind EventKind) int {
	n := 0
	for _, ev := range f.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// minRand always returns min, which makes seeding pick preferred arcs.
type minRand struct{}

func (minRand) Int(min, _ int) int { return min }

type fixture struct {
	E        *Engine
	Actors   *fakeActors
	Nodes    fakeNodes
	Clock    *fakeClock
	Effects  *fakeEffects
	Renown   fakeRenown
	Notifier *fakeNotifier
}

func testArcs(t *testing.T) *catalogs.ArcCatalog {
	t.Helper()
	var c catalogs.ArcCatalog
	if err := catalogs.ParseArcs([]byte(testArcsJSON), &c); err != nil {
		t.Fatalf("parse arcs: %v", err)
	}
	return &c
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		Actors: &fakeActors{
			authority: map[int]ActorInfo{
				0: {Slot: 0, Side: SideAuthority, Name: "Director", Active: true, Capacity: 1, PreferredArc: arcControl},
				1: {Slot: 1, Side: SideAuthority, Name: "Minister", Active: true, Capacity: 3, PreferredArc: arcCivil},
				2: {Slot: 2, Side: SideAuthority, Name: "Retired", Active: false, Capacity: 2, PreferredArc: -1},
			},
			resistance: map[int]ActorInfo{
				0: {Slot: 0, Side: SideResistance, Name: "Fixer", Active: true, Capacity: 2,
					NodeActions: []catalogs.EffectDef{{Kind: "SUPPORT", Amount: 1}}},
				1: {Slot: 1, Side: SideResistance, Name: "Sleeper", Active: false},
			},
		},
		Nodes: fakeNodes{
			10: {ID: 10, Name: "Docks"},
			11: {ID: 11, Name: "Plaza"},
			12: {ID: 12, Name: "Archive", MaxTeams: 1},
			13: {ID: 13, Name: "Depot", MaxTeams: 5},
		},
		Clock:    &fakeClock{turn: 1},
		Effects:  &fakeEffects{fail: map[string]bool{}},
		Renown:   fakeRenown{},
		Notifier: &fakeNotifier{},
	}
	cfg.Strict = true
	if cfg.PreferredBiasPercent == 0 {
		// minRand rolls 0, so any positive bias takes the preferred arc.
		cfg.PreferredBiasPercent = 100
	}
	f.E = New(cfg, testArcs(t), Collaborators{
		Actors:   f.Actors,
		Nodes:    f.Nodes,
		Clock:    f.Clock,
		Effects:  f.Effects,
		Renown:   f.Renown,
		Notifier: f.Notifier,
	})
	return f
}

// seedOnePerArc seeds only the base slot of every arc.
func (f *fixture) seedOnePerArc(t *testing.T) {
	t.Helper()
	if err := f.E.Seed(nil, minRand{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// seedRoster seeds with the fixture roster. With minRand and the fixture's
// full preferred bias that yields CONTROL 1+1+2 (Retired has no preference
// and rolls arc 0), CIVIL 1+3, MEDIA 1.
func (f *fixture) seedRoster(t *testing.T) {
	t.Helper()
	if err := f.E.Seed(f.Actors.Actors(SideAuthority), minRand{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *fixture) mustVerify(t *testing.T) {
	t.Helper()
	if err := f.E.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func (f *fixture) inv(t *testing.T, arc int) Inventory {
	t.Helper()
	inv, ok := f.E.ArcInventory(arc)
	if !ok {
		t.Fatalf("unknown arc %d", arc)
	}
	return inv
}

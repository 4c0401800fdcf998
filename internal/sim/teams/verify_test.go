package teams

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestVerify_DetectsCorruption(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	f.mustVerify(t)

	f.E.inv[arcMedia].Available++
	if err := f.E.Verify(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	f.E.inv[arcMedia].Available--

	f.E.pools[PoolCooldown][0] = struct{}{}
	if err := f.E.Verify(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for split id, got %v", err)
	}
	delete(f.E.pools[PoolCooldown], 0)
	f.mustVerify(t)
}

func TestStrict_PanicsOnBrokenInvariant(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	f.E.nodeTeams[11] = []int{8}

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic")
		}
	}()
	_, _ = f.E.Deploy(arcCivil, 1, 10)
}

// TestInvariants_RandomWalk drives random operations and checks the full
// invariant set after each one.
func TestInvariants_RandomWalk(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 2})
	f.seedRoster(t)
	rng := rand.New(rand.NewSource(7))
	nodes := []int{10, 11, 12, 13, 99}

	for step := 0; step < 2000; step++ {
		switch rng.Intn(6) {
		case 0, 1:
			_, _ = f.E.Deploy(rng.Intn(3), rng.Intn(4), nodes[rng.Intn(len(nodes))])
		case 2:
			node := nodes[rng.Intn(len(nodes))]
			if p, err := f.E.InitiateRecall(node); err == nil {
				f.E.ResolveRecall(p.Options[rng.Intn(len(p.Options))].TeamID, node)
			}
		case 3:
			node := nodes[rng.Intn(len(nodes))]
			if p, err := f.E.InitiateCancellation(node, 0); err == nil {
				f.E.ResolveCancellation(p.Options[rng.Intn(len(p.Options))].TeamID, node, 0)
			}
		case 4:
			f.E.RunTurnStart()
		case 5:
			f.E.RunTurnEnd()
			f.Clock.turn++
		}
		f.mustVerify(t)

		sum := 0
		for _, r := range f.E.Inventory() {
			if r.Available+r.Deployed+r.Cooldown != r.Total {
				t.Fatalf("step %d: unbalanced %+v", step, r)
			}
			sum += r.Deployed
		}
		if sum != f.E.PoolSize(PoolDeployed) {
			t.Fatalf("step %d: deployed counters %d vs pool %d", step, sum, f.E.PoolSize(PoolDeployed))
		}
		for slot, a := range f.Actors.authority {
			if len(f.E.Held(slot)) > a.Capacity {
				t.Fatalf("step %d: actor %d over capacity", step, slot)
			}
		}
		for _, id := range f.E.PoolIDs(PoolDeployed) {
			tm := f.E.Team(id)
			found := false
			for _, at := range f.E.TeamsAt(tm.Node()) {
				found = found || at == id
			}
			if !found {
				t.Fatalf("step %d: team %d missing from node %d", step, id, tm.Node())
			}
		}
	}
}

func TestWriteDump_PrintsAllTables(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	deployAtDepot(t, f)

	var buf bytes.Buffer
	if err := f.E.WriteDump(&buf); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"-- inventory", "-- holdings", "-- teams", "CONTROL Alpha", "Minister", "2/3", "DEPLOYED", "digest "} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
	d := f.E.Dump()
	if len(d.Holdings) != 3 || d.Digest != f.E.Digest() {
		t.Fatalf("unexpected dump %+v", d)
	}
}

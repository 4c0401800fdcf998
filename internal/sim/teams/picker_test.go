package teams

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func deployAtDepot(t *testing.T, f *fixture) []int {
	t.Helper()
	var ids []int
	for _, d := range []struct{ arc, actor int }{{arcCivil, 1}, {arcControl, 0}, {arcMedia, 1}} {
		id, err := f.E.Deploy(d.arc, d.actor, 13)
		if err != nil {
			t.Fatalf("deploy arc %d: %v", d.arc, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestPicker_EmptyNodeIsImmediateError(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	deployAtDepot(t, f)
	before := f.E.Dump()

	if _, err := f.E.InitiateCancellation(11, 0); !errors.Is(err, ErrEmptyNode) {
		t.Fatalf("expected ErrEmptyNode, got %v", err)
	}
	// The node is checked before the requester.
	for _, slot := range []int{1, 7} {
		if _, err := f.E.InitiateCancellation(11, slot); !errors.Is(err, ErrEmptyNode) {
			t.Fatalf("slot %d: expected ErrEmptyNode, got %v", slot, err)
		}
	}
	if _, err := f.E.InitiateRecall(11); !errors.Is(err, ErrEmptyNode) {
		t.Fatalf("expected ErrEmptyNode, got %v", err)
	}
	if !reflect.DeepEqual(before, f.E.Dump()) {
		t.Fatalf("picker mutated state")
	}
}

func TestPicker_ListsTeamsInDeploymentOrder(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	ids := deployAtDepot(t, f)

	p, err := f.E.InitiateRecall(13)
	if err != nil {
		t.Fatalf("recall picker: %v", err)
	}
	if p.Kind != PickerRecall || p.NodeName != "Depot" || p.Max != 3 || p.Requester != -1 {
		t.Fatalf("unexpected payload %+v", p)
	}
	var got []int
	for _, o := range p.Options {
		got = append(got, o.TeamID)
	}
	if !reflect.DeepEqual(got, ids) {
		t.Fatalf("options %v, want %v", got, ids)
	}
	if p.Options[1].ActorName != "Director" || p.Options[1].Arc != "CONTROL" || p.Options[1].TurnsLeft != 3 {
		t.Fatalf("unexpected option %+v", p.Options[1])
	}
	if !strings.Contains(p.Header, "Depot") {
		t.Fatalf("unexpected header %q", p.Header)
	}
}

func TestPicker_CapsOptions(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3, PickerMax: 2})
	f.seedRoster(t)
	deployAtDepot(t, f)

	p, err := f.E.InitiateCancellation(13, 0)
	if err != nil {
		t.Fatalf("cancellation picker: %v", err)
	}
	if len(p.Options) != 2 || p.Max != 2 || p.Kind != PickerNeutralise || p.Requester != 0 {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestResolveRecall_SendsTeamToCooldown(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	ids := deployAtDepot(t, f)

	out := f.E.ResolveRecall(ids[1], 13)
	if !out.Success || out.Code != "" || out.TeamID != ids[1] {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if f.E.Team(ids[1]).Pool() != PoolCooldown {
		t.Fatalf("expected cooldown")
	}
	if got := f.E.TeamsAt(13); !reflect.DeepEqual(got, []int{ids[0], ids[2]}) {
		t.Fatalf("node index %v", got)
	}
	if f.Notifier.count(EventTeamRecalled) != 1 {
		t.Fatalf("expected recall event")
	}
	if len(f.Effects.applied) != 0 || len(f.Renown) != 0 {
		t.Fatalf("recall must not pay arc effects")
	}
}

func TestResolveRecall_WrongNodeFails(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	ids := deployAtDepot(t, f)
	before := f.E.Dump()

	out := f.E.ResolveRecall(ids[0], 10)
	if out.Success || out.Code != CodeInvalidTeam || out.Text == "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out := f.E.ResolveRecall(404, 13); out.Success || out.Code != CodeInvalidTeam {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !reflect.DeepEqual(before, f.E.Dump()) {
		t.Fatalf("failed recall mutated state")
	}
}

func TestResolveCancellation_RunsNodeActions(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	ids := deployAtDepot(t, f)

	out := f.E.ResolveCancellation(ids[2], 13, 0)
	if !out.Success || out.Kind != PickerNeutralise {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if f.E.Team(ids[2]).Pool() != PoolCooldown {
		t.Fatalf("expected cooldown")
	}
	if len(f.Effects.applied) != 1 {
		t.Fatalf("expected one node action, got %+v", f.Effects.applied)
	}
	fx := f.Effects.applied[0]
	if fx.Effect.Kind != "SUPPORT" || fx.Effect.Amount != 1 || fx.Node != 13 || fx.By != (ActorRef{Slot: 0, Side: SideResistance}) {
		t.Fatalf("unexpected node action %+v", fx)
	}
	if len(f.Renown) != 0 {
		t.Fatalf("neutralisation must not credit renown")
	}
	if f.Notifier.count(EventTeamNeutralised) != 1 {
		t.Fatalf("expected neutralise event")
	}
	if st := f.E.Inventory()[arcMedia].Stats; st.Neutralised != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestResolveCancellation_InactiveRequester(t *testing.T) {
	f := newFixture(t, Config{DeployDuration: 3})
	f.seedRoster(t)
	ids := deployAtDepot(t, f)

	if _, err := f.E.InitiateCancellation(13, 1); !errors.Is(err, ErrActorInactive) {
		t.Fatalf("expected ErrActorInactive, got %v", err)
	}
	out := f.E.ResolveCancellation(ids[0], 13, 1)
	if out.Success || out.Code != CodeActorInactive {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out := f.E.ResolveCancellation(ids[0], 13, 7); out.Code != CodeActorNotFound {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if f.E.Team(ids[0]).Pool() != PoolDeployed {
		t.Fatalf("team should still be deployed")
	}
}

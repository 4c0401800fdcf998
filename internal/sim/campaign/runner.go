// Package campaign drives a team engine turn by turn against a world, with a
// scripted policy standing in for the players, and fans every completed turn
// out to the log, the index, observers and the snapshot writer.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"fieldops.ai/internal/persistence/snapshot"
	"fieldops.ai/internal/protocol"
	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/teams"
	"fieldops.ai/internal/sim/tuning"
	"fieldops.ai/internal/sim/world"
)

type TurnLogger interface {
	WriteTurn(msg protocol.TurnMsg) error
}

type Publisher interface {
	Publish(msg protocol.TurnMsg)
}

type Options struct {
	CampaignID string
	Tuning     tuning.Tuning
	Catalogs   *catalogs.Catalogs
	World      world.Config
	Logger     *log.Logger
}

type Runner struct {
	id     string
	tune   tuning.Tuning
	cats   *catalogs.Catalogs
	logger *log.Logger

	mu     sync.Mutex
	world  *world.World
	engine *teams.Engine
	events []teams.Event
	last   protocol.TurnMsg

	turnLogger   TurnLogger
	indexer      TurnLogger
	publisher    Publisher
	snapshotSink chan<- snapshot.SnapshotV1

	stop     chan struct{}
	stopOnce sync.Once
}

// TurnResult summarises one StepOnce call.
type TurnResult struct {
	Turn     int
	Released int
	Deployed []int
	Expired  []int
	Outcomes []teams.Outcome
	Digest   string
}

func newRunner(opts Options) (*Runner, error) {
	if opts.Catalogs == nil {
		return nil, errors.New("campaign: nil catalogs")
	}
	if err := opts.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("campaign: %w", err)
	}
	w, err := world.New(opts.World, &opts.Catalogs.Arcs)
	if err != nil {
		return nil, fmt.Errorf("campaign: %w", err)
	}
	r := &Runner{
		id:     opts.CampaignID,
		tune:   opts.Tuning,
		cats:   opts.Catalogs,
		logger: opts.Logger,
		world:  w,
		stop:   make(chan struct{}),
	}
	if r.id == "" {
		r.id = "default"
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard, "", 0)
	}
	r.engine = teams.New(teams.ConfigFromTuning(opts.Tuning), &opts.Catalogs.Arcs, w.Collaborators(r))
	return r, nil
}

// New starts a fresh campaign and seeds the reserve from the authority roster.
func New(opts Options) (*Runner, error) {
	r, err := newRunner(opts)
	if err != nil {
		return nil, err
	}
	if err := r.engine.Seed(r.world.Actors(teams.SideAuthority), world.NewRNG(r.tune.Seed)); err != nil {
		return nil, fmt.Errorf("campaign: seed: %w", err)
	}
	r.events = nil
	return r, nil
}

// Notify collects engine events for the turn in progress.
func (r *Runner) Notify(ev teams.Event) {
	r.events = append(r.events, ev)
}

func (r *Runner) ID() string { return r.id }

func (r *Runner) SetTurnLogger(l TurnLogger) { r.turnLogger = l }
func (r *Runner) SetIndexer(l TurnLogger)    { r.indexer = l }
func (r *Runner) SetPublisher(p Publisher)   { r.publisher = p }

// SetSnapshotSink receives a snapshot every SnapshotEveryTurns turns. Sends
// never block; a full sink drops the snapshot.
func (r *Runner) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { r.snapshotSink = ch }

// Run steps one turn per TurnIntervalMs until ctx is done or Stop is called.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(r.tune.TurnIntervalMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case <-ticker.C:
			r.StepOnce()
		}
	}
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// StepOnce plays one full turn: drain cooldown, let the scripted actors act,
// run the turn end, advance the clock, then publish.
func (r *Runner) StepOnce() TurnResult {
	r.mu.Lock()
	turn := r.world.CurrentTurn()
	rng := world.NewRNG(turnSeed(r.tune.Seed, turn))

	res := TurnResult{Turn: turn}
	res.Released = r.engine.RunTurnStart()
	res.Deployed, res.Outcomes = r.playPolicy(rng)
	res.Expired = r.engine.RunTurnEnd()
	res.Digest = r.engine.Digest()

	msg := r.turnMsg(turn, res.Outcomes)
	r.events = nil
	r.last = msg
	r.world.AdvanceTurn()

	var snap *snapshot.SnapshotV1
	if every := r.tune.SnapshotEveryTurns; every > 0 && turn%every == 0 && r.snapshotSink != nil {
		s := r.exportLocked()
		snap = &s
	}
	r.mu.Unlock()

	if r.turnLogger != nil {
		if err := r.turnLogger.WriteTurn(msg); err != nil {
			r.logger.Printf("turn log: %v", err)
		}
	}
	if r.indexer != nil {
		if err := r.indexer.WriteTurn(msg); err != nil {
			r.logger.Printf("turn index: %v", err)
		}
	}
	if r.publisher != nil {
		r.publisher.Publish(msg)
	}
	if snap != nil {
		select {
		case r.snapshotSink <- *snap:
		default:
			r.logger.Printf("snapshot sink full; dropped turn %d", turn)
		}
	}
	return res
}

// turnSeed derives a per-turn seed so a restored campaign replays the same
// policy rolls as an uninterrupted one.
func turnSeed(seed int64, turn int) int64 {
	return seed*1_000_003 + int64(turn)
}

func (r *Runner) turnMsg(turn int, outcomes []teams.Outcome) protocol.TurnMsg {
	msg := protocol.TurnMsg{
		Type:            protocol.TypeTurn,
		ProtocolVersion: protocol.Version,
		CampaignID:      r.id,
		Turn:            turn,
		Events:          make([]protocol.Event, 0, len(r.events)),
		Digest:          r.engine.Digest(),
	}
	for _, ev := range r.events {
		msg.Events = append(msg.Events, protocol.Event{
			Turn:   ev.Turn,
			Kind:   string(ev.Kind),
			TeamID: ev.TeamID,
			Arc:    r.cats.Arcs.Name(ev.Arc),
			Actor:  ev.Actor,
			Node:   ev.Node,
			Text:   ev.Text,
		})
	}
	for _, o := range outcomes {
		msg.Outcomes = append(msg.Outcomes, outcomeMsg(o))
	}
	for _, row := range r.engine.Inventory() {
		msg.Inventory = append(msg.Inventory, protocol.ArcCount{
			Arc:       row.ArcName,
			Available: row.Available,
			Deployed:  row.Deployed,
			Cooldown:  row.Cooldown,
			Total:     row.Total,
		})
	}
	for _, n := range r.world.Nodes() {
		msg.Nodes = append(msg.Nodes, protocol.NodeState{
			ID:        n.ID,
			Name:      n.Name,
			Stability: n.Stability,
			Support:   n.Support,
			Security:  n.Security,
			Spider:    n.Spider,
			Tracer:    n.Tracer,
			Contacts:  n.Contacts,
			Teams:     len(r.engine.TeamsAt(n.ID)),
		})
	}
	return msg
}

func outcomeMsg(o teams.Outcome) protocol.Outcome {
	return protocol.Outcome{
		Kind:    string(o.Kind),
		Success: o.Success,
		Code:    string(o.Code),
		TeamID:  o.TeamID,
		NodeID:  o.NodeID,
		Text:    o.Text,
	}
}

// LastTurn returns the most recent TURN message, or a zero value before the
// first turn.
func (r *Runner) LastTurn() protocol.TurnMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) CurrentTurn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.CurrentTurn()
}

func (r *Runner) Dump() teams.Dump {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Dump()
}

func (r *Runner) WriteDump(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.WriteDump(w)
}

func (r *Runner) Verify() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.Verify()
}

func (r *Runner) Nodes() []world.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.Nodes()
}

func (r *Runner) Renown(ref teams.ActorRef) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.Renown(ref)
}

func (r *Runner) RenownTable() []world.RenownEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.RenownTable()
}

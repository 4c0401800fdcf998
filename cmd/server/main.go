package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "fieldops.ai/internal/persistence/log"
	"fieldops.ai/internal/persistence/snapshot"
	"fieldops.ai/internal/runtimecfg"
	"fieldops.ai/internal/sim/campaign"
	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/tuning"
	"fieldops.ai/internal/sim/world"
	"fieldops.ai/internal/transport/observer"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	envCfg, err := runtimecfg.LoadServerEnv()
	if err != nil {
		logger.Fatalf("%v", err)
	}

	var (
		addr        = flag.String("addr", envCfg.Addr, "http listen address")
		campaignID  = flag.String("campaign", envCfg.CampaignID, "campaign id")
		seed        = flag.Int64("seed", envCfg.Seed, "campaign seed (0 keeps tuning.yaml; ignored when resuming)")
		configDir   = flag.String("configs", envCfg.ConfigDir, "config directory")
		dataDir     = flag.String("data", envCfg.DataDir, "runtime data directory")
		tuningPath  = flag.String("tuning", envCfg.TuningPath, "path to tuning.yaml (default: <configs>/tuning.yaml)")
		worldPath   = flag.String("world", envCfg.WorldPath, "path to world.yaml (default: <configs>/world.yaml)")
		disableDB   = flag.Bool("disable_db", envCfg.DisableDB, "disable the sqlite index")
		allowRemote = flag.Bool("observer_allow_remote", envCfg.AllowRemote, "admit non-loopback observers")
		enableAdmin = flag.Bool("admin_http", envCfg.EnableAdmin, "enable loopback-only /admin/v1 endpoints")
		turns       = flag.Int("turns", envCfg.Turns, "play this many turns back to back and exit (0 serves until signalled)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", envCfg.LoadLatest, "load latest snapshot from the campaign dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(orDefault(*tuningPath, filepath.Join(*configDir, "tuning.yaml")))
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	wcfg, err := world.LoadConfig(orDefault(*worldPath, filepath.Join(*configDir, "world.yaml")))
	if err != nil {
		logger.Fatalf("load world: %v", err)
	}

	campaignDir := filepath.Join(*dataDir, "campaigns", *campaignID)
	if err := os.MkdirAll(campaignDir, 0o755); err != nil {
		logger.Fatalf("campaign dir: %v", err)
	}

	idx, err := openRuntimeIndex(campaignDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	opts := campaign.Options{
		CampaignID: *campaignID,
		Tuning:     tune,
		Catalogs:   cats,
		World:      wcfg,
		Logger:     logger,
	}
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = snapshot.Latest(campaignDir)
	}
	runner, err := openRunner(opts, snapshotToLoad)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if snapshotToLoad != "" {
		logger.Printf("resumed from snapshot=%s turn=%d", filepath.Base(snapshotToLoad), runner.CurrentTurn())
	} else {
		logger.Printf("fresh campaign=%s seed=%d", runner.ID(), tune.Seed)
	}

	turnLog := persistlog.NewTurnLogger(campaignDir)
	defer turnLog.Close()
	runner.SetTurnLogger(turnLog)
	if idx != nil {
		turnLog.OnClose(idx.RecordLogFile)
		runner.SetIndexer(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	snapCh := make(chan snapshot.SnapshotV1, 2)
	runner.SetSnapshotSink(snapCh)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeSnapshots(ctx, snapCh, campaignDir, idx, logger)
	}()

	if *turns > 0 {
		for i := 0; i < *turns && ctx.Err() == nil; i++ {
			runner.StepOnce()
		}
		if err := runner.Verify(); err != nil {
			logger.Printf("verify: %v", err)
		}
		final := runner.ExportSnapshot()
		if err := writeSnapshot(campaignDir, final, idx); err != nil {
			logger.Printf("snapshot write: %v", err)
		}
		cancel()
		<-writerDone
		logger.Printf("played %d turns; clock at %d digest=%s", *turns, runner.CurrentTurn(), final.Digest)
		return
	}

	obsSrv := observer.NewServer(runner, logger)
	obsSrv.AllowRemote = *allowRemote
	runner.SetPublisher(obsSrv)

	go func() {
		if err := runner.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("campaign stopped: %v", err)
		}
	}()

	if !*enableAdmin {
		logger.Printf("admin endpoints disabled (FIELDOPS_ENABLE_ADMIN_HTTP=false)")
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(runner, obsSrv, idx, campaignDir, *enableAdmin),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func openRunner(opts campaign.Options, snapPath string) (*campaign.Runner, error) {
	if snapPath == "" {
		r, err := campaign.New(opts)
		if err != nil {
			return nil, fmt.Errorf("new campaign: %w", err)
		}
		return r, nil
	}
	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.CampaignID != "" && snap.Header.CampaignID != opts.CampaignID {
		return nil, fmt.Errorf("snapshot campaign id mismatch: flag=%s snap=%s", opts.CampaignID, snap.Header.CampaignID)
	}
	r, err := campaign.Restore(opts, snap)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return r, nil
}

func writeSnapshots(ctx context.Context, ch <-chan snapshot.SnapshotV1, campaignDir string, idx runtimeIndex, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			// Flush anything already queued so a clean shutdown keeps it.
			for {
				select {
				case snap := <-ch:
					if err := writeSnapshot(campaignDir, snap, idx); err != nil {
						logger.Printf("snapshot write: %v", err)
					}
				default:
					return
				}
			}
		case snap := <-ch:
			if err := writeSnapshot(campaignDir, snap, idx); err != nil {
				logger.Printf("snapshot write: %v", err)
			}
		}
	}
}

func writeSnapshot(campaignDir string, snap snapshot.SnapshotV1, idx runtimeIndex) error {
	path := snapshot.PathFor(campaignDir, snap.Header.Turn)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return err
	}
	if idx != nil {
		idx.RecordSnapshot(path, snap)
	}
	return nil
}

func newMux(r *campaign.Runner, obs *observer.Server, idx runtimeIndex, campaignDir string, enableAdmin bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, r, obs, idx)
	})
	mux.HandleFunc("/v1/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/observe", obs.WSHandler())

	if !enableAdmin {
		return mux
	}
	// Local-only admin endpoints (do not affect campaign determinism).
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, req *http.Request) {
		if !isLoopbackRemote(req.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			CampaignID string              `json:"campaign_id"`
			Turn       int                 `json:"turn"`
			Verify     string              `json:"verify"`
			Nodes      []world.Node        `json:"nodes"`
			Renown     []world.RenownEntry `json:"renown"`
		}{
			CampaignID: r.ID(),
			Turn:       r.CurrentTurn(),
			Verify:     "ok",
			Nodes:      r.Nodes(),
			Renown:     r.RenownTable(),
		}
		if err := r.Verify(); err != nil {
			resp.Verify = err.Error()
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(req.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		snap := r.ExportSnapshot()
		rw.Header().Set("Content-Type", "application/json")
		if err := writeSnapshot(campaignDir, snap, idx); err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "turn": snap.Header.Turn, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "turn": snap.Header.Turn})
	})
	return mux
}

func writeMetrics(rw http.ResponseWriter, r *campaign.Runner, obs *observer.Server, idx runtimeIndex) {
	id := r.ID()
	d := r.Dump()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP fieldops_campaign_turn Current campaign turn.\n")
	fmt.Fprintf(rw, "# TYPE fieldops_campaign_turn gauge\n")
	fmt.Fprintf(rw, "fieldops_campaign_turn{campaign=%q} %d\n", id, r.CurrentTurn())

	fmt.Fprintf(rw, "# HELP fieldops_arc_teams Teams per arc and pool.\n")
	fmt.Fprintf(rw, "# TYPE fieldops_arc_teams gauge\n")
	for _, row := range d.Inventory {
		fmt.Fprintf(rw, "fieldops_arc_teams{campaign=%q,arc=%q,pool=%q} %d\n", id, row.ArcName, "available", row.Available)
		fmt.Fprintf(rw, "fieldops_arc_teams{campaign=%q,arc=%q,pool=%q} %d\n", id, row.ArcName, "deployed", row.Deployed)
		fmt.Fprintf(rw, "fieldops_arc_teams{campaign=%q,arc=%q,pool=%q} %d\n", id, row.ArcName, "cooldown", row.Cooldown)
	}

	fmt.Fprintf(rw, "# HELP fieldops_arc_transitions_total Pool transitions per arc.\n")
	fmt.Fprintf(rw, "# TYPE fieldops_arc_transitions_total counter\n")
	for _, row := range d.Inventory {
		fmt.Fprintf(rw, "fieldops_arc_transitions_total{campaign=%q,arc=%q,kind=%q} %d\n", id, row.ArcName, "deployed", row.Stats.Deployed)
		fmt.Fprintf(rw, "fieldops_arc_transitions_total{campaign=%q,arc=%q,kind=%q} %d\n", id, row.ArcName, "recalled", row.Stats.Recalled)
		fmt.Fprintf(rw, "fieldops_arc_transitions_total{campaign=%q,arc=%q,kind=%q} %d\n", id, row.ArcName, "neutralised", row.Stats.Neutralised)
		fmt.Fprintf(rw, "fieldops_arc_transitions_total{campaign=%q,arc=%q,kind=%q} %d\n", id, row.ArcName, "expired", row.Stats.Expired)
	}

	fmt.Fprintf(rw, "# HELP fieldops_observers Connected observer streams.\n")
	fmt.Fprintf(rw, "# TYPE fieldops_observers gauge\n")
	fmt.Fprintf(rw, "fieldops_observers{campaign=%q} %d\n", id, obs.Subscribers())

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP fieldops_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE fieldops_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "fieldops_index_queue_depth{campaign=%q} %d\n", id, s.QueueDepth)
	fmt.Fprintf(rw, "# HELP fieldops_index_dropped_total Index writes dropped on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE fieldops_index_dropped_total counter\n")
	fmt.Fprintf(rw, "fieldops_index_dropped_total{campaign=%q,kind=%q} %d\n", id, "turn", s.DropTurnTotal)
	fmt.Fprintf(rw, "fieldops_index_dropped_total{campaign=%q,kind=%q} %d\n", id, "snapshot", s.DropSnapshotTotal)
	fmt.Fprintf(rw, "fieldops_index_dropped_total{campaign=%q,kind=%q} %d\n", id, "log_file", s.DropLogFileTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"fieldops.ai/internal/persistence/snapshot"
	"fieldops.ai/internal/protocol"
	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of the turn log. Writes are queued to
// a single writer goroutine and dropped when the queue is full; the JSONL turn
// log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTurn     atomic.Uint64
	dropSnapshot atomic.Uint64
	dropLogFile  atomic.Uint64
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqSnapshot
	reqLogFile
)

type req struct {
	kind reqKind

	turn     protocol.TurnMsg
	snapshot snapshotRow
	logFile  LogFileRow
}

type snapshotRow struct {
	Turn     int
	Path     string
	Seed     int64
	Teams    int
	Deployed int
	Digest   string
}

const queueSize = 4096

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn INTEGER PRIMARY KEY,
			campaign_id TEXT NOT NULL,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL,
			outcomes INTEGER NOT NULL,
			deployed INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS team_events (
			turn INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			team_id INTEGER NOT NULL,
			arc TEXT NOT NULL,
			actor INTEGER NOT NULL,
			node INTEGER NOT NULL,
			text TEXT,
			PRIMARY KEY (turn, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_team_events_team_turn ON team_events(team_id, turn);`,
		`CREATE INDEX IF NOT EXISTS idx_team_events_node_turn ON team_events(node, turn);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			turn INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			teams INTEGER NOT NULL,
			deployed INTEGER NOT NULL,
			digest TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS log_files (
			path TEXT PRIMARY KEY,
			bytes INTEGER NOT NULL,
			closed_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTurn(msg protocol.TurnMsg) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: msg}:
	default:
		s.dropTurn.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Turn:   snap.Header.Turn,
		Path:   path,
		Seed:   snap.Seed,
		Teams:  len(snap.Teams),
		Digest: snap.Digest,
	}
	for _, t := range snap.Teams {
		if t.Pool == "DEPLOYED" {
			r.Deployed++
		}
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// RecordLogFile notes a turn log file that was closed, with its size at
// that point. A file reopened after a restart is recorded again.
func (s *SQLiteIndex) RecordLogFile(path string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := LogFileRow{Path: path, ClosedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	if fi, err := os.Stat(path); err == nil {
		r.Bytes = fi.Size()
	}
	select {
	case s.ch <- req{kind: reqLogFile, logFile: r}:
	default:
		s.dropLogFile.Add(1)
	}
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTurnTotal     uint64
	DropSnapshotTotal uint64
	DropLogFileTotal  uint64
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTurnTotal:     s.dropTurn.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropLogFileTotal:  s.dropLogFile.Load(),
	}
}

// UpsertCatalogs records the arc catalogue and the tuning actually applied.
// It runs synchronously so the rows exist before the first turn is indexed.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "arcs.json")); err == nil {
			rows = append(rows, kv{name: "arcs", digest: cats.Arcs.Digest, json: b})
		}
	}
	if b, _ := json.Marshal(tune); len(b) > 0 {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(turn,campaign_id,digest,events,outcomes,deployed,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO team_events(turn,seq,kind,team_id,arc,actor,node,text) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(turn,path,seed,teams,deployed,digest) VALUES(?,?,?,?,?,?)`)
	insertLogFile, _ := s.db.Prepare(`INSERT OR REPLACE INTO log_files(path,bytes,closed_at) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTurn, insertEvent, insertSnapshot, insertLogFile} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTurn:
			m := r.turn
			deployed := 0
			for _, a := range m.Inventory {
				deployed += a.Deployed
			}
			b, _ := json.Marshal(m)
			if insertTurn != nil {
				if _, err := tx.Stmt(insertTurn).Exec(m.Turn, m.CampaignID, m.Digest, len(m.Events), len(m.Outcomes), deployed, string(b)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for i, ev := range m.Events {
				if insertEvent == nil {
					break
				}
				if _, err := tx.Stmt(insertEvent).Exec(m.Turn, i, ev.Kind, ev.TeamID, ev.Arc, ev.Actor, ev.Node, ev.Text); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(sn.Turn, sn.Path, sn.Seed, sn.Teams, sn.Deployed, sn.Digest); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqLogFile:
			lf := r.logFile
			if insertLogFile != nil {
				if _, err := tx.Stmt(insertLogFile).Exec(lf.Path, lf.Bytes, lf.ClosedAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}

package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version    int    `json:"version"`
	CampaignID string `json:"campaign_id"`
	Turn       int    `json:"turn"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed            int64  `json:"seed"`
	DeployDuration  int    `json:"deploy_duration"`
	MaxTeamsPerNode int    `json:"max_teams_per_node"`
	ArcsDigest      string `json:"arcs_digest"`

	NextTeamID    int          `json:"next_team_id"`
	NextDeploySeq int          `json:"next_deploy_seq"`
	Teams         []TeamV1     `json:"teams"`
	Stats         []ArcStatsV1 `json:"stats"`

	Nodes  []NodeV1   `json:"nodes"`
	Active []ActiveV1 `json:"active"`
	Renown []RenownV1 `json:"renown"`

	// Digest is the team table digest at capture time.
	Digest string `json:"digest"`
}

type TeamV1 struct {
	ID           int    `json:"id"`
	Arc          int    `json:"arc"`
	Name         string `json:"name"`
	Pool         string `json:"pool"`
	Actor        int    `json:"actor"`
	Node         int    `json:"node"`
	Timer        int    `json:"timer"`
	TurnDeployed int    `json:"turn_deployed"`
	DeploySeq    int    `json:"deploy_seq"`
}

type ArcStatsV1 struct {
	Deployed    int `json:"deployed"`
	Recalled    int `json:"recalled"`
	Neutralised int `json:"neutralised"`
	Expired     int `json:"expired"`
}

type NodeV1 struct {
	ID        int  `json:"id"`
	Stability int  `json:"stability"`
	Support   int  `json:"support"`
	Security  int  `json:"security"`
	Spider    bool `json:"spider"`
	Tracer    bool `json:"tracer"`
	Contacts  bool `json:"contacts"`
}

type ActiveV1 struct {
	Slot   int  `json:"slot"`
	Side   int  `json:"side"`
	Active bool `json:"active"`
}

type RenownV1 struct {
	Slot   int `json:"slot"`
	Side   int `json:"side"`
	Renown int `json:"renown"`
}

// PathFor names the snapshot for turn under dir/snapshots.
func PathFor(dir string, turn int) string {
	return filepath.Join(dir, "snapshots", fmt.Sprintf("%d.snap.zst", turn))
}

// Latest returns the highest-turn snapshot under dir/snapshots, or "".
func Latest(dir string) string {
	sdir := filepath.Join(dir, "snapshots")
	ents, err := os.ReadDir(sdir)
	if err != nil {
		return ""
	}
	var best string
	bestTurn := -1
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		turn, err := strconv.Atoi(strings.TrimSuffix(name, ".snap.zst"))
		if err != nil {
			continue
		}
		if turn > bestTurn {
			bestTurn = turn
			best = filepath.Join(sdir, name)
		}
	}
	return best
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "fieldops.ai/internal/persistence/log"
	"fieldops.ai/internal/persistence/snapshot"
	"fieldops.ai/internal/protocol"
	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/tuning"
)

func turn(n int, events ...protocol.Event) protocol.TurnMsg {
	return protocol.TurnMsg{
		Type:            protocol.TypeTurn,
		ProtocolVersion: protocol.Version,
		CampaignID:      "c1",
		Turn:            n,
		Events:          events,
		Inventory:       []protocol.ArcCount{{Arc: "CONTROL", Available: 1, Deployed: 1, Total: 2}},
		Digest:          "digest",
	}
}

func TestSQLiteIndex_TurnsAndHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index", "campaign.sqlite")

	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, idx.WriteTurn(turn(1,
		protocol.Event{Turn: 1, Kind: "TEAM_DEPLOYED", TeamID: 3, Arc: "CONTROL", Actor: 0, Node: 2},
		protocol.Event{Turn: 1, Kind: "TEAM_DEPLOYED", TeamID: 4, Arc: "CIVIL", Actor: 1, Node: 5},
	)))
	require.NoError(t, idx.WriteTurn(turn(2,
		protocol.Event{Turn: 2, Kind: "TEAM_RECALLED", TeamID: 3, Arc: "CONTROL", Actor: 0, Node: 2, Text: "recalled"},
	)))
	idx.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, Turn: 2},
		Seed:   9,
		Teams:  []snapshot.TeamV1{{ID: 3, Pool: "COOLDOWN"}, {ID: 4, Pool: "DEPLOYED"}},
		Digest: "d2",
	})
	require.NoError(t, idx.Close())

	// Reopen to read what the writer committed.
	idx, err = OpenSQLite(path)
	require.NoError(t, err)
	defer idx.Close()

	turns, err := idx.Turns(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, TurnRow{Turn: 1, Digest: "digest", Events: 2, Outcomes: 0, Deployed: 1}, turns[0])

	hist, err := idx.TeamHistory(ctx, 3)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "TEAM_DEPLOYED", hist[0].Kind)
	assert.Equal(t, "TEAM_RECALLED", hist[1].Kind)
	assert.Equal(t, "recalled", hist[1].Text)

	at5, err := idx.NodeHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, at5, 1)
	assert.Equal(t, 4, at5[0].TeamID)

	snaps, err := idx.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, SnapshotRow{Turn: 2, Path: "/tmp/2.snap.zst", Seed: 9, Teams: 2, Deployed: 1, Digest: "d2"}, snaps[0])
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	ctx := context.Background()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)

	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "campaign.sqlite"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.UpsertCatalogs("../../../configs", cats, tuning.Defaults()))

	d, err := idx.CatalogDigest(ctx, "arcs")
	require.NoError(t, err)
	assert.Equal(t, cats.Arcs.Digest, d)

	d, err = idx.CatalogDigest(ctx, "tuning")
	require.NoError(t, err)
	assert.Len(t, d, 64)

	d, err = idx.CatalogDigest(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", d)
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTurn, turn: protocol.TurnMsg{Turn: 1}}

	_ = s.WriteTurn(protocol.TurnMsg{Turn: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})
	s.RecordLogFile("/tmp/events.jsonl.zst")

	st := s.Stats()
	assert.Equal(t, uint64(1), st.DropTurnTotal)
	assert.Equal(t, uint64(1), st.DropSnapshotTotal)
	assert.Equal(t, uint64(1), st.DropLogFileTotal)
	assert.Equal(t, 1, st.QueueDepth)
	assert.Equal(t, 1, st.QueueCapacity)
}

func TestSQLiteIndex_NilAndClosedAreNoops(t *testing.T) {
	var s *SQLiteIndex
	require.NoError(t, s.WriteTurn(turn(1)))
	s.RecordSnapshot("x", snapshot.SnapshotV1{})
	s.RecordLogFile("x")

	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "campaign.sqlite"))
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.WriteTurn(turn(2)))
	require.NoError(t, idx.Close())
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	require.Error(t, err)
}

func TestSQLiteIndex_RecordsClosedTurnLogs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "index", "campaign.sqlite")

	idx, err := OpenSQLite(path)
	require.NoError(t, err)
	tl := persistlog.NewTurnLogger(dir)
	tl.OnClose(idx.RecordLogFile)
	require.NoError(t, tl.WriteTurn(turn(1)))
	require.NoError(t, tl.WriteTurn(turn(2)))
	require.NoError(t, tl.Close())
	require.NoError(t, idx.Close())

	files, err := persistlog.Files(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	idx, err = OpenSQLite(path)
	require.NoError(t, err)
	defer idx.Close()
	rows, err := idx.LogFiles(ctx)
	require.NoError(t, err)
	require.Len(t, rows, len(files))
	assert.Equal(t, files[len(files)-1], rows[len(rows)-1].Path)
	assert.Positive(t, rows[len(rows)-1].Bytes)
	assert.NotEmpty(t, rows[0].ClosedAt)
}

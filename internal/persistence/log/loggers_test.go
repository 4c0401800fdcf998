package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops.ai/internal/protocol"
)

func turnMsg(turn int) protocol.TurnMsg {
	return protocol.TurnMsg{
		Type:            protocol.TypeTurn,
		ProtocolVersion: protocol.Version,
		CampaignID:      "c1",
		Turn:            turn,
		Events:          []protocol.Event{{Turn: turn, Kind: "TEAM_AVAILABLE", TeamID: 1, Arc: "CIVIL", Actor: -1, Node: -1}},
		Digest:          "d",
	}
}

func TestTurnLogger_WritesReadableFile(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir)
	for turn := 1; turn <= 3; turn++ {
		require.NoError(t, l.WriteTurn(turnMsg(turn)))
	}
	require.NoError(t, l.Close())

	files, err := Files(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	got, err := ReadTurns(files[0])
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[1].Turn)
	assert.Equal(t, "CIVIL", got[2].Events[0].Arc)
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")
	clock := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }

	var closed []string
	w.OnClose = func(p string) { closed = append(closed, p) }

	require.NoError(t, w.Write(turnMsg(1)))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, w.Write(turnMsg(2)))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{
		w.pathForHour("2024-05-01-10"),
		w.pathForHour("2024-05-01-11"),
	}, closed)

	first, err := ReadTurns(closed[0])
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].Turn)
}

func TestJSONLZstdWriter_AppendsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir)
	require.NoError(t, l.WriteTurn(turnMsg(1)))
	require.NoError(t, l.Close())

	l = NewTurnLogger(dir)
	require.NoError(t, l.WriteTurn(turnMsg(2)))
	require.NoError(t, l.Close())

	files, err := Files(dir)
	require.NoError(t, err)
	var turns []int
	for _, f := range files {
		got, err := ReadTurns(f)
		require.NoError(t, err)
		for _, m := range got {
			turns = append(turns, m.Turn)
		}
	}
	assert.Equal(t, []int{1, 2}, turns)
}

package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops.ai/internal/protocol"
	"fieldops.ai/internal/sim/teams"
)

type fakeSource struct {
	last protocol.TurnMsg
}

func (f *fakeSource) ID() string { return "c1" }
func (f *fakeSource) Dump() teams.Dump {
	return teams.Dump{Turn: 4, Digest: "d", Holdings: []teams.Holding{{Actor: 0, Name: "Director", Teams: []int{}}}}
}
func (f *fakeSource) LastTurn() protocol.TurnMsg { return f.last }

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

func newTestServer(t *testing.T, src Source) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(src, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/observe", s.WSHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, events bool) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		Events:          events,
	}))
}

func readTurn(t *testing.T, conn *websocket.Conn) protocol.TurnMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m protocol.TurnMsg
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func waitSubscribers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for s.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, s.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBootstrap(t *testing.T) {
	_, ts := newTestServer(t, &fakeSource{last: turnMsg(3)})

	resp, err := http.Get(ts.URL + "/v1/bootstrap")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var b BootstrapResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	assert.Equal(t, "c1", b.CampaignID)
	assert.Equal(t, 4, b.Turn)
	assert.Equal(t, "Director", b.Dump.Holdings[0].Name)
	assert.Equal(t, 3, b.LastTurn.Turn)

	post, err := http.Post(ts.URL+"/v1/bootstrap", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestObserve_StreamsPublishedTurns(t *testing.T) {
	s, ts := newTestServer(t, &fakeSource{})
	conn := dial(t, ts)
	subscribe(t, conn, true)
	waitSubscribers(t, s, 1)

	s.Publish(turnMsg(7))
	m := readTurn(t, conn)
	assert.Equal(t, protocol.TypeTurn, m.Type)
	assert.Equal(t, 7, m.Turn)
	require.Len(t, m.Events, 1)

	// Re-subscribe without events.
	subscribe(t, conn, false)
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, sub := range s.subs {
			return !sub.events.Load()
		}
		return false
	}, 3*time.Second, 5*time.Millisecond)

	s.Publish(turnMsg(8))
	m = readTurn(t, conn)
	assert.Equal(t, 8, m.Turn)
	assert.Empty(t, m.Events)

	_ = conn.Close()
	waitSubscribers(t, s, 0)
}

func TestObserve_SendsLatestOnConnect(t *testing.T) {
	s, ts := newTestServer(t, &fakeSource{last: turnMsg(5)})
	conn := dial(t, ts)
	subscribe(t, conn, false)

	m := readTurn(t, conn)
	assert.Equal(t, 5, m.Turn)
	assert.Empty(t, m.Events)
	waitSubscribers(t, s, 1)
}

func TestObserve_RejectsBadHandshake(t *testing.T) {
	s, ts := newTestServer(t, &fakeSource{})
	conn := dial(t, ts)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "HELLO", "protocol_version": protocol.Version}))

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var e protocol.ErrorMsg
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, protocol.TypeError, e.Type)
	assert.Equal(t, protocol.ErrProtoBadRequest, e.Code)
	assert.Equal(t, 0, s.Subscribers())
}

func TestSendLatest_DropsOldest(t *testing.T) {
	ch := make(chan []byte, 2)
	sendLatest(ch, []byte("1"))
	sendLatest(ch, []byte("2"))
	sendLatest(ch, []byte("3"))
	assert.Equal(t, "2", string(<-ch))
	assert.Equal(t, "3", string(<-ch))
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:5000":     true,
		"10.0.0.2:5000":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		assert.Equal(t, want, isLoopbackRemote(addr), addr)
	}
}

func TestAdmit_Remote(t *testing.T) {
	s := NewServer(&fakeSource{}, nil)
	r := httptest.NewRequest(http.MethodGet, "/v1/bootstrap", nil)
	r.RemoteAddr = "10.0.0.2:5000"
	assert.False(t, s.admit(r))
	s.AllowRemote = true
	assert.True(t, s.admit(r))
}

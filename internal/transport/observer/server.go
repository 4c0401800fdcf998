package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fieldops.ai/internal/protocol"
	"fieldops.ai/internal/sim/teams"
)

// Source is the campaign state the observer reads. Implementations must be
// safe to call from HTTP goroutines.
type Source interface {
	ID() string
	Dump() teams.Dump
	LastTurn() protocol.TurnMsg
}

type BootstrapResponse struct {
	ProtocolVersion string           `json:"protocol_version"`
	CampaignID      string           `json:"campaign_id"`
	Turn            int              `json:"turn"`
	Dump            teams.Dump       `json:"dump"`
	LastTurn        protocol.TurnMsg `json:"last_turn"`
}

type Server struct {
	src Source
	log *log.Logger

	// AllowRemote admits non-loopback clients.
	AllowRemote bool

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.Mutex
	subs map[string]*subscriber
}

type subscriber struct {
	out    chan []byte
	events atomic.Bool
}

func NewServer(src Source, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		src:  src,
		log:  logger,
		subs: map[string]*subscriber{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Publish fans a TURN message out to every subscriber. A subscriber that has
// fallen behind loses its oldest queued message, so the latest turn always
// gets through.
func (s *Server) Publish(msg protocol.TurnMsg) {
	full, err := json.Marshal(msg)
	if err != nil {
		s.log.Printf("observer: marshal turn %d: %v", msg.Turn, err)
		return
	}
	quiet := msg
	quiet.Events = nil
	lean, _ := json.Marshal(quiet)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		b := lean
		if sub.events.Load() {
			b = full
		}
		sendLatest(sub.out, b)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	for {
		select {
		case ch <- b:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.admit(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		d := s.src.Dump()
		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			CampaignID:      s.src.ID(),
			Turn:            d.Turn,
			Dump:            d,
			LastTurn:        s.src.LastTurn(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.admit(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteJSON(protocol.ErrorMsg{
				Type:            protocol.TypeError,
				ProtocolVersion: protocol.Version,
				Code:            protocol.ErrProtoBadRequest,
				Message:         "expected SUBSCRIBE " + protocol.Version,
			})
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := &subscriber{out: make(chan []byte, 8)}
		out.events.Store(sub.Events)
		s.mu.Lock()
		s.subs[sid] = out
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.subs, sid)
			s.mu.Unlock()
		}()

		if last := s.src.LastTurn(); last.Turn > 0 {
			if !sub.Events {
				last.Events = nil
			}
			if b, err := json.Marshal(last); err == nil {
				sendLatest(out.out, b)
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: SUBSCRIBE again to toggle event lists.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := decodeSubscribe(msg); ok {
				out.events.Store(sub.Events)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(b []byte) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(b, &sub); err != nil {
		return sub, false
	}
	return sub, sub.Type == protocol.TypeSubscribe && sub.ProtocolVersion == protocol.Version
}

func (s *Server) admit(r *http.Request) bool {
	return s.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

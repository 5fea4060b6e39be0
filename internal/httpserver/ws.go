// internal/httpserver/ws.go
//
// Live updates for one hosted game. The hub is the Go stand-in for the page's
// score/time text elements plus its redraw loop: the engine pushes display
// text through TextSinks and a snapshot on every change, and the hub fans
// them out to websocket subscribers.

package httpserver

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"flipmatch/internal/game"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 30 * time.Second
	wsPingPeriod = 25 * time.Second
)

// wsMsg is one message to a live subscriber.
type wsMsg struct {
	Type  string         `json:"type"` // "score" | "time" | "state"
	Text  string         `json:"text,omitempty"`
	State *game.Snapshot `json:"state,omitempty"`
}

// hub fans messages out to the subscribers of one game.
type hub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan []byte]struct{})}
}

// Publish sends a full snapshot to every subscriber. Implements
// store.Broadcaster.
func (h *hub) Publish(snap game.Snapshot) {
	b, err := json.Marshal(wsMsg{Type: "state", State: &snap})
	if err != nil {
		return
	}
	h.broadcast(b)
}

// broadcast delivers without blocking; a subscriber that cannot keep up
// misses the message and catches up on the next one.
func (h *hub) broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

func (h *hub) subscribe() chan []byte {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// textSink adapts the hub to game.TextSink for one display target.
type textSink struct {
	h    *hub
	kind string // "score" or "time"
}

func (t textSink) SetText(text string) {
	b, err := json.Marshal(wsMsg{Type: t.kind, Text: text})
	if err != nil {
		return
	}
	t.h.broadcast(b)
}

func (h *hub) sink(kind string) game.TextSink { return textSink{h: h, kind: kind} }

// handleWS upgrades the connection and streams score/time/state updates for
// one game until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	e := s.entryFor(w, r)
	if e == nil {
		return
	}
	h, _ := e.Hub.(*hub)
	if h == nil {
		http.Error(w, `{"error":"no_live_updates"}`, http.StatusInternalServerError)
		return
	}

	allowedOrigin := os.Getenv("CLIENT_ORIGIN")
	up := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", e.ID).Msg("ws upgrade")
		return
	}

	ch := h.subscribe()
	defer h.unsubscribe(ch)
	defer conn.Close()

	// Initial snapshot so the client can render immediately.
	snap := e.Session.Snapshot()
	if b, err := json.Marshal(wsMsg{Type: "state", State: &snap}); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}

	// Read pump: nothing meaningful arrives, but reads surface disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case b := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

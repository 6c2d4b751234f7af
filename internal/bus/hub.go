package bus

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 200 * time.Millisecond

// Hooks are invoked from connection read loops. Nil hooks are skipped.
type Hooks struct {
	// OnProjectorMessage receives every message a projector sends.
	OnProjectorMessage func(Message)
	// OnDashboardMessage receives every message a dashboard UI sends.
	OnDashboardMessage func(Message)
	// OnProjectorConnect fires after a projector finishes its handshake.
	OnProjectorConnect func()
}

// Hub is the dashboard-side endpoint of the bus. It serves one
// websocket path per peer role and fans sends out to whoever is
// connected; no peer connected means the send evaporates.
type Hub struct {
	mu         sync.RWMutex
	hooks      Hooks
	projectors map[*websocket.Conn]bool
	dashboards map[*websocket.Conn]bool
}

// NewHub constructs an empty hub.
func NewHub(hooks Hooks) *Hub {
	return &Hub{
		hooks:      hooks,
		projectors: map[*websocket.Conn]bool{},
		dashboards: map[*websocket.Conn]bool{},
	}
}

// Attach registers the hub's websocket endpoints on a mux.
func (h *Hub) Attach(mux *http.ServeMux) {
	mux.HandleFunc("/ws/projector", h.handleProjectorWS)
	mux.HandleFunc("/ws/dashboard", h.handleDashboardWS)
}

// ProjectorConnected reports whether at least one projector is attached.
func (h *Hub) ProjectorConnected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projectors) > 0
}

func (h *Hub) handleProjectorWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.projectors[conn] = true
	h.mu.Unlock()
	if h.hooks.OnProjectorConnect != nil {
		h.hooks.OnProjectorConnect()
	}

	go h.readLoop(conn, h.projectors, h.hooks.OnProjectorMessage)
}

func (h *Hub) handleDashboardWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.dashboards[conn] = true
	h.mu.Unlock()

	go h.readLoop(conn, h.dashboards, h.hooks.OnDashboardMessage)
}

func (h *Hub) readLoop(conn *websocket.Conn, peers map[*websocket.Conn]bool, handle func(Message)) {
	defer func() {
		h.mu.Lock()
		delete(peers, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			continue
		}
		if handle != nil {
			handle(msg)
		}
	}
}

// SendToProjector delivers a message to every attached projector.
func (h *Hub) SendToProjector(msg Message) {
	h.send(h.projectors, msg)
}

// SendToDashboard delivers a message to every attached dashboard UI.
func (h *Hub) SendToDashboard(msg Message) {
	h.send(h.dashboards, msg)
}

func (h *Hub) send(peers map[*websocket.Conn]bool, msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Debug().Err(err).Str("type", msg.Type).Msg("encode message")
		return
	}
	// Exclusive: sends arrive from many goroutines (input callbacks,
	// sequencer ticks, read loops) and a websocket conn allows only
	// one writer at a time.
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range peers {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Str("type", msg.Type).Msg("write message")
		}
	}
}

// Close tears down every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.projectors {
		c.Close()
	}
	for c := range h.dashboards {
		c.Close()
	}
	h.projectors = map[*websocket.Conn]bool{}
	h.dashboards = map[*websocket.Conn]bool{}
}

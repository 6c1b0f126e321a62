package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/render"
)

// DefaultBoardInterval throttles snapshot broadcasts (~15 FPS).
const DefaultBoardInterval = 66 * time.Millisecond

// clientBuffer is the per-client outbound queue length. A client that
// falls this far behind is disconnected.
const clientBuffer = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// boardMessage is one frame on the /api/board socket.
type boardMessage struct {
	Type     string           `json:"type"`
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Mesh     *render.MeshOp   `json:"mesh,omitempty"`
}

type boardClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine output out to display clients on /api/board. It
// implements render.Sink and engine.SnapshotSink; both are called from
// the engine goroutine and never block.
type Hub struct {
	interval time.Duration

	mu       sync.RWMutex
	clients  map[*boardClient]struct{}
	meshes   map[uint64]render.MeshOp
	latest   engine.Snapshot
	hasLast  bool
	lastSent time.Time
}

// NewHub creates a hub that sends at most one snapshot per interval.
func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultBoardInterval
	}
	return &Hub{
		interval: interval,
		clients:  make(map[*boardClient]struct{}),
		meshes:   make(map[uint64]render.MeshOp),
	}
}

// PublishSnapshot records s as the latest board state and broadcasts it
// if the throttle interval has passed.
func (h *Hub) PublishSnapshot(s engine.Snapshot) {
	h.mu.Lock()
	h.latest = s
	h.hasLast = true
	due := s.At.Sub(h.lastSent) >= h.interval
	if due {
		h.lastSent = s.At
	}
	h.mu.Unlock()

	if due {
		h.broadcast(boardMessage{Type: "snapshot", Snapshot: &s})
	}
}

// PublishMesh tracks live meshes and broadcasts the operation.
func (h *Hub) PublishMesh(op render.MeshOp) {
	h.mu.Lock()
	switch op.Op {
	case render.OpCreate:
		h.meshes[op.ID] = op
	case render.OpDispose:
		delete(h.meshes, op.ID)
	}
	h.mu.Unlock()

	h.broadcast(boardMessage{Type: "mesh", Mesh: &op})
}

// Latest returns the most recent snapshot.
func (h *Hub) Latest() (engine.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasLast
}

// Meshes returns the number of live meshes.
func (h *Hub) Meshes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.meshes)
}

// Clients returns the number of connected board clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg boardMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode board message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Println("Board client too slow, disconnecting")
			h.dropLocked(c)
		}
	}
}

func (h *Hub) dropLocked(c *boardClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeHTTP upgrades to a websocket, replays every live mesh and the
// latest snapshot, then streams updates until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &boardClient{conn: conn, send: make(chan []byte, clientBuffer)}
	replay := h.register(c)
	go c.writeLoop(replay)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// register adds c to the broadcast set and returns the replay for it: a
// create for every live mesh followed by the latest snapshot. The replay
// is not bounded by the client's buffer.
func (h *Hub) register(c *boardClient) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	replay := make([][]byte, 0, len(h.meshes)+1)
	for _, op := range h.meshes {
		op := op
		data, err := json.Marshal(boardMessage{Type: "mesh", Mesh: &op})
		if err != nil {
			log.Printf("Failed to encode mesh %d: %v", op.ID, err)
			continue
		}
		replay = append(replay, data)
	}
	if h.hasLast {
		snap := h.latest
		if data, err := json.Marshal(boardMessage{Type: "snapshot", Snapshot: &snap}); err == nil {
			replay = append(replay, data)
		}
	}
	h.clients[c] = struct{}{}
	return replay
}

// writeLoop sends the replay, then every queued broadcast. Broadcasts
// published during the replay wait in c.send, so they arrive after it.
func (c *boardClient) writeLoop(replay [][]byte) {
	for _, data := range replay {
		if !c.write(data) {
			return
		}
	}
	for data := range c.send {
		if !c.write(data) {
			return
		}
	}
}

func (c *boardClient) write(data []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.conn.Close()
		for range c.send {
		}
		return false
	}
	return true
}

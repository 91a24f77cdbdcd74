package bulkimport

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// ProgressFrame is one per-row progress update pushed to subscribers
// during an apply run. RunID is the csv sha256 of the session being applied.
type ProgressFrame struct {
	RunID  string `json:"runId"`
	Row    int    `json:"row"`
	Total  int    `json:"total"`
	Email  string `json:"email"`
	Action string `json:"action"`
	Done   bool   `json:"done"`
}

// ProgressHub fans apply progress out to websocket subscribers. Publishing
// is advisory: a slow or dead subscriber is dropped, never blocks apply.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string][]*websocket.Conn
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string][]*websocket.Conn)}
}

func (h *ProgressHub) Subscribe(runID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[runID] = append(h.subs[runID], conn)
}

func (h *ProgressHub) Unsubscribe(runID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.subs[runID]
	for i, c := range conns {
		if c == conn {
			h.subs[runID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.subs[runID]) == 0 {
		delete(h.subs, runID)
	}
}

func (h *ProgressHub) Publish(frame ProgressFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.subs[frame.RunID]
	alive := conns[:0]
	for _, c := range conns {
		if err := c.WriteJSON(frame); err == nil {
			alive = append(alive, c)
		}
	}
	h.subs[frame.RunID] = alive
	if len(alive) == 0 {
		delete(h.subs, frame.RunID)
	}
}

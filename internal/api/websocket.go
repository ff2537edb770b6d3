package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local debug dashboard only
	},
}

// GroupStreamHub fans every group-membership and leader-status change out
// to /stream subscribers as they happen (§4.J, §4.K), so a dashboard never
// has to poll /groups. It holds no classifier state itself — HubEmitter
// pushes it pre-encoded JSON as State's owner goroutine makes decisions.
type GroupStreamHub struct {
	subscribers map[*websocket.Conn]bool
	broadcast   chan []byte
	mu          sync.Mutex
}

func NewHub() *GroupStreamHub {
	return &GroupStreamHub{
		broadcast:   make(chan []byte, 256),
		subscribers: make(map[*websocket.Conn]bool),
	}
}

// Run drains broadcast and fans each message out to every subscriber. A
// slow or dead subscriber gets a write deadline rather than stalling the
// feed for everyone else; a write failure drops it.
func (h *GroupStreamHub) Run() {
	for message := range h.broadcast {
		h.mu.Lock()
		for conn := range h.subscribers {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[api] stream write error: %v", err)
				conn.Close()
				delete(h.subscribers, conn)
			}
		}
		h.mu.Unlock()
	}
}

// Subscribe upgrades a GET /stream request and registers the connection as
// a broadcast target until it disconnects.
func (h *GroupStreamHub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[api] stream upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.subscribers[conn] = true
	count := len(h.subscribers)
	h.mu.Unlock()
	log.Printf("[api] stream subscriber connected, %d active", count)

	// The feed is push-only, but a read loop is still required to notice
	// the client going away.
	defer func() {
		h.mu.Lock()
		delete(h.subscribers, conn)
		count := len(h.subscribers)
		h.mu.Unlock()
		conn.Close()
		log.Printf("[api] stream subscriber disconnected, %d active", count)
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[api] stream read error: %v", err)
			}
			return
		}
	}
}

// Broadcast enqueues a pre-encoded JSON message for every subscriber. It
// never blocks: when the buffer is full the message is dropped and logged.
func (h *GroupStreamHub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		log.Printf("[api] stream buffer full, dropping message")
	}
}

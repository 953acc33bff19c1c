package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/alanyang/promptledger/internal/domain/event"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans registry and ledger events out to browser clients. Clients may
// narrow the stream with ?channel=prompt or ?channel=run.
type Hub struct {
	clients map[*client]bool
	mu      sync.RWMutex
}

type client struct {
	conn    *websocket.Conn
	channel event.Channel // empty means every channel
	writeMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	ch := event.Channel(c.Query("channel"))
	if ch != "" && !knownChannel(ch) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{conn: conn, channel: ch}
	h.mu.Lock()
	h.clients[cl] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast writes e to every client subscribed to its channel. A client
// whose write fails is dropped.
func (h *Hub) Broadcast(e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "error", err)
		return
	}
	ch := event.ChannelFor(e.Type)

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		if cl.channel == "" || cl.channel == ch {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if err := cl.write(data); err != nil {
			slog.Warn("websocket write failed, dropping client", "error", err)
			cl.conn.Close()
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (cl *client) write(data []byte) error {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	if err := cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return cl.conn.WriteMessage(websocket.TextMessage, data)
}

func knownChannel(ch event.Channel) bool {
	for _, c := range event.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

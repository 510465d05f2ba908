// Package feed streams live training progress to websocket clients.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Message types sent to clients.
const (
	MsgTypeEpisode = "episode"
	MsgTypeBest    = "best"
	MsgTypeBoard   = "board"
)

// Message is the envelope every client receives.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// validOrigin accepts non-browser clients, same-origin pages and localhost.
func validOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

type client struct {
	id   int
	conn *websocket.Conn
	send chan Message
	hub  *Hub
}

// Hub fans published messages out to every connected client. Clients that
// fall behind miss messages rather than stalling the publisher.
type Hub struct {
	Logger *slog.Logger

	upgrader   websocket.Upgrader
	mu         sync.RWMutex
	clients    map[int]*client
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	nextID     int
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Logger:     slog.Default(),
		upgrader:   websocket.Upgrader{CheckOrigin: validOrigin, EnableCompression: true},
		clients:    make(map[int]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns, disconnecting every client, when
// ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			h.Logger.Debug("feed client connected", "client", c.id)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
			h.Logger.Debug("feed client disconnected", "client", c.id)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.Logger.Warn("feed client send buffer full, skipping", "client", c.id, "type", msg.Type)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish queues a message for every client. It never blocks; when the
// queue is full the message is dropped and false is returned.
func (h *Hub) Publish(msgType string, data any) bool {
	select {
	case h.broadcast <- Message{Type: msgType, Data: data}:
		return true
	default:
		return false
	}
}

// Clients reports how many clients are connected.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and subscribes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("feed upgrade failed", "error", err, "origin", r.Header.Get("Origin"))
		return
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.mu.Unlock()

	c := &client{id: id, conn: conn, send: make(chan Message, sendBuffer), hub: h}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump only services control frames; the feed is one-way.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Debug("feed read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package websocket pushes change notifications to browsers. Messages
// carry only the category that changed; clients re-fetch over HTTP.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/notify"
	"github.com/abrezinsky/avavote/internal/services"
)

// Message types
const (
	TypeChanged        = "changed"
	TypeElectionStatus = "election_status"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateSource provides the election state sent to new clients
type StateSource interface {
	GetState(ctx context.Context) (*services.ElectionState, error)
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	log        logger.Logger
	subscriber notify.Subscriber
	state      StateSource

	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	handles  map[notify.Category]notify.Handle
	done     chan struct{}
	stopOnce sync.Once
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// New creates a hub. Nothing is subscribed until Start.
func New(log logger.Logger, subscriber notify.Subscriber, state StateSource) *Hub {
	return &Hub{
		log:        log,
		subscriber: subscriber,
		state:      state,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		handles:    make(map[notify.Category]notify.Handle),
		done:       make(chan struct{}),
	}
}

// Start subscribes to every notification category and runs the hub loop
func (h *Hub) Start() {
	for _, c := range notify.All {
		category := c
		h.handles[category] = h.subscriber.Subscribe(category, func() {
			h.BroadcastChange(category)
		})
	}
	go h.run()
}

// Stop unsubscribes and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		for c, handle := range h.handles {
			h.subscriber.Unsubscribe(c, handle)
		}
		close(h.done)
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", h.ClientCount())

		case client := <-h.unregister:
			h.remove(client)
			h.log.Debug("Client disconnected", "total_clients", h.ClientCount())

		case message := <-h.broadcast:
			var slow []*Client
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mutex.RUnlock()
			for _, client := range slow {
				h.log.Debug("Dropping slow client")
				h.remove(client)
			}

		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mutex.Unlock()
}

// BroadcastMessage sends a message to all connected clients. It returns
// without sending once the hub is stopped.
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	select {
	case h.broadcast <- models.WSMessage{Type: msgType, Payload: payload}:
	case <-h.done:
	}
}

// BroadcastChange tells clients that data in category changed
func (h *Hub) BroadcastChange(category notify.Category) {
	h.BroadcastMessage(TypeChanged, map[string]interface{}{
		"category": category,
	})
}

func (h *Hub) statusMessage(ctx context.Context) (models.WSMessage, bool) {
	state, err := h.state.GetState(ctx)
	if err != nil {
		h.log.Warn("Failed to load election state for new client", "error", err)
		return models.WSMessage{}, false
	}
	return models.WSMessage{Type: TypeElectionStatus, Payload: state}, true
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients have nothing to say; reading only services control frames
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode message", "type", message.Type, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// ServeWs upgrades the request and registers the client. The current
// election state is the first message every client receives.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, sendBuffer),
	}
	if msg, ok := h.statusMessage(r.Context()); ok {
		client.send <- msg
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

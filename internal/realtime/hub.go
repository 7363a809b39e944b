package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	EventMessageCreated = "message.created"
	EventMessageStatus  = "message.status"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Event is pushed to every subscriber of a conversation
type Event struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId"`
	Payload        interface{} `json:"payload"`
}

type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	conversationID string
	userID         string
}

// Hub fans conversation events out to websocket subscribers. Events of one
// conversation reach a client in publish order.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and subscribes the connection to conversationID.
// Authorization is the caller's job.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, conversationID, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		conversationID: conversationID,
		userID:         userID,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.clients[c.conversationID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.clients[c.conversationID] = subs
	}
	subs[c] = struct{}{}
	slog.Debug("WebSocket client registered", "conversation_id", c.conversationID, "user_id", c.userID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	subs, ok := h.clients[c.conversationID]
	if !ok {
		return
	}
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	close(c.send)
	if len(subs) == 0 {
		delete(h.clients, c.conversationID)
	}
}

// Publish delivers ev to the conversation's subscribers. A subscriber whose
// buffer is full is dropped.
func (h *Hub) Publish(conversationID, eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, ConversationID: conversationID, Payload: payload})
	if err != nil {
		slog.Error("Failed to marshal realtime event", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[conversationID] {
		select {
		case c.send <- data:
		default:
			slog.Warn("Dropping slow websocket client", "conversation_id", conversationID, "user_id", c.userID)
			h.removeLocked(c)
		}
	}
}

// Subscribers returns the number of live clients of a conversation
func (h *Hub) Subscribers(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[conversationID])
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; clients send through the REST API
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}
	}
}

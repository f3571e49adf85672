package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"clicker_webapp/internal/logger"
)

// Hub fans events out to every open connection of a user. It satisfies
// notify.Notifier so services can push updates without knowing about
// websockets.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[string]*Client

	// OnClick applies a click and returns the payload for the
	// game_balance_update reply. OnConnect runs once per new
	// connection, before the first message.
	OnClick   func(ctx context.Context, userID int64) (any, error)
	OnConnect func(ctx context.Context, userID int64)
}

func NewHub() *Hub {
	return &Hub{conns: make(map[int64]map[string]*Client)}
}

// Notify queues an event to all of the user's connections. Slow clients
// are skipped rather than blocking the caller.
func (h *Hub) Notify(userID int64, event string, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		logger.Error("marshal ws event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns[userID] {
		select {
		case c.send <- data:
		default:
			logger.Warn("ws send buffer full, dropping event", "user_id", userID, "event", event)
		}
	}
}

// HandleConn takes ownership of an upgraded connection and runs its
// pumps until the peer disconnects.
func (h *Hub) HandleConn(conn *websocket.Conn, userID int64) {
	c := &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    h,
	}
	h.register(c)

	if h.OnConnect != nil {
		h.OnConnect(context.Background(), userID)
	}

	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.userID] == nil {
		h.conns[c.userID] = make(map[string]*Client)
	}
	h.conns[c.userID][c.id] = c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if peers, ok := h.conns[c.userID]; ok {
		if _, ok := peers[c.id]; ok {
			delete(peers, c.id)
			close(c.send)
		}
		if len(peers) == 0 {
			delete(h.conns, c.userID)
		}
	}
}

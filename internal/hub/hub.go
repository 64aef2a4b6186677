// Package hub fans events out to the connections attached to one room.
// A Client is the abstract bidirectional channel handed to the core: the
// transport layer pumps its Send channel to the wire and feeds decoded
// commands back in. The hub never blocks on a slow consumer; a connection
// whose buffer stays full is dropped.
package hub

import (
	"log/slog"
	"sync"
)

// SendBuffer is the per-connection outbound queue size.
const SendBuffer = 256

// Client is one live connection.
type Client struct {
	ID    string // connection id, unique per socket
	Token string // durable player token, set when the client enters a room
	Send  chan []byte

	closeOnce sync.Once
}

// NewClient builds a client with a buffered send channel.
func NewClient(id string) *Client {
	return &Client{ID: id, Send: make(chan []byte, SendBuffer)}
}

// CloseSend closes the send channel, shutting the write pump down. Safe to
// call more than once: the room, the hub and the transport all reach for it
// on different shutdown paths.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// RoomHub tracks the connections attached to one room.
type RoomHub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
	log     *slog.Logger
}

func NewRoomHub(log *slog.Logger) *RoomHub {
	return &RoomHub{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Register attaches a connection. If a connection with the same id is already
// present its send channel is closed first, so the write pump shuts it down.
func (h *RoomHub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		c.CloseSend()
		return
	}
	if existing, ok := h.clients[c.ID]; ok && existing != c {
		existing.CloseSend()
	}
	h.clients[c.ID] = c
}

// Unregister detaches a connection and closes its send channel.
// Returns false if the connection was not attached.
func (h *RoomHub) Unregister(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return false
	}
	delete(h.clients, id)
	c.CloseSend()
	return true
}

// Detach removes a connection from the room without closing its send
// channel. Used for voluntary departure: the client stays alive and may
// enter another room on the same connection.
func (h *RoomHub) Detach(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	return ok
}

// Broadcast queues data on every attached connection. Connections whose
// buffers are full are evicted rather than blocking the room.
func (h *RoomHub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.Send <- data:
		default:
			h.log.Warn("dropping slow connection", "connection_id", id)
			delete(h.clients, id)
			c.CloseSend()
		}
	}
}

// SendTo queues data on a single connection. Returns false if the connection
// is not attached or its buffer is full.
func (h *RoomHub) SendTo(id string, data []byte) bool {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Len reports the number of attached connections.
func (h *RoomHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches every connection and rejects future registrations.
func (h *RoomHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.CloseSend()
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types pushed to clients
const (
	EventNotification = "notification"
	EventUnreadCount  = "unread_count"
)

// Event is a server-to-client message
type Event struct {
	Type        string      `json:"type"`
	Data        interface{} `json:"data,omitempty"`
	UnreadCount *int64      `json:"unreadCount,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ClientMessage is a client-to-server message
type ClientMessage struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notificationId,omitempty"`

	// Set by the server from the authenticated connection
	UserID int64 `json:"-"`
}

type delivery struct {
	userID int64
	data   []byte
}

// Hub tracks connected clients per user and pushes events to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[int64]map[*Client]bool

	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	inbound    chan *ClientMessage

	// Mutex for concurrent access to clients map
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		deliver:    make(chan delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *ClientMessage, 64),
		logger:     logger,
	}
}

// Run serves registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case d := <-h.deliver:
			h.deliverToUser(d)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Debug().
		Int64("userID", client.userID).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	conns, ok := h.clients[client.userID]
	if !ok || !conns[client] {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}
	h.logger.Debug().
		Int64("userID", client.userID).
		Msg("Client unregistered")
}

func (h *Hub) deliverToUser(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[d.userID] {
		select {
		case client.send <- d.data:
		default:
			// Slow consumer: drop the connection, the client reconnects and refetches.
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for client := range conns {
			h.removeLocked(client)
		}
	}
}

// Push queues ev for every connection of userID. It never blocks; a full queue drops the event.
func (h *Hub) Push(userID int64, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to marshal event")
		return
	}

	select {
	case h.deliver <- delivery{userID: userID, data: data}:
	default:
		h.logger.Warn().Int64("userID", userID).Str("type", ev.Type).Msg("Delivery queue full, event dropped")
	}
}

// Inbound exposes messages received from clients
func (h *Hub) Inbound() <-chan *ClientMessage {
	return h.inbound
}

// ConnectionCount returns the number of open connections for a user
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

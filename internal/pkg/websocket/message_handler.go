package websocket

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Client message types
const (
	MessageMarkRead    = "mark_read"
	MessageMarkAllRead = "mark_all_read"
)

// ReadMarker marks notifications read on behalf of a user
type ReadMarker interface {
	MarkRead(ctx context.Context, notificationID, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

// MessageHandler applies client messages and answers with the new unread count
type MessageHandler struct {
	hub     *Hub
	markers ReadMarker
	logger  zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(hub *Hub, markers ReadMarker, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		hub:     hub,
		markers: markers,
		logger:  logger,
	}
}

// Run consumes client messages until ctx is cancelled
func (h *MessageHandler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.hub.Inbound():
			h.handle(ctx, msg)
		}
	}
}

func (h *MessageHandler) handle(ctx context.Context, msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	switch msg.Type {
	case MessageMarkRead:
		err = h.markers.MarkRead(ctx, msg.NotificationID, msg.UserID)
	case MessageMarkAllRead:
		_, err = h.markers.MarkAllRead(ctx, msg.UserID)
	default:
		h.logger.Debug().Str("type", msg.Type).Int64("userID", msg.UserID).Msg("Unknown client message type")
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Int64("userID", msg.UserID).Msg("Client message failed")
		return
	}

	count, err := h.markers.UnreadCount(ctx, msg.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("userID", msg.UserID).Msg("Failed to load unread count")
		return
	}
	h.hub.Push(msg.UserID, Event{Type: EventUnreadCount, UnreadCount: &count})
}

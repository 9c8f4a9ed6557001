package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 << 10
	sendBuffer     = 32
)

// Client is one open notification stream. A user may hold several.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	logger zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID int64, logger zerolog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		logger: logger.With().Int64("userID", userID).Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// serve registers the client and starts both loops. It returns immediately.
func (c *Client) serve() {
	c.hub.register <- c
	go c.writeLoop()
	go c.readLoop()
}

// readLoop decodes client messages until the peer goes away, then unregisters
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("Notification stream closed unexpectedly")
			}
			return
		}

		msg := &ClientMessage{}
		if err := json.Unmarshal(raw, msg); err != nil {
			c.logger.Debug().Err(err).Msg("Ignoring malformed client message")
			continue
		}
		// never trust a client supplied user
		msg.UserID = c.userID

		select {
		case c.hub.inbound <- msg:
		default:
			c.logger.Warn().Str("type", msg.Type).Msg("Inbound queue full, client message dropped")
		}
	}
}

// writeLoop owns all writes on the connection
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		var (
			kind    int
			payload []byte
		)
		select {
		case data, open := <-c.send:
			if !open {
				// hub dropped us
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			kind, payload = websocket.TextMessage, data
		case <-ping.C:
			kind = websocket.PingMessage
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			c.logger.Debug().Err(err).Msg("Write failed, closing notification stream")
			return
		}
	}
}

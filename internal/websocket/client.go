package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a Client for conn. traceID may be empty.
func NewClient(hub *Hub, conn Connection, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	)
	if traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// ID returns the client identifier
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	return contextFor(c.traceID)
}

// ReadPump drains client frames until the connection fails. Clients only
// send heartbeats; anything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.context(), "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Handler upgrades requests to WebSocket connections and attaches them to
// hub. An empty allowedOrigins list accepts same-host and origin-less
// requests only; "*" accepts any origin.
func Handler(hub *Hub, allowedOrigins []string, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowedOrigins)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WarnContext(r.Context(), "WebSocket upgrade failed",
				slog.String("error", err.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			return
		}

		client := NewClient(hub, WrapConn(conn), r.Header.Get("X-Request-ID"), logger)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

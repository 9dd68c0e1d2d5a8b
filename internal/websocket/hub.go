package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"exportcheck/internal/infrastructure"
)

// TypeConnection is sent to a client right after it registers
const TypeConnection = "connection"

const broadcastBuffer = 256

// Message is the envelope of every frame sent to clients
type Message struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts run events to them.
// It implements operations.WebSocketHub.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit    chan struct{}
	stopped chan struct{}
	running bool
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop. Only this goroutine adds or removes clients.
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.greet(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.InfoContext(client.context(), "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) greet(client *Client) {
	data, err := json.Marshal(Message{
		Type:      TypeConnection,
		Status:    "connected",
		Data:      map[string]string{"client_id": client.id},
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   client.traceID,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	failed := 0
	for client := range h.clients {
		select {
		case client.send <- message:
			h.messagesSent++
		default:
			failed++
			close(client.send)
			delete(h.clients, client)
			h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.logger.Debug("Broadcast message to clients",
		slog.Int("client_count", len(h.clients)),
		slog.Int("failed", failed),
		slog.Int("message_size", len(message)))
}

// BroadcastUpdate sends a run event to all connected clients. It never
// blocks; events are dropped when the queue is full or the hub stopped.
func (h *Hub) BroadcastUpdate(eventType, runID, status string, metadata interface{}) {
	msg := Message{
		Type:      eventType,
		RunID:     runID,
		Status:    status,
		Data:      metadata,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", eventType))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- data:
	default:
		h.mu.Lock()
		h.messagesDropped++
		h.mu.Unlock()
		h.logger.Warn("Broadcast queue full, dropping message",
			slog.String("message_type", eventType),
			slog.String("run_id", runID))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.stopped
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
		"broadcast_queue":   len(h.broadcast),
	}
}

// contextFor returns a context carrying the client's trace id
func contextFor(traceID string) context.Context {
	ctx := context.Background()
	if traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, traceID)
	}
	return ctx
}

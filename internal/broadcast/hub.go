// Package broadcast fans orchestrator events out to connected websocket
// clients (UI live search/grab progress, indexer health changes).
package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is a broadcast envelope delivered to every connected client.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Event type constants for the search/grab/health lifecycle.
const (
	EventSearchStarted  = "search.started"
	EventSearchResult   = "search.result"
	EventSearchComplete = "search.complete"
	EventGrabStarted    = "grab.started"
	EventGrabCompleted  = "grab.completed"
	EventGrabFailed     = "grab.failed"
	EventIndexerStatus  = "indexer.status"
)

// Hub holds the set of connected clients and fans out broadcast events.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	logger     zerolog.Logger
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an event hub. Run must be started in its own goroutine.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.With().Str("component", "broadcast").Logger(),
	}
}

// Run processes registrations and broadcasts in an endless loop with no
// shutdown signal; callers run it in its own goroutine for the process
// lifetime.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case evt := <-h.broadcast:
			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error().Err(err).Msg("marshal broadcast event")
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) emit(eventType string, payload interface{}) {
	select {
	case h.broadcast <- Event{Type: eventType, Payload: payload, Timestamp: time.Now()}:
	default:
		h.logger.Warn().Str("event", eventType).Msg("broadcast channel full, dropping event")
	}
}

// BroadcastSearchStarted notifies clients a search began.
func (h *Hub) BroadcastSearchStarted(requestID string, criteriaSummary string) {
	h.emit(EventSearchStarted, map[string]string{"requestId": requestID, "criteria": criteriaSummary})
}

// BroadcastSearchResult streams a single aggregated result as it becomes available.
func (h *Hub) BroadcastSearchResult(requestID string, result interface{}) {
	h.emit(EventSearchResult, map[string]interface{}{"requestId": requestID, "result": result})
}

// BroadcastSearchComplete notifies clients a search finished, with the final count.
func (h *Hub) BroadcastSearchComplete(requestID string, resultCount int) {
	h.emit(EventSearchComplete, map[string]interface{}{"requestId": requestID, "count": resultCount})
}

// BroadcastGrabStarted notifies clients a download dispatch began.
func (h *Hub) BroadcastGrabStarted(releaseTitle, indexerID string) {
	h.emit(EventGrabStarted, map[string]string{"releaseTitle": releaseTitle, "indexerId": indexerID})
}

// BroadcastGrabCompleted notifies clients a download dispatch succeeded.
func (h *Hub) BroadcastGrabCompleted(releaseTitle, downloadClientID string) {
	h.emit(EventGrabCompleted, map[string]string{"releaseTitle": releaseTitle, "downloadClientId": downloadClientID})
}

// BroadcastGrabFailed notifies clients a download dispatch failed.
func (h *Hub) BroadcastGrabFailed(releaseTitle, reason string) {
	h.emit(EventGrabFailed, map[string]string{"releaseTitle": releaseTitle, "reason": reason})
}

// BroadcastIndexerStatus notifies clients of an indexer health transition.
func (h *Hub) BroadcastIndexerStatus(indexerID, status string, backoffUntil *time.Time) {
	payload := map[string]interface{}{"indexerId": indexerID, "status": status}
	if backoffUntil != nil {
		payload["backoffUntil"] = backoffUntil
	}
	h.emit(EventIndexerStatus, payload)
}

// HandleWebSocket upgrades the request and registers the connection.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{hub: h, conn: conn, send: make(chan []byte, 32)}
	h.register <- cl

	go cl.writePump()
	go cl.readPump()
	return nil
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

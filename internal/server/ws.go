package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/airkeys/internal/app"
	"github.com/ayusman/airkeys/internal/detector"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Per-client outbound queue length and write deadline. A client that falls
// behind loses messages rather than stalling the frame loop.
const (
	clientQueue  = 32
	writeTimeout = 2 * time.Second
)

type frameMessage struct {
	Type      string                   `json:"type"`
	Timestamp int64                    `json:"timestamp"`
	Width     int                      `json:"width"`
	Height    int                      `json:"height"`
	Hands     []detector.HandLandmarks `json:"hands"`
	Active    []string                 `json:"active"`
}

type noteMessage struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Finger     string `json:"finger"`
	Octave     int    `json:"octave"`
	Velocity   string `json:"velocity"`
	Instrument string `json:"instrument"`
	SessionID  string `json:"session_id,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventsHandler broadcasts frame and note events to WebSocket clients.
type EventsHandler struct {
	clients map[*client]bool
	mu      sync.RWMutex
	dropped int
}

// NewEventsHandler creates an EventsHandler with no clients.
func NewEventsHandler() *EventsHandler {
	return &EventsHandler{
		clients: make(map[*client]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientQueue)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writeLoop(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func (h *EventsHandler) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *EventsHandler) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishFrame sends a processed tick to every client.
func (h *EventsHandler) PublishFrame(s app.Snapshot) {
	if h.Clients() == 0 {
		return
	}

	active := make([]string, len(s.Active))
	for i, id := range s.Active {
		active[i] = id.String()
	}
	hands := s.Hands
	if hands == nil {
		hands = []detector.HandLandmarks{}
	}

	h.broadcast(frameMessage{
		Type:      "frame",
		Timestamp: s.Timestamp.Milliseconds(),
		Width:     s.Width,
		Height:    s.Height,
		Hands:     hands,
		Active:    active,
	})
}

// PublishNote sends a played note to every client.
func (h *EventsHandler) PublishNote(n app.Note) {
	h.broadcast(noteMessage{
		Type:       "note",
		Name:       n.Name,
		Finger:     n.Finger.String(),
		Octave:     n.Octave,
		Velocity:   n.Velocity.String(),
		Instrument: string(n.Instrument),
		SessionID:  n.SessionID,
	})
}

func (h *EventsHandler) broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error encoding event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped++
		}
	}
}

// Close disconnects every client.
func (h *EventsHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// AnalysisEvent is pushed to stream subscribers after each analysis.
type AnalysisEvent struct {
	Type         string    `json:"type"`
	AnalysisKind string    `json:"analysis_kind"`
	PatientID    string    `json:"patient_id"`
	DerivedValue *string   `json:"derived_value"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is already CORS-open; the stream follows the same policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans analysis events out to connected websocket clients.
type Hub struct {
	logger     *logrus.Logger
	clients    map[*streamClient]bool
	register   chan *streamClient
	unregister chan *streamClient
	events     chan *AnalysisEvent
}

// NewHub creates an idle hub; Run must be called to start it.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*streamClient]bool),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		events:     make(chan *AnalysisEvent, 64),
	}
}

// Run owns the client set until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				close(client.send)
				delete(h.clients, client)
			}
		case event := <-h.events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Slow consumer: drop it rather than block the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast queues an event for delivery. It never blocks; when the
// hub is saturated the event is dropped.
func (h *Hub) Broadcast(event *AnalysisEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("Stream event dropped: hub saturated")
	}
}

// ServeWS upgrades the request and attaches the client to the hub.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &streamClient{hub: h, conn: conn, send: make(chan []byte, clientSendSize)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

type streamClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump discards inbound messages; the stream is one-way. It exists
// to process control frames and detect disconnects.
func (c *streamClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

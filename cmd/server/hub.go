package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	writeWait = 5 * time.Second
	// queueSize bounds messages waiting for delivery; newer messages are
	// dropped while it is full.
	queueSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope sent to live-feed clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans messages out to every connected websocket client. Delivery
// happens on the hub's own goroutine, so callers never wait on clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	gauge   prometheus.Gauge
	logger  *slog.Logger

	queue     chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func NewHub(gauge prometheus.Gauge, logger *slog.Logger) *Hub {
	h := &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		gauge:   gauge,
		logger:  logger,
		queue:   make(chan Message, queueSize),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.queue:
			h.deliver(msg)
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
	h.gauge.Set(float64(len(h.clients)))
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.gauge.Set(float64(len(h.clients)))
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case <-h.done:
	case h.queue <- msg:
	default:
		h.logger.Warn("WebSocket queue full, dropping message", "type", msg.Type)
	}
}

// deliver writes msg to all clients, dropping any that fail.
func (h *Hub) deliver(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(msg); err != nil {
			h.logger.Warn("WebSocket write error", "error", err)
			client.Close()
			delete(h.clients, client)
		}
	}
	h.gauge.Set(float64(len(h.clients)))
}

// Close stops delivery and disconnects every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		client.Close()
		delete(h.clients, client)
	}
	h.gauge.Set(0)
}

package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"portfolio-studio-server/modules/common/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// ErrUnknownTopic is returned by a SnapshotFunc for a topic that will never publish.
var ErrUnknownTopic = errors.New("unknown topic")

// SnapshotFunc returns the latest payload of a topic for a newly connected client.
type SnapshotFunc func(ctx context.Context, topic string) (interface{}, error)

// Client - one websocket connection subscribed to a single topic
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	topic string
	send  chan []byte
}

type topic struct {
	id           string
	clients      map[*Client]struct{}
	createdAt    time.Time
	lastActivity time.Time
}

// Hub fans job updates out to the websocket clients watching them.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topic

	snapshot SnapshotFunc
	upgrader websocket.Upgrader

	startTime        time.Time
	totalConnections int
}

func New(snapshot SnapshotFunc) *Hub {
	return &Hub{
		topics:   make(map[string]*topic),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			// browsers on any portfolio origin may subscribe
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
}

// RegisterRoutes - GET /ws?job={jobId}, GET /ws/stats
func (h *Hub) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.ServeWS)
	r.HandleFunc("/ws/stats", h.GetStats).Methods("GET")
	log.Println("✅ WebSocket routes registered: /ws, /ws/stats")
}

// ServeWS upgrades the connection and subscribes it to the job given in the query.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("job")
	if topicID == "" {
		response.Error(w, http.StatusBadRequest, "missing job parameter")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Hub] WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		topic: topicID,
		send:  make(chan []byte, sendBufferSize),
	}
	h.add(client)

	// Updates published from here on queue up in client.send behind the snapshot.
	if h.snapshot != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		payload, err := h.snapshot(ctx, topicID)
		cancel()
		if errors.Is(err, ErrUnknownTopic) {
			log.Printf("⚠️  [Hub] Unknown job %s, closing connection", topicID)
			h.remove(client)
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "job not found"))
			conn.Close()
			return
		}
		if err != nil {
			log.Printf("⚠️  [Hub] No snapshot for %s: %v", topicID, err)
		} else {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(payload); err != nil {
				log.Printf("❌ [Hub] Failed to send snapshot for %s: %v", topicID, err)
			}
		}
	}

	go client.writePump()
	go client.readPump()
}

// Publish sends payload to every client subscribed to topicID. Clients whose
// buffer is full are dropped.
func (h *Hub) Publish(topicID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ [Hub] Error marshaling message for %s: %v", topicID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[topicID]
	if !ok {
		return
	}
	t.lastActivity = time.Now()

	for client := range t.clients {
		select {
		case client.send <- data:
		default:
			log.Printf("⚠️  [Hub] Dropping slow client on %s", topicID)
			delete(t.clients, client)
			close(client.send)
		}
	}
}

// ClientCount - number of clients currently subscribed to topicID
func (h *Hub) ClientCount(topicID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t, ok := h.topics[topicID]; ok {
		return len(t.clients)
	}
	return 0
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	t, ok := h.topics[client.topic]
	if !ok {
		now := time.Now()
		t = &topic{
			id:           client.topic,
			clients:      make(map[*Client]struct{}),
			createdAt:    now,
			lastActivity: now,
		}
		h.topics[client.topic] = t
	}
	t.clients[client] = struct{}{}
	t.lastActivity = time.Now()
	h.totalConnections++
	count := len(t.clients)
	h.mu.Unlock()

	log.Printf("👤 [Hub] Client subscribed to %s (Clients: %d)", client.topic, count)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[client.topic]
	if !ok {
		return
	}
	if _, exists := t.clients[client]; !exists {
		return
	}
	delete(t.clients, client)
	close(client.send)
	t.lastActivity = time.Now()

	log.Printf("👋 [Hub] Client left %s (Remaining: %d)", client.topic, len(t.clients))
}

// cleanupEmptyTopics drops topics nobody watches any more.
func (h *Hub) cleanupEmptyTopics() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cleaned := 0
	for id, t := range h.topics {
		if len(t.clients) == 0 {
			delete(h.topics, id)
			cleaned++
		}
	}
	if cleaned > 0 {
		log.Printf("🧹 [Hub] Cleaned up %d empty topics (Active: %d)", cleaned, len(h.topics))
	}
	return cleaned
}

// StartCleanup removes empty topics every 5 minutes until ctx is done.
func (h *Hub) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.cleanupEmptyTopics()
			}
		}
	}()
	log.Printf("🔄 [Hub] Started topic cleanup routine (every 5min)")
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.topics {
		for client := range t.clients {
			close(client.send)
		}
		delete(h.topics, id)
	}
	log.Println("🔌 [Hub] All clients disconnected")
}

// GetStats - connection counters and per-topic details
func (h *Hub) GetStats(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	topics := make([]map[string]interface{}, 0, len(h.topics))
	currentClients := 0
	for id, t := range h.topics {
		currentClients += len(t.clients)
		topics = append(topics, map[string]interface{}{
			"jobId":        id,
			"clientCount":  len(t.clients),
			"createdAt":    t.createdAt,
			"lastActivity": t.lastActivity,
		})
	}
	stats := map[string]interface{}{
		"uptime":           time.Since(h.startTime).String(),
		"startTime":        h.startTime,
		"activeTopics":     len(h.topics),
		"totalConnections": h.totalConnections,
		"currentClients":   currentClients,
		"topics":           topics,
	}
	h.mu.RUnlock()

	response.JSON(w, http.StatusOK, stats)
}

// readPump only watches for the close handshake and pongs; clients never send data.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ [Hub] WebSocket error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ [Hub] WebSocket write error: %v", err)
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

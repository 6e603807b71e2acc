// Package simd implements an in-memory PRTS control-center simulator: the
// REST and WebSocket surface the console speaks, with seeded demo data. It
// backs cmd/simd and the client-layer tests.
package simd

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSClient is one connected WebSocket peer: a console or a probe node.
type WSClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	NodeID string
}

// Hub maintains the set of active WebSocket clients and broadcasts frames
// to them.
type Hub struct {
	clients    map[*WSClient]bool
	nodeMap    map[string]*WSClient
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	handler    func([]byte, *WSClient)
	onNodeGone func(nodeID string)
	log        *zap.Logger
	mu         sync.RWMutex
}

// NewHub builds a hub. handler is invoked for every inbound frame; it may
// be nil.
func NewHub(handler func([]byte, *WSClient), log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*WSClient]bool),
		nodeMap:    make(map[string]*WSClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		handler:    handler,
		log:        log,
	}
}

// Run processes registration and broadcast events until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			var goneNode string
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				if client.NodeID != "" && h.nodeMap[client.NodeID] == client {
					delete(h.nodeMap, client.NodeID)
					goneNode = client.NodeID
				}
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if goneNode != "" && h.onNodeGone != nil {
				h.onNodeGone(goneNode)
			}
		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; skip rather than block the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a raw frame to every connected client.
func (h *Hub) Broadcast(msg []byte) {
	h.broadcast <- msg
}

// BroadcastFrame marshals {type, data} and broadcasts it.
func (h *Hub) BroadcastFrame(frameType string, data any) {
	msg, err := json.Marshal(map[string]any{"type": frameType, "data": data})
	if err != nil {
		h.log.Error("failed to marshal frame", zap.String("type", frameType), zap.Error(err))
		return
	}
	h.Broadcast(msg)
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BindNode associates a node id with a client, replacing any previous
// connection for the same node.
func (h *Hub) BindNode(nodeID string, client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.nodeMap[nodeID]; ok && old != client {
		_ = old.conn.Close()
	}
	client.NodeID = nodeID
	h.nodeMap[nodeID] = client
}

// SendToNode delivers a frame to one bound node. Returns false when the
// node is not connected.
func (h *Hub) SendToNode(nodeID string, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.nodeMap[nodeID]; ok {
		select {
		case client.send <- msg:
			return true
		default:
		}
	}
	return false
}

// ServeWS upgrades an HTTP request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &WSClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.hub.handler != nil {
			c.hub.handler(message, c)
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

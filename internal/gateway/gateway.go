// Package gateway exposes the scene service over WebSocket and a small
// REST surface. Clients authenticate with a session token, then steer the
// room and watch turn outcomes stream back.
package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"benchtalk/internal/auth"
	"benchtalk/internal/room"
	"benchtalk/transcript"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection is one WebSocket client.
type Connection struct {
	ID       string
	UserID   uint64
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
}

// Gateway manages client connections and routes commands to the room.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64

	auth  auth.Service
	room  *room.Room
	store transcript.Store
}

func New(authService auth.Service, r *room.Room, store transcript.Store) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		auth:        authService,
		room:        r,
		store:       store,
	}
}

// SetRoom binds the room after construction. The gateway's Broadcast is the
// room's broadcast callback, so the two reference each other.
func (g *Gateway) SetRoom(r *room.Room) {
	g.room = r
}

// clientMessage is the envelope clients send.
type clientMessage struct {
	Type        string `json:"type"`
	AgentA      string `json:"agent_a,omitempty"`
	AgentB      string `json:"agent_b,omitempty"`
	Description string `json:"description,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type snapshotMessage struct {
	Type     string `json:"type"`
	Snapshot any    `json:"snapshot"`
}

// HandleWebSocket upgrades the connection after resolving the session token
// from the "token" query parameter.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, username, ok := g.auth.ResolveSession(r.URL.Query().Get("token"))
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)
	c := &Connection{
		ID:       connID,
		UserID:   userID,
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Gateway:  g,
	}
	g.connections[connID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s (user=%s), total: %d", connID, username, total)

	go c.readPump()
	go c.writePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(1, "invalid message format")
		return
	}

	switch msg.Type {
	case "start_scene":
		if err := c.Gateway.room.StartScene(msg.AgentA, msg.AgentB); err != nil {
			c.sendError(2, err.Error())
		}
	case "force_event":
		if err := c.Gateway.room.ForceEvent(msg.Description); err != nil {
			c.sendError(3, err.Error())
		}
	case "end_scene":
		if err := c.Gateway.room.EndScene(); err != nil {
			c.sendError(4, err.Error())
		}
	case "snapshot":
		c.sendJSON(snapshotMessage{Type: "snapshot", Snapshot: c.Gateway.room.Snapshot()})
	default:
		c.sendError(5, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (c *Connection) sendError(code int, msg string) {
	c.sendJSON(errorMessage{Type: "error", Code: code, Message: msg})
}

func (c *Connection) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Gateway] marshal failed: %v", err)
		return
	}
	select {
	case c.Send <- data:
	default:
		// Drop if buffer full
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

// Broadcast fans a message out to every connection. Wired into the room as
// its broadcast callback.
func (g *Gateway) Broadcast(message []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		select {
		case c.Send <- message:
		default:
			// Drop message if buffer full
		}
	}
}

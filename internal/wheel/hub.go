package wheel

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const writeDeadline = 10 * time.Second

// clientConn is the writable side of a connection: what the hub needs from
// gofiber's *websocket.Conn.
type clientConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Client struct {
	conn   clientConn
	userID string
	mu     sync.Mutex
}

// Hub fans lifecycle and settlement broadcasts out to every connected
// player. Broadcasting never blocks the round loop: a full channel drops
// the message.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan interface{}, 100),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] client connected: %s (total: %d)", client.userID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
				log.Printf("[WS] client disconnected: %s (total: %d)", client.userID, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WS] marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				go client.send(data)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("[WS] broadcast channel full, dropping message")
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) send(message interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	var err error
	switch v := message.(type) {
	case []byte:
		data = v
	default:
		data, err = json.Marshal(v)
		if err != nil {
			log.Printf("[WS] send marshal error: %v", err)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[WS] write error for user %s: %v", c.userID, err)
	}
}

// Send writes one message to a single client. It takes the same per-client
// lock as hub broadcasts, so a direct reply and a broadcast can never
// interleave on the connection.
func (c *Client) Send(message interface{}) {
	c.send(message)
}

// SendState pushes the current clock state to a single client, used right
// after connect so late joiners sync to the round in progress.
func (c *Client) SendState(state ClockState) {
	c.send(WSMessage{Type: "state", Data: state})
}

func (h *Hub) RegisterClient(conn clientConn, userID string) *Client {
	client := &Client{conn: conn, userID: userID}
	h.register <- client
	return client
}

func (h *Hub) UnregisterClient(conn clientConn) {
	h.mu.RLock()
	for client := range h.clients {
		if client.conn == conn {
			h.mu.RUnlock()
			h.unregister <- client
			return
		}
	}
	h.mu.RUnlock()
}

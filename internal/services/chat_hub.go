package services

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"gamerstore-backend/internal/models"
)

// ChatFrame is the shape sent to connected chat clients. New messages carry
// the persisted message; lifecycle frames only carry type and orderId.
type ChatFrame struct {
	Type    string          `json:"type"`
	OrderID string          `json:"orderId,omitempty"`
	Data    *models.Message `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ChatClient represents one WebSocket subscriber of an order's chat
type ChatClient struct {
	OrderID string
	UserID  string
	Conn    *websocket.Conn
	Send    chan ChatFrame
	hub     *ChatHub
}

type chatBroadcast struct {
	orderID string
	frame   ChatFrame
}

// ChatHub maintains the per-order sets of active chat clients and fans
// messages out to them. All room state is owned by the hub goroutine plus
// the mutex-guarded map; there is no package-level registry.
type ChatHub struct {
	// Room subscriptions - maps order ID to clients
	rooms map[string]map[*ChatClient]bool

	register   chan *ChatClient
	unregister chan *ChatClient
	broadcast  chan chatBroadcast

	mutex sync.RWMutex
}

// NewChatHub creates a chat hub and starts its dispatch loop
func NewChatHub() *ChatHub {
	hub := &ChatHub{
		rooms:      make(map[string]map[*ChatClient]bool),
		register:   make(chan *ChatClient),
		unregister: make(chan *ChatClient),
		broadcast:  make(chan chatBroadcast),
	}
	go hub.run()
	return hub
}

func (h *ChatHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.rooms[client.OrderID] == nil {
				h.rooms[client.OrderID] = make(map[*ChatClient]bool)
			}
			h.rooms[client.OrderID][client] = true
			h.mutex.Unlock()

		case client := <-h.unregister:
			h.mutex.Lock()
			h.removeClient(client)
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.rooms[message.orderID] {
				select {
				case client.Send <- message.frame:
				default:
					// Slow or dead client; drop it rather than block the room
					h.removeClient(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// removeClient must be called with the mutex held
func (h *ChatHub) removeClient(client *ChatClient) {
	roomClients, ok := h.rooms[client.OrderID]
	if !ok {
		return
	}
	if _, registered := roomClients[client]; !registered {
		return
	}
	delete(roomClients, client)
	close(client.Send)
	if len(roomClients) == 0 {
		delete(h.rooms, client.OrderID)
	}
}

// Register adds an authorized client to its order's room
func (h *ChatHub) Register(client *ChatClient) {
	h.register <- client
}

// Unregister removes a client, dropping the room once it empties
func (h *ChatHub) Unregister(client *ChatClient) {
	h.unregister <- client
}

// BroadcastMessage fans a persisted chat message out to the order's room
func (h *ChatHub) BroadcastMessage(orderID string, message *models.Message) {
	h.broadcast <- chatBroadcast{
		orderID: orderID,
		frame:   ChatFrame{Type: "new_message", OrderID: orderID, Data: message},
	}
}

// RoomSize reports how many clients are registered for an order
func (h *ChatHub) RoomSize(orderID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[orderID])
}

// Client pumps

func (c *ChatClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	// Inbound traffic is not used for posting; the read loop only detects
	// disconnects and protocol errors
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Chat connection error: %v", err)
			}
			break
		}
	}
}

func (c *ChatClient) writePump() {
	defer c.Conn.Close()

	for frame := range c.Send {
		if err := c.Conn.WriteJSON(frame); err != nil {
			log.Printf("Chat write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

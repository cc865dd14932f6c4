package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gamerstore-backend/internal/models"
)

// ChatService handles per-order chat: message persistence, history and the
// WebSocket endpoint feeding the hub.
type ChatService struct {
	db       *sql.DB
	hub      *ChatHub
	auth     *AuthService
	orders   *OrderService
	upgrader websocket.Upgrader

	// Per-order locks serializing persist+broadcast so frame delivery
	// order always matches history order under concurrent senders
	locksMu    sync.Mutex
	orderLocks map[string]*sync.Mutex
}

// NewChatService creates a new chat service
func NewChatService(db *sql.DB, hub *ChatHub, auth *AuthService, orders *OrderService) *ChatService {
	return &ChatService{
		db:         db,
		hub:        hub,
		auth:       auth,
		orders:     orders,
		orderLocks: make(map[string]*sync.Mutex),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from any origin in development
				return true
			},
		},
	}
}

// Hub exposes the underlying chat hub
func (s *ChatService) Hub() *ChatHub {
	return s.hub
}

// HandleChat upgrades the connection and registers it for the order's chat.
// The order ID and token travel as query parameters because browsers cannot
// set headers on WebSocket dials. Unauthorized connections are closed with
// close code 1008 and never join a room.
func (s *ChatService) HandleChat(c *gin.Context) {
	orderID := c.Query("orderId")
	token := c.Query("token")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Chat upgrade error: %v", err)
		return
	}

	if orderID == "" || token == "" {
		closeWithPolicyViolation(conn, "orderId and token are required")
		return
	}

	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		closeWithPolicyViolation(conn, "invalid token")
		return
	}

	order, err := s.orders.GetOrderByID(orderID)
	if err != nil {
		if err == ErrOrderNotFound {
			closeWithPolicyViolation(conn, "order not found")
			return
		}
		log.Printf("Chat registration failed for order %s: %v", orderID, err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal error"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	if !s.orders.CanAccessOrder(order, claims.UserID, models.UserRole(claims.Role)) {
		closeWithPolicyViolation(conn, "access denied")
		return
	}

	client := &ChatClient{
		OrderID: orderID,
		UserID:  claims.UserID,
		Conn:    conn,
		Send:    make(chan ChatFrame, 256),
		hub:     s.hub,
	}

	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (s *ChatService) orderLock(orderID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.orderLocks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		s.orderLocks[orderID] = lock
	}
	return lock
}

func closeWithPolicyViolation(conn *websocket.Conn, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
	conn.Close()
}

// PostMessage validates, persists and then broadcasts a chat message.
// Broadcasting only happens after the row is committed, so every delivered
// frame is durable and per-order delivery order matches insertion order.
func (s *ChatService) PostMessage(orderID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	lock := s.orderLock(orderID)
	lock.Lock()
	defer lock.Unlock()

	message := &models.Message{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, order_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.OrderID, message.SenderID, message.Content, message.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	sender := &models.PublicUser{}
	err = s.db.QueryRow(`SELECT id, username, email, role FROM users WHERE id = ?`, senderID).
		Scan(&sender.ID, &sender.Username, &sender.Email, &sender.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}
	message.Sender = sender

	s.hub.BroadcastMessage(orderID, message)

	return message, nil
}

// GetMessages returns an order's chat history in insertion order
func (s *ChatService) GetMessages(orderID string) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.order_id, m.sender_id, m.content, m.created_at,
		       u.username, u.email, u.role
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.order_id = ?
		ORDER BY m.created_at ASC, m.rowid ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		sender := &models.PublicUser{}
		if err := rows.Scan(
			&message.ID, &message.OrderID, &message.SenderID, &message.Content, &message.CreatedAt,
			&sender.Username, &sender.Email, &sender.Role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		sender.ID = message.SenderID
		message.Sender = sender
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"gamerstore-backend/internal/models"
)

// OrderService handles order lifecycle business logic
type OrderService struct {
	db        *sql.DB
	gateway   PixGateway
	chargeTTL int
}

// NewOrderService creates a new order service. chargeTTL is the PIX charge
// expiration in seconds.
func NewOrderService(db *sql.DB, gateway PixGateway, chargeTTL int) *OrderService {
	if chargeTTL <= 0 {
		chargeTTL = 240
	}
	return &OrderService{db: db, gateway: gateway, chargeTTL: chargeTTL}
}

// OrderCheckout is returned from order creation with the payment material
// the buyer needs to complete the PIX transfer.
type OrderCheckout struct {
	Order         *models.Order `json:"order"`
	QRCodeImage   string        `json:"qrCodeImage"`
	CopyPasteCode string        `json:"qrCodeCopyPaste"`
}

// CreateOrder creates a PIX charge and, only after the gateway accepts it,
// persists the order and its item in a single transaction.
func (s *OrderService) CreateOrder(userID, productID string, quantity int) (*OrderCheckout, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var price float64
	err := s.db.QueryRow(`SELECT price FROM products WHERE id = ?`, productID).Scan(&price)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	total := price * float64(quantity)

	// Charge first. A gateway failure must leave no trace in the store.
	charge, err := s.gateway.CreateCharge(total, s.chargeTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &models.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Total:     total,
		Status:    models.OrderStatusPending,
		TxID:      charge.TxID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	item := models.OrderItem{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		ProductID: productID,
		Quantity:  quantity,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO orders (id, user_id, total, status, txid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Total, order.Status, order.TxID, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO order_items (id, order_id, product_id, quantity)
		VALUES (?, ?, ?, ?)`,
		item.ID, item.OrderID, item.ProductID, item.Quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create order item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	order.Items = []models.OrderItem{item}

	return &OrderCheckout{
		Order:         order,
		QRCodeImage:   charge.QRCodeImage,
		CopyPasteCode: charge.CopyPasteCode,
	}, nil
}

// ConfirmPayment marks the order carrying the given txid as paid. It is
// idempotent: an unknown txid and a repeated confirmation are both no-ops.
func (s *OrderService) ConfirmPayment(txid string) error {
	var orderID string
	var status models.OrderStatus
	err := s.db.QueryRow(`SELECT id, status FROM orders WHERE txid = ?`, txid).Scan(&orderID, &status)
	if err == sql.ErrNoRows {
		log.Printf("Payment confirmation for unknown txid %s, ignoring", txid)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up order by txid: %w", err)
	}

	if status != models.OrderStatusPending {
		// Duplicate webhook delivery; the order already moved on
		return nil
	}

	// Status guard keeps concurrent duplicate confirmations from racing
	result, err := s.db.Exec(`
		UPDATE orders SET status = ?, updated_at = ? WHERE txid = ? AND status = ?`,
		models.OrderStatusPaid, time.Now(), txid, models.OrderStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		log.Printf("Order %s confirmed as paid (txid %s)", orderID, txid)
	}
	return nil
}

// MarkDelivered moves a paid order to delivered. Any other starting status
// is an invalid transition.
func (s *OrderService) MarkDelivered(orderID string) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPaid {
		return nil, fmt.Errorf("%w: cannot deliver order in status %s", ErrInvalidTransition, order.Status)
	}

	result, err := s.db.Exec(`
		UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.OrderStatusDelivered, time.Now(), orderID, models.OrderStatusPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order delivered: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check delivery result: %w", err)
	}
	if rows == 0 {
		// Lost the race with another status change
		return nil, fmt.Errorf("%w: order is no longer in status %s", ErrInvalidTransition, models.OrderStatusPaid)
	}

	order.Status = models.OrderStatusDelivered
	return order, nil
}

// GetOrderByID retrieves a single order without its items
func (s *OrderService) GetOrderByID(orderID string) (*models.Order, error) {
	order := &models.Order{}
	err := s.db.QueryRow(`
		SELECT id, user_id, total, status, txid, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &order.UserID, &order.Total, &order.Status, &order.TxID, &order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// CanAccessOrder reports whether a principal may read an order and its chat.
// Buyers see their own orders; admins see everything.
func (s *OrderService) CanAccessOrder(order *models.Order, userID string, role models.UserRole) bool {
	return order.UserID == userID || role == models.UserRoleAdmin
}

// GetOrderStatus returns the current status of an order, enforcing the
// owner-or-admin access rule.
func (s *OrderService) GetOrderStatus(orderID, userID string, role models.UserRole) (models.OrderStatus, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return "", err
	}
	if !s.CanAccessOrder(order, userID, role) {
		return "", ErrForbidden
	}
	return order.Status, nil
}

// GetUserOrders lists a buyer's own orders, newest first, with their items
func (s *OrderService) GetUserOrders(userID string) ([]models.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, total, status, txid, created_at, updated_at
		FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := s.scanOrders(rows)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.getOrderItems(orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// GetAllOrders lists every order with buyer details, newest first
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	rows, err := s.db.Query(`
		SELECT o.id, o.user_id, o.total, o.status, o.txid, o.created_at, o.updated_at,
		       u.username, u.email, u.role
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		buyer := &models.PublicUser{}
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.Total, &order.Status, &order.TxID,
			&order.CreatedAt, &order.UpdatedAt,
			&buyer.Username, &buyer.Email, &buyer.Role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		buyer.ID = order.UserID
		order.Buyer = buyer
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	for i := range orders {
		items, err := s.getOrderItems(orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *OrderService) scanOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.Total, &order.Status, &order.TxID,
			&order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) getOrderItems(orderID string) ([]models.OrderItem, error) {
	rows, err := s.db.Query(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, p.name, p.image_url
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ?`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.ProductName, &item.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}
	return items, nil
}

// HasPaidPurchase reports whether the user has an order containing the
// product whose payment was confirmed (paid or already delivered).
func (s *OrderService) HasPaidPurchase(userID, productID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE o.user_id = ? AND oi.product_id = ? AND o.status IN (?, ?)`,
		userID, productID, models.OrderStatusPaid, models.OrderStatusDelivered,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check purchases: %w", err)
	}
	return count > 0, nil
}

package models

import "time"

// OrderStatus represents the payment/fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// Order represents a purchase awaiting or past payment
type Order struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"userId" db:"user_id"`
	Total     float64     `json:"total" db:"total"`
	Status    OrderStatus `json:"status" db:"status"`
	TxID      string      `json:"txid" db:"txid"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
	Items     []OrderItem `json:"items,omitempty"`
	Buyer     *PublicUser `json:"buyer,omitempty"`
}

// OrderItem represents a product line within an order
type OrderItem struct {
	ID          string  `json:"id" db:"id"`
	OrderID     string  `json:"orderId" db:"order_id"`
	ProductID   string  `json:"productId" db:"product_id"`
	Quantity    int     `json:"quantity" db:"quantity"`
	ProductName string  `json:"productName,omitempty" db:"product_name"`
	ImageURL    *string `json:"imageUrl,omitempty" db:"image_url"`
}

// OrderCreate represents checkout data
type OrderCreate struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required"`
}

// Message represents one chat message attached to an order
type Message struct {
	ID        string      `json:"id" db:"id"`
	OrderID   string      `json:"orderId" db:"order_id"`
	SenderID  string      `json:"senderId" db:"sender_id"`
	Sender    *PublicUser `json:"sender,omitempty"`
	Content   string      `json:"content" db:"content"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// MessageCreate represents chat message submission data
type MessageCreate struct {
	Content string `json:"content" validate:"required,max=2000"`
}

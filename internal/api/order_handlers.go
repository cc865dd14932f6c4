package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
)

// OrderHandlers contains order lifecycle handlers
type OrderHandlers struct {
	orderService *services.OrderService
	chatService  *services.ChatService
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(orderService *services.OrderService, chatService *services.ChatService) *OrderHandlers {
	return &OrderHandlers{
		orderService: orderService,
		chatService:  chatService,
	}
}

// CreateOrder handles checkout: charge creation followed by order persistence
func (h *OrderHandlers) CreateOrder(c *gin.Context) {
	var req models.OrderCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	checkout, err := h.orderService.CreateOrder(c.GetString("userID"), req.ProductID, req.Quantity)
	if err != nil {
		var gatewayErr *services.GatewayError
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, services.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Product not found"})
		case errors.As(err, &gatewayErr):
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Payment gateway unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create order"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created successfully",
		"data":    checkout,
	})
}

// GetMyOrders lists the authenticated buyer's orders
func (h *OrderHandlers) GetMyOrders(c *gin.Context) {
	orders, err := h.orderService.GetUserOrders(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetAllOrders lists every order with buyer details (admin only)
func (h *OrderHandlers) GetAllOrders(c *gin.Context) {
	orders, err := h.orderService.GetAllOrders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrderStatus reports the current order status to its owner or an admin
func (h *OrderHandlers) GetOrderStatus(c *gin.Context) {
	status, err := h.orderService.GetOrderStatus(
		c.Param("orderId"),
		c.GetString("userID"),
		models.UserRole(c.GetString("userRole")),
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		case errors.Is(err, services.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Access denied"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load order"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"status": status},
	})
}

// MarkDelivered moves a paid order to delivered (admin only)
func (h *OrderHandlers) MarkDelivered(c *gin.Context) {
	order, err := h.orderService.MarkDelivered(c.Param("orderId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		case errors.Is(err, services.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update order"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order marked as delivered",
		"data":    order,
	})
}

// GetMessages returns an order's chat history to its owner or an admin
func (h *OrderHandlers) GetMessages(c *gin.Context) {
	orderID := c.Param("orderId")

	if !h.authorizeOrderAccess(c, orderID) {
		return
	}

	messages, err := h.chatService.GetMessages(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load messages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}

// PostMessage persists a chat message and broadcasts it to the order's room
func (h *OrderHandlers) PostMessage(c *gin.Context) {
	orderID := c.Param("orderId")

	if !h.authorizeOrderAccess(c, orderID) {
		return
	}

	var req models.MessageCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	message, err := h.chatService.PostMessage(orderID, c.GetString("userID"), req.Content)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// authorizeOrderAccess loads the order and enforces the owner-or-admin rule,
// writing the error response itself when access is refused.
func (h *OrderHandlers) authorizeOrderAccess(c *gin.Context, orderID string) bool {
	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load order"})
		}
		return false
	}

	if !h.orderService.CanAccessOrder(order, c.GetString("userID"), models.UserRole(c.GetString("userRole"))) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Access denied"})
		return false
	}
	return true
}

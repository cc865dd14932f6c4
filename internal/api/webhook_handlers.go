package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"gamerstore-backend/internal/services"
)

// WebhookHandlers contains payment provider callback handlers
type WebhookHandlers struct {
	orderService *services.OrderService
}

// NewWebhookHandlers creates new webhook handlers
func NewWebhookHandlers(orderService *services.OrderService) *WebhookHandlers {
	return &WebhookHandlers{orderService: orderService}
}

// PixWebhookPayload is the notification body Efí sends when a charge settles
type PixWebhookPayload struct {
	Pix []struct {
		TxID string `json:"txid"`
	} `json:"pix"`
}

// HandlePixWebhook acknowledges the provider immediately and then applies
// the payment confirmations. The provider retries on anything but a 2xx, so
// processing failures are logged and swallowed rather than surfaced.
func (h *WebhookHandlers) HandlePixWebhook(c *gin.Context) {
	var payload PixWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Malformed PIX webhook payload: %v", err)
		c.Status(http.StatusOK)
		return
	}

	// Step 1: acknowledge
	c.Status(http.StatusOK)

	// Step 2: process, inside its own error boundary
	go h.processNotifications(payload)
}

func (h *WebhookHandlers) processNotifications(payload PixWebhookPayload) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic while processing PIX webhook: %v", r)
		}
	}()

	for _, notification := range payload.Pix {
		if notification.TxID == "" {
			log.Printf("PIX webhook entry without txid, skipping")
			continue
		}
		if err := h.orderService.ConfirmPayment(notification.TxID); err != nil {
			log.Printf("Failed to process PIX confirmation for txid %s: %v", notification.TxID, err)
		}
	}
}

package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
)

// InternalHandlers contains provisioning endpoints gated on a shared secret
// instead of a user session.
type InternalHandlers struct {
	userService *services.UserService
	secret      string
}

// NewInternalHandlers creates new internal handlers
func NewInternalHandlers(userService *services.UserService, secret string) *InternalHandlers {
	return &InternalHandlers{userService: userService, secret: secret}
}

// CreateSuperUser creates an admin account, or promotes an existing account
// to admin. Refused outright when no internal secret is configured.
func (h *InternalHandlers) CreateSuperUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Secret   string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	if h.secret == "" || subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Access denied",
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if user, err := h.userService.GetUserByEmail(email); err == nil {
		if user.Role != models.UserRoleAdmin {
			if err := h.userService.PromoteToAdmin(user.ID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Failed to promote user",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Existing user promoted to admin",
		})
		return
	}

	user, err := h.userService.CreateAdmin(req.Username, email, req.Password)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrUserExists) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Admin user created successfully",
		"data":    user.Public(),
	})
}

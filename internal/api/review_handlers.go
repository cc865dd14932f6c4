package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
)

// ReviewHandlers contains product review handlers
type ReviewHandlers struct {
	reviewService *services.ReviewService
}

// NewReviewHandlers creates new review handlers
func NewReviewHandlers(reviewService *services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{reviewService: reviewService}
}

// CreateReview handles review submission by verified buyers
func (h *ReviewHandlers) CreateReview(c *gin.Context) {
	var req models.ReviewCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	review, err := h.reviewService.CreateReview(
		c.GetString("userID"), c.Param("id"), req.Rating, req.Comment,
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Product not found"})
		case errors.Is(err, services.ErrReviewNotAllowed):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, services.ErrAlreadyReviewed):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Review created successfully",
		"data":    review,
	})
}

// GetProductReviews lists a product's reviews publicly
func (h *ReviewHandlers) GetProductReviews(c *gin.Context) {
	reviews, err := h.reviewService.GetProductReviews(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load reviews",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reviews,
	})
}

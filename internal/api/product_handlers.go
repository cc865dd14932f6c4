package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
	"gamerstore-backend/internal/utils"
)

// ProductHandlers contains catalog handlers
type ProductHandlers struct {
	productService *services.ProductService
}

// NewProductHandlers creates new product handlers
func NewProductHandlers(productService *services.ProductService) *ProductHandlers {
	return &ProductHandlers{productService: productService}
}

// ListProducts handles the public catalog listing
func (h *ProductHandlers) ListProducts(c *gin.Context) {
	products, err := h.productService.ListProducts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load products",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
	})
}

// GetProduct handles fetching a single product
func (h *ProductHandlers) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProductByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
	})
}

// CreateProduct handles adding a product to the catalog (admin only)
func (h *ProductHandlers) CreateProduct(c *gin.Context) {
	var req models.ProductCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	product, err := h.productService.CreateProduct(&req, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product created successfully",
		"data":    product,
	})
}

// UpdateProduct handles a partial product update (admin only)
func (h *ProductHandlers) UpdateProduct(c *gin.Context) {
	var req models.ProductUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request data: " + err.Error(),
		})
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	product, err := h.productService.UpdateProduct(c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Product not found",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated successfully",
		"data":    product,
	})
}

// DeleteProduct handles removing a product from the catalog (admin only)
func (h *ProductHandlers) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to delete product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted successfully",
	})
}

package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gamerstore-backend/internal/models"
)

// ProductService handles catalog business logic
type ProductService struct {
	db *sql.DB
}

// NewProductService creates a new product service
func NewProductService(db *sql.DB) *ProductService {
	return &ProductService{db: db}
}

// CreateProduct adds a product to the catalog
func (s *ProductService) CreateProduct(creation *models.ProductCreate, sellerID string) (*models.Product, error) {
	if creation.Price < 0 {
		return nil, fmt.Errorf("validation error: price must not be negative")
	}

	now := time.Now()
	product := &models.Product{
		ID:          uuid.New().String(),
		Name:        creation.Name,
		Description: creation.Description,
		Price:       creation.Price,
		ImageURL:    creation.ImageURL,
		Category:    creation.Category,
		SellerID:    sellerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO products (id, name, description, price, image_url, category, seller_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		product.ID, product.Name, product.Description, product.Price,
		product.ImageURL, product.Category, product.SellerID,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// UpdateProduct applies a partial update to a product
func (s *ProductService) UpdateProduct(productID string, update *models.ProductUpdate) (*models.Product, error) {
	product, err := s.GetProductByID(productID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		product.Name = *update.Name
	}
	if update.Description != nil {
		product.Description = update.Description
	}
	if update.Price != nil {
		if *update.Price < 0 {
			return nil, fmt.Errorf("validation error: price must not be negative")
		}
		product.Price = *update.Price
	}
	if update.ImageURL != nil {
		product.ImageURL = update.ImageURL
	}
	if update.Category != nil {
		product.Category = update.Category
	}
	product.UpdatedAt = time.Now()

	query := `
		UPDATE products SET name = ?, description = ?, price = ?, image_url = ?, category = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = s.db.Exec(query,
		product.Name, product.Description, product.Price,
		product.ImageURL, product.Category, product.UpdatedAt, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product from the catalog
func (s *ProductService) DeleteProduct(productID string) error {
	result, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetProductByID retrieves a single product
func (s *ProductService) GetProductByID(productID string) (*models.Product, error) {
	product := &models.Product{}
	err := s.db.QueryRow(`
		SELECT id, name, description, price, image_url, category, seller_id, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price,
		&product.ImageURL, &product.Category, &product.SellerID,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts returns the catalog, newest first
func (s *ProductService) ListProducts() ([]models.Product, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, price, image_url, category, seller_id, created_at, updated_at
		FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Description, &product.Price,
			&product.ImageURL, &product.Category, &product.SellerID,
			&product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

package models

import "time"

// Product represents an item in the store catalog
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Price       float64   `json:"price" db:"price"`
	ImageURL    *string   `json:"imageUrl,omitempty" db:"image_url"`
	Category    *string   `json:"category,omitempty" db:"category"`
	SellerID    string    `json:"sellerId" db:"seller_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ProductCreate represents product creation data
type ProductCreate struct {
	Name        string  `json:"name" validate:"required,min=2,max=100,no_sql_injection,no_xss"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000,no_xss"`
	Price       float64 `json:"price" validate:"required"`
	ImageURL    *string `json:"imageUrl,omitempty" validate:"omitempty,max=500"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=50,no_xss"`
}

// ProductUpdate represents partial product update data
type ProductUpdate struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=2,max=100,no_sql_injection,no_xss"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000,no_xss"`
	Price       *float64 `json:"price,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty" validate:"omitempty,max=500"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=50,no_xss"`
}

// Review represents a product review left by a verified buyer
type Review struct {
	ID        string    `json:"id" db:"id"`
	ProductID string    `json:"productId" db:"product_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Username  string    `json:"username,omitempty" db:"username"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ReviewCreate represents review submission data
type ReviewCreate struct {
	Rating  int     `json:"rating" validate:"required"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000,no_xss"`
}

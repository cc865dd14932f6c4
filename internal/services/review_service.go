package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gamerstore-backend/internal/models"
)

// ReviewService handles product review business logic
type ReviewService struct {
	db     *sql.DB
	orders *OrderService
}

// NewReviewService creates a new review service
func NewReviewService(db *sql.DB, orders *OrderService) *ReviewService {
	return &ReviewService{db: db, orders: orders}
}

// CreateReview records a review for a product. Only buyers with a confirmed
// purchase of the product may review it, and only once.
func (s *ReviewService) CreateReview(userID, productID string, rating int, comment *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("validation error: rating must be between 1 and 5")
	}

	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM products WHERE id = ?`, productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if exists == 0 {
		return nil, ErrProductNotFound
	}

	purchased, err := s.orders.HasPaidPurchase(userID, productID)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, ErrReviewNotAllowed
	}

	var reviewed int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM reviews WHERE user_id = ? AND product_id = ?`,
		userID, productID).Scan(&reviewed)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if reviewed > 0 {
		return nil, ErrAlreadyReviewed
	}

	review := &models.Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	_, err = s.db.Exec(`
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return review, nil
}

// GetProductReviews lists reviews for a product with reviewer names, newest first
func (s *ReviewService) GetProductReviews(productID string) ([]models.Review, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.product_id, r.user_id, u.username, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = ?
		ORDER BY r.created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(
			&review.ID, &review.ProductID, &review.UserID, &review.Username,
			&review.Rating, &review.Comment, &review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

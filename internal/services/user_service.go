package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/utils"
)

// UserService handles user-related business logic
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new user service
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a new customer account
func (s *UserService) CreateUser(registration *models.UserRegistration) (*models.User, error) {
	// Validate input structure
	if err := utils.ValidateStruct(registration); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// Sanitize all string inputs
	registration.Username = utils.SanitizeString(registration.Username)
	registration.Email = utils.SanitizeString(registration.Email)

	// Normalize email for consistent storage and comparison
	registration.Email = utils.NormalizeEmail(registration.Email)

	if len(registration.Username) < 3 {
		return nil, fmt.Errorf("validation error: username must be at least 3 characters")
	}

	// Check if user already exists
	exists, err := s.UserExists(registration.Username, registration.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:              uuid.New().String(),
		Username:        registration.Username,
		Email:           registration.Email,
		PasswordHash:    string(hashedPassword),
		Role:            models.UserRoleCustomer,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, role, email_verified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.Role, user.EmailVerifiedAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// AuthenticateUser authenticates a user with email and password
func (s *UserService) AuthenticateUser(login *models.UserLogin) (*models.User, error) {
	// Validate input structure
	if err := utils.ValidateStruct(login); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	email := utils.NormalizeEmail(utils.SanitizeString(login.Email))
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.GetUserByEmail(email)
	if err != nil {
		// Do not reveal whether the account exists
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(login.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// UserExists checks whether a username or email is already taken
func (s *UserService) UserExists(username, email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`
	if err := s.db.QueryRow(query, username, email).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query users: %w", err)
	}
	return count > 0, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(id string) (*models.User, error) {
	return s.getUser(`SELECT id, username, email, password_hash, role, email_verified_at, created_at, updated_at FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email
func (s *UserService) GetUserByEmail(email string) (*models.User, error) {
	return s.getUser(`SELECT id, username, email, password_hash, role, email_verified_at, created_at, updated_at FROM users WHERE email = ?`, email)
}

func (s *UserService) getUser(query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.EmailVerifiedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// PromoteToAdmin grants the admin role to an existing user
func (s *UserService) PromoteToAdmin(userID string) error {
	result, err := s.db.Exec(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		models.UserRoleAdmin, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check promotion result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// CreateAdmin creates a user with the admin role directly
func (s *UserService) CreateAdmin(username, email, password string) (*models.User, error) {
	user, err := s.CreateUser(&models.UserRegistration{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if err := s.PromoteToAdmin(user.ID); err != nil {
		return nil, err
	}
	user.Role = models.UserRoleAdmin
	return user, nil
}

// EnsureAdmin seeds an admin account from configuration at startup.
// It is a no-op when the credentials are unset or the account already exists.
func (s *UserService) EnsureAdmin(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		log.Println("Admin seed credentials not configured, skipping")
		return nil
	}

	email = utils.NormalizeEmail(email)
	if user, err := s.GetUserByEmail(email); err == nil {
		if user.Role != models.UserRoleAdmin {
			return s.PromoteToAdmin(user.ID)
		}
		return nil
	}

	if _, err := s.CreateAdmin(username, email, password); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	log.Printf("Seeded admin account %s", email)
	return nil
}

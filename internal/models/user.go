package models

import "time"

// UserRole represents user roles in the system
type UserRole string

const (
	UserRoleCustomer UserRole = "CUSTOMER"
	UserRoleAdmin    UserRole = "ADMIN"
)

// User represents a registered store account
type User struct {
	ID              string     `json:"id" db:"id"`
	Username        string     `json:"username" db:"username"`
	Email           string     `json:"email" db:"email"`
	PasswordHash    string     `json:"-" db:"password_hash"`
	Role            UserRole   `json:"role" db:"role"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty" db:"email_verified_at"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}

// UserRegistration represents user registration data
type UserRegistration struct {
	Username string `json:"username" validate:"required,min=3,max=50,no_sql_injection,no_xss"`
	Email    string `json:"email" validate:"required,email,max=100,no_sql_injection,no_xss"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// UserLogin represents user login data
type UserLogin struct {
	Email    string `json:"email" validate:"required,email,max=100,no_sql_injection,no_xss"`
	Password string `json:"password" validate:"required,max=128"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// PublicUser is the safe representation returned to clients
type PublicUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

// Public strips credential fields from a user
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

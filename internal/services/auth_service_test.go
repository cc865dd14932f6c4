package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
)

func testUser() *models.User {
	return &models.User{
		ID:       "user-1",
		Username: "player_one",
		Email:    "player@example.com",
		Role:     models.UserRoleCustomer,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	authService := services.NewAuthService("test-secret", 8*60*60)

	token, err := authService.GenerateToken(testUser())
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "player_one", claims.Username)
	assert.Equal(t, "CUSTOMER", claims.Role)
}

func TestTokenCarriesEightHourExpiry(t *testing.T) {
	authService := services.NewAuthService("test-secret", 8*60*60)

	token, err := authService.GenerateToken(testUser())
	assert.NoError(t, err)

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)

	lifetime := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	assert.Equal(t, 8*time.Hour, lifetime)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	authService := services.NewAuthService("test-secret", 8*60*60)
	otherService := services.NewAuthService("other-secret", 8*60*60)

	token, err := authService.GenerateToken(testUser())
	assert.NoError(t, err)

	_, err = otherService.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	authService := services.NewAuthService("test-secret", 8*60*60)

	_, err := authService.ValidateToken("not-a-token")
	assert.Error(t, err)

	_, err = authService.ValidateToken("")
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	authService := services.NewAuthService("test-secret", -1)

	token, err := authService.GenerateToken(testUser())
	assert.NoError(t, err)

	_, err = authService.ValidateToken(token)
	assert.Error(t, err)
}

func TestBlacklistedTokenRejected(t *testing.T) {
	authService := services.NewAuthService("test-secret", 8*60*60)

	token, err := authService.GenerateToken(testUser())
	assert.NoError(t, err)

	_, err = authService.ValidateToken(token)
	assert.NoError(t, err)

	assert.NoError(t, authService.BlacklistToken(token))
	assert.True(t, authService.IsTokenBlacklisted(token))

	_, err = authService.ValidateToken(token)
	assert.Error(t, err)
}

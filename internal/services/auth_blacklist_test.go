package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupExpiredTokensPurgesStaleEntries(t *testing.T) {
	// Negative expiration makes every blacklisted entry immediately stale
	authService := NewAuthService("test-secret", -1)

	require.NoError(t, authService.BlacklistToken("stale-token-1"))
	require.NoError(t, authService.BlacklistToken("stale-token-2"))
	assert.Len(t, authService.blacklistedTokens, 2)

	authService.CleanupExpiredTokens()

	assert.Empty(t, authService.blacklistedTokens)
}

func TestCleanupExpiredTokensKeepsLiveEntries(t *testing.T) {
	authService := NewAuthService("test-secret", 8*60*60)

	require.NoError(t, authService.BlacklistToken("live-token"))

	authService.CleanupExpiredTokens()

	assert.Len(t, authService.blacklistedTokens, 1)
	assert.True(t, authService.IsTokenBlacklisted("live-token"))
}

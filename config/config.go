package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	Environment   string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration int

	// Efí PIX Configuration
	EfiClientID     string
	EfiClientSecret string
	EfiPixKey       string
	EfiCertPath     string
	EfiCertBase64   string
	EfiSandbox      bool
	PixChargeTTL    int

	// Admin Seed Configuration
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	// Internal API Configuration
	InternalAPISecret string

	// Rate Limiting Configuration
	RateLimitRequests int
	RateLimitWindow   int

	// CORS Configuration
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", "gamerstore.db"),
		JWTSecret:     getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
		JWTExpiration: getEnvAsInt("JWT_EXPIRATION", 8*60*60), // 8 hours in seconds

		// Efí PIX Configuration
		EfiClientID:     getEnv("EFI_CLIENT_ID", ""),
		EfiClientSecret: getEnv("EFI_CLIENT_SECRET", ""),
		EfiPixKey:       getEnv("EFI_PIX_KEY", ""),
		EfiCertPath:     getEnv("EFI_CERT_PATH", ""),
		EfiCertBase64:   getEnv("EFI_CERT_BASE64", ""),
		EfiSandbox:      getEnvAsBool("EFI_SANDBOX", true),
		PixChargeTTL:    getEnvAsInt("PIX_CHARGE_TTL", 240), // seconds

		// Admin Seed Configuration
		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		// Internal API Configuration
		InternalAPISecret: getEnv("INTERNAL_API_SECRET", ""),

		// Rate Limiting Configuration
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),

		// CORS Configuration
		AllowedOrigins:  getEnvAsStringSlice("ALLOWED_ORIGINS", []string{}),
		AllowAllOrigins: getEnvAsBool("ALLOW_ALL_ORIGINS", true), // Default to true for development
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}

	// Validate environment values
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	return nil
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %s, DatabaseURL: %s}", c.Environment, c.Port, c.DatabaseURL)
}

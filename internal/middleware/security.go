package middleware

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SecurityConfig holds security middleware configuration
type SecurityConfig struct {
	MaxRequestSize    int64
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequireHTTPS      bool
}

// DefaultSecurityConfig returns default security configuration
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		MaxRequestSize:    1 * 1024 * 1024, // 1MB, the API is JSON only
		RateLimitRequests: 10000,           // Very high for development
		RateLimitWindow:   time.Minute,
		RequireHTTPS:      false, // Set to true in production
	}
}

// SecurityMiddleware provides request-level security protection
func SecurityMiddleware(config *SecurityConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultSecurityConfig()
	}

	// Rate limiter per IP
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		// 1. Request size validation
		if c.Request.ContentLength > config.MaxRequestSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   "Request body too large",
			})
			c.Abort()
			return
		}

		// 2. Rate limiting per IP (skip if disabled for development)
		if os.Getenv("DISABLE_RATE_LIMITING") != "true" {
			clientIP := c.ClientIP()
			limiter, exists := limiters[clientIP]
			if !exists {
				limiter = rate.NewLimiter(rate.Every(config.RateLimitWindow/time.Duration(config.RateLimitRequests)), config.RateLimitRequests)
				limiters[clientIP] = limiter
			}

			if !limiter.Allow() {
				log.Printf("Rate limit exceeded for IP: %s, Path: %s %s", clientIP, c.Request.Method, c.Request.URL.Path)

				c.JSON(http.StatusTooManyRequests, gin.H{
					"success": false,
					"error":   "Rate limit exceeded",
				})
				c.Abort()
				return
			}
		}

		// 3. Content-Type validation for mutating requests
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			contentType := c.GetHeader("Content-Type")
			if contentType == "" {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error":   "Content-Type header required",
				})
				c.Abort()
				return
			}

			if !strings.Contains(contentType, "application/json") {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{
					"success": false,
					"error":   "Unsupported content type: " + contentType,
				})
				c.Abort()
				return
			}
		}

		// 4. Security headers
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")

		// 5. HTTPS enforcement (if enabled)
		if config.RequireHTTPS && c.Request.Header.Get("X-Forwarded-Proto") != "https" {
			c.JSON(http.StatusUpgradeRequired, gin.H{
				"success": false,
				"error":   "HTTPS required",
			})
			c.Abort()
			return
		}

		// 6. Block suspicious patterns in URL
		suspiciousPatterns := []string{
			"../", "..\\", "<script", "javascript:", "vbscript:",
			"onload=", "onerror=", "eval(", "expression(",
		}

		requestURI := strings.ToLower(c.Request.RequestURI)
		for _, pattern := range suspiciousPatterns {
			if strings.Contains(requestURI, pattern) {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error":   "Suspicious request pattern detected",
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// InputValidationMiddleware validates common input patterns
func InputValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Validate query parameters
		for key, values := range c.Request.URL.Query() {
			for _, value := range values {
				if len(value) > 1000 { // Max query param length
					c.JSON(http.StatusBadRequest, gin.H{
						"success": false,
						"error":   "Query parameter too long: " + key,
					})
					c.Abort()
					return
				}

				// Check for injection patterns
				dangerous := []string{
					"'", "\"", "<script", "javascript:", "onload=", "onerror=",
					"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=",
					"onsubmit=", "<iframe", "<object", "<embed", "<link", "<meta",
					"data:text/html", "eval(", "expression(", "url(javascript:",
					"&#", "&#x", "<svg", "<img",
				}
				lowerValue := strings.ToLower(value)
				for _, pattern := range dangerous {
					if strings.Contains(lowerValue, pattern) {
						c.JSON(http.StatusBadRequest, gin.H{
							"success": false,
							"error":   "Invalid characters in query parameter: " + key,
						})
						c.Abort()
						return
					}
				}
			}
		}

		c.Next()
	}
}

// AuthRateLimitMiddleware provides stricter rate limiting for auth endpoints
func AuthRateLimitMiddleware() gin.HandlerFunc {
	authLimiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		// Skip rate limiting if disabled for development
		if os.Getenv("DISABLE_RATE_LIMITING") == "true" {
			c.Next()
			return
		}

		clientIP := c.ClientIP()

		limiter, exists := authLimiters[clientIP]
		if !exists {
			// 500 requests per minute for auth endpoints (very high for development)
			limiter = rate.NewLimiter(rate.Every(time.Minute/500), 500)
			authLimiters[clientIP] = limiter
		}

		if !limiter.Allow() {
			log.Printf("Auth rate limit exceeded for IP: %s, Path: %s %s", clientIP, c.Request.Method, c.Request.URL.Path)

			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many authentication attempts. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

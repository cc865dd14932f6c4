package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"gamerstore-backend/config"
	"gamerstore-backend/database"
	"gamerstore-backend/internal/api"
	"gamerstore-backend/internal/middleware"
	"gamerstore-backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	log.Printf("Starting with %s", cfg)

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run database migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigin := ""
		if cfg.AllowAllOrigins {
			allowedOrigin = "*"
		} else if origin != "" {
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					allowedOrigin = origin
					break
				}
			}
		}

		if allowedOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowedOrigin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if os.Getenv("DISABLE_RATE_LIMITING") != "true" {
		securityConfig := middleware.DefaultSecurityConfig()
		securityConfig.RateLimitRequests = cfg.RateLimitRequests
		securityConfig.RateLimitWindow = time.Duration(cfg.RateLimitWindow) * time.Second
		router.Use(middleware.SecurityMiddleware(securityConfig))
	}
	router.Use(middleware.InputValidationMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Gamer Store API is running",
			"version": "1.0.0",
		})
	})

	// Initialize services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// Periodically purge expired tokens from the logout blacklist
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			authService.CleanupExpiredTokens()
		}
	}()
	userService := services.NewUserService(db)

	efiService, err := services.NewEfiService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize Efi PIX gateway:", err)
	}

	orderService := services.NewOrderService(db, efiService, cfg.PixChargeTTL)
	productService := services.NewProductService(db)
	reviewService := services.NewReviewService(db, orderService)

	chatHub := services.NewChatHub()
	chatService := services.NewChatService(db, chatHub, authService, orderService)

	// Seed the admin account
	if err := userService.EnsureAdmin(cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal("Failed to seed admin account:", err)
	}

	// Initialize handlers
	authHandlers := api.NewAuthHandlers(db, authService)
	productHandlers := api.NewProductHandlers(productService)
	orderHandlers := api.NewOrderHandlers(orderService, chatService)
	webhookHandlers := api.NewWebhookHandlers(orderService)
	reviewHandlers := api.NewReviewHandlers(reviewService)
	internalHandlers := api.NewInternalHandlers(userService, cfg.InternalAPISecret)

	// API routes
	apiGroup := router.Group("/api")
	{
		// Authentication routes with stricter rate limiting
		auth := apiGroup.Group("/auth")
		auth.Use(middleware.AuthRateLimitMiddleware())
		{
			auth.POST("/register", authHandlers.Register)
			auth.POST("/login", authHandlers.Login)
			auth.POST("/logout", authMiddleware.AuthRequired(), authHandlers.Logout)
			auth.GET("/profile", authMiddleware.AuthRequired(), authHandlers.GetProfile)
		}

		// Public catalog routes
		apiGroup.GET("/products", productHandlers.ListProducts)
		apiGroup.GET("/products/:id", productHandlers.GetProduct)
		apiGroup.GET("/products/:id/reviews", reviewHandlers.GetProductReviews)

		// Payment gateway callbacks (no authentication)
		apiGroup.POST("/webhooks/pix", webhookHandlers.HandlePixWebhook)

		// Secret-gated bootstrap endpoint
		apiGroup.POST("/internal/create-super-user", internalHandlers.CreateSuperUser)

		// Protected routes
		protected := apiGroup.Group("/")
		protected.Use(authMiddleware.AuthRequired())
		{
			protected.POST("/orders", orderHandlers.CreateOrder)
			protected.GET("/my-orders", orderHandlers.GetMyOrders)
			protected.GET("/orders/:orderId/status", orderHandlers.GetOrderStatus)
			protected.GET("/orders/:orderId/messages", orderHandlers.GetMessages)
			protected.POST("/orders/:orderId/messages", orderHandlers.PostMessage)
			protected.POST("/products/:id/reviews", reviewHandlers.CreateReview)

			// Admin routes
			admin := protected.Group("/")
			admin.Use(authMiddleware.RequireRole("ADMIN"))
			{
				admin.POST("/products", productHandlers.CreateProduct)
				admin.PUT("/products/:id", productHandlers.UpdateProduct)
				admin.DELETE("/products/:id", productHandlers.DeleteProduct)
				admin.GET("/admin/orders", orderHandlers.GetAllOrders)
				admin.PATCH("/orders/:orderId/deliver", orderHandlers.MarkDelivered)
			}
		}
	}

	// Order chat over WebSocket (authenticates via query params)
	router.GET("/ws/chat", chatService.HandleChat)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Gamer Store API server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server shutdown complete")
}

package api_test

import (
	"errors"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"gamerstore-backend/internal/api"
	"gamerstore-backend/internal/middleware"
	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
	"gamerstore-backend/test/helpers"
)

const (
	testJWTSecret      = "test-jwt-secret-key-12345678901234567890"
	testInternalSecret = "test-internal-secret"
)

type APITestSuite struct {
	suite.Suite
	testDB      *helpers.TestDatabase
	gateway     *helpers.FakePixGateway
	authService *services.AuthService
	orders      *services.OrderService
	router      *gin.Engine

	buyerToken string
	otherToken string
	adminToken string
}

func (suite *APITestSuite) SetupTest() {
	suite.testDB = helpers.SetupTestDatabase()
	db := suite.testDB.DB

	suite.gateway = &helpers.FakePixGateway{}
	suite.authService = services.NewAuthService(testJWTSecret, 8*60*60)
	authMiddleware := middleware.NewAuthMiddleware(suite.authService)
	userService := services.NewUserService(db)
	suite.orders = services.NewOrderService(db, suite.gateway, 240)
	productService := services.NewProductService(db)
	reviewService := services.NewReviewService(db, suite.orders)
	hub := services.NewChatHub()
	chatService := services.NewChatService(db, hub, suite.authService, suite.orders)

	authHandlers := api.NewAuthHandlers(db, suite.authService)
	productHandlers := api.NewProductHandlers(productService)
	orderHandlers := api.NewOrderHandlers(suite.orders, chatService)
	webhookHandlers := api.NewWebhookHandlers(suite.orders)
	reviewHandlers := api.NewReviewHandlers(reviewService)
	internalHandlers := api.NewInternalHandlers(userService, testInternalSecret)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/register", authHandlers.Register)
			auth.POST("/login", authHandlers.Login)
			auth.POST("/logout", authMiddleware.AuthRequired(), authHandlers.Logout)
			auth.GET("/profile", authMiddleware.AuthRequired(), authHandlers.GetProfile)
		}

		apiGroup.GET("/products", productHandlers.ListProducts)
		apiGroup.GET("/products/:id", productHandlers.GetProduct)
		apiGroup.GET("/products/:id/reviews", reviewHandlers.GetProductReviews)
		apiGroup.POST("/webhooks/pix", webhookHandlers.HandlePixWebhook)
		apiGroup.POST("/internal/create-super-user", internalHandlers.CreateSuperUser)

		protected := apiGroup.Group("/")
		protected.Use(authMiddleware.AuthRequired())
		{
			protected.POST("/orders", orderHandlers.CreateOrder)
			protected.GET("/my-orders", orderHandlers.GetMyOrders)
			protected.GET("/orders/:orderId/status", orderHandlers.GetOrderStatus)
			protected.GET("/orders/:orderId/messages", orderHandlers.GetMessages)
			protected.POST("/orders/:orderId/messages", orderHandlers.PostMessage)
			protected.POST("/products/:id/reviews", reviewHandlers.CreateReview)

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
	suite.router = router

	suite.NoError(suite.testDB.CreateTestUser(helpers.TestUser{
		ID: "buyer-1", Username: "buyer", Email: "buyer@example.com", Role: "CUSTOMER", Password: "Password123!",
	}))
	suite.NoError(suite.testDB.CreateTestUser(helpers.TestUser{
		ID: "buyer-2", Username: "other", Email: "other@example.com", Role: "CUSTOMER", Password: "Password123!",
	}))
	suite.NoError(suite.testDB.CreateTestUser(helpers.TestUser{
		ID: "admin-1", Username: "admin", Email: "admin@example.com", Role: "ADMIN", Password: "Password123!",
	}))
	suite.NoError(suite.testDB.CreateTestProduct("product-1", "admin-1", 49.99))

	suite.buyerToken = suite.tokenFor("buyer-1", "buyer", models.UserRoleCustomer)
	suite.otherToken = suite.tokenFor("buyer-2", "other", models.UserRoleCustomer)
	suite.adminToken = suite.tokenFor("admin-1", "admin", models.UserRoleAdmin)
}

func (suite *APITestSuite) TearDownTest() {
	suite.testDB.Close()
}

func (suite *APITestSuite) tokenFor(id, username string, role models.UserRole) string {
	token, err := suite.authService.GenerateToken(&models.User{ID: id, Username: username, Role: role})
	suite.NoError(err)
	return token
}

func (suite *APITestSuite) authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// Auth

func (suite *APITestSuite) TestRegisterAndLogin() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/auth/register", map[string]interface{}{
		"username": "new_player",
		"email":    "new@example.com",
		"password": "SuperSecret1",
	}, nil)
	response := helpers.AssertSuccessResponse(suite.T(), w, 201)

	data := response["data"].(map[string]interface{})
	suite.NotEmpty(data["token"])
	user := data["user"].(map[string]interface{})
	suite.Equal("new_player", user["username"])
	suite.Equal("CUSTOMER", user["role"])
	suite.Nil(user["passwordHash"])

	w = helpers.MakeRequest(suite.router, "POST", "/api/auth/login", map[string]interface{}{
		"email":    "new@example.com",
		"password": "SuperSecret1",
	}, nil)
	response = helpers.AssertSuccessResponse(suite.T(), w, 200)
	suite.NotEmpty(response["data"].(map[string]interface{})["token"])
}

func (suite *APITestSuite) TestRegisterDuplicate() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/auth/register", map[string]interface{}{
		"username": "buyer",
		"email":    "somebody@example.com",
		"password": "SuperSecret1",
	}, nil)
	helpers.AssertErrorResponse(suite.T(), w, 409)
}

func (suite *APITestSuite) TestLoginWrongPassword() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/auth/login", map[string]interface{}{
		"email":    "buyer@example.com",
		"password": "WrongPassword1",
	}, nil)
	helpers.AssertErrorResponse(suite.T(), w, 401)
}

func (suite *APITestSuite) TestProfileRequiresToken() {
	w := helpers.MakeRequest(suite.router, "GET", "/api/auth/profile", nil, nil)
	helpers.AssertErrorResponse(suite.T(), w, 401)

	w = helpers.MakeRequest(suite.router, "GET", "/api/auth/profile", nil, suite.authHeaders(suite.buyerToken))
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	user := response["data"].(map[string]interface{})["user"].(map[string]interface{})
	suite.Equal("buyer", user["username"])
}

// Catalog

func (suite *APITestSuite) TestListProductsIsPublic() {
	w := helpers.MakeRequest(suite.router, "GET", "/api/products", nil, nil)
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	suite.Len(response["data"], 1)
}

func (suite *APITestSuite) TestGetProductNotFound() {
	w := helpers.MakeRequest(suite.router, "GET", "/api/products/missing-product", nil, nil)
	helpers.AssertErrorResponse(suite.T(), w, 404)
}

func (suite *APITestSuite) TestCreateProductRequiresAdmin() {
	body := map[string]interface{}{"name": "Gaming Chair", "price": 999.0}

	w := helpers.MakeRequest(suite.router, "POST", "/api/products", body, nil)
	helpers.AssertErrorResponse(suite.T(), w, 401)

	w = helpers.MakeRequest(suite.router, "POST", "/api/products", body, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)

	w = helpers.MakeRequest(suite.router, "POST", "/api/products", body, suite.authHeaders(suite.adminToken))
	helpers.AssertSuccessResponse(suite.T(), w, 201)
}

func (suite *APITestSuite) TestDeleteProductRequiresAdmin() {
	w := helpers.MakeRequest(suite.router, "DELETE", "/api/products/product-1", nil, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)

	w = helpers.MakeRequest(suite.router, "DELETE", "/api/products/product-1", nil, suite.authHeaders(suite.adminToken))
	helpers.AssertSuccessResponse(suite.T(), w, 200)
}

// Orders

func (suite *APITestSuite) TestCreateOrder() {
	suite.gateway.NextTxID = "T1"

	w := helpers.MakeRequest(suite.router, "POST", "/api/orders", map[string]interface{}{
		"productId": "product-1",
		"quantity":  2,
	}, suite.authHeaders(suite.buyerToken))
	response := helpers.AssertSuccessResponse(suite.T(), w, 201)

	data := response["data"].(map[string]interface{})
	suite.NotEmpty(data["qrCodeImage"])
	suite.NotEmpty(data["qrCodeCopyPaste"])
	order := data["order"].(map[string]interface{})
	suite.Equal("PENDING", order["status"])
	suite.Equal("T1", order["txid"])
	suite.InDelta(99.98, order["total"].(float64), 0.0001)
}

func (suite *APITestSuite) TestCreateOrderInvalidQuantity() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/orders", map[string]interface{}{
		"productId": "product-1",
		"quantity":  0,
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 400)
}

func (suite *APITestSuite) TestCreateOrderUnknownProduct() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/orders", map[string]interface{}{
		"productId": "missing-product",
		"quantity":  1,
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 404)
}

func (suite *APITestSuite) TestCreateOrderGatewayFailure() {
	suite.gateway.Err = &services.GatewayError{Reason: "charge creation failed", Err: errors.New("connection refused")}

	w := helpers.MakeRequest(suite.router, "POST", "/api/orders", map[string]interface{}{
		"productId": "product-1",
		"quantity":  1,
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 502)

	var count int
	suite.NoError(suite.testDB.DB.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	suite.Equal(0, count)
}

func (suite *APITestSuite) TestOrderStatusOwnership() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PENDING", 49.99))

	w := helpers.MakeRequest(suite.router, "GET", "/api/orders/order-1/status", nil, suite.authHeaders(suite.buyerToken))
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	suite.Equal("PENDING", response["data"].(map[string]interface{})["status"])

	w = helpers.MakeRequest(suite.router, "GET", "/api/orders/order-1/status", nil, suite.authHeaders(suite.otherToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)

	w = helpers.MakeRequest(suite.router, "GET", "/api/orders/order-1/status", nil, suite.authHeaders(suite.adminToken))
	helpers.AssertSuccessResponse(suite.T(), w, 200)

	w = helpers.MakeRequest(suite.router, "GET", "/api/orders/missing-order/status", nil, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 404)
}

func (suite *APITestSuite) TestGetMyOrders() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))
	suite.NoError(suite.testDB.CreateTestOrder("order-2", "buyer-2", "product-1", "T2", "PENDING", 49.99))

	w := helpers.MakeRequest(suite.router, "GET", "/api/my-orders", nil, suite.authHeaders(suite.buyerToken))
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	suite.Len(response["data"], 1)
}

func (suite *APITestSuite) TestGetAllOrdersRequiresAdmin() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	w := helpers.MakeRequest(suite.router, "GET", "/api/admin/orders", nil, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)

	w = helpers.MakeRequest(suite.router, "GET", "/api/admin/orders", nil, suite.authHeaders(suite.adminToken))
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	suite.Len(response["data"], 1)
}

// Payment webhook

func (suite *APITestSuite) TestPixWebhookConfirmsPayment() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PENDING", 99.98))

	w := helpers.MakeRequest(suite.router, "POST", "/api/webhooks/pix", map[string]interface{}{
		"pix": []map[string]string{{"txid": "T1"}},
	}, nil)
	suite.Equal(200, w.Code)

	// Processing happens after the acknowledgment
	suite.True(helpers.WaitFor(2*time.Second, func() bool {
		order, err := suite.orders.GetOrderByID("order-1")
		return err == nil && order.Status == models.OrderStatusPaid
	}))
}

func (suite *APITestSuite) TestPixWebhookUnknownTxid() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/webhooks/pix", map[string]interface{}{
		"pix": []map[string]string{{"txid": "never-seen"}},
	}, nil)
	suite.Equal(200, w.Code)
}

func (suite *APITestSuite) TestPixWebhookMalformedBody() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/webhooks/pix", "not-an-object", nil)
	suite.Equal(200, w.Code)
}

// Delivery

func (suite *APITestSuite) TestMarkDeliveredRequiresPaid() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PENDING", 49.99))

	w := helpers.MakeRequest(suite.router, "PATCH", "/api/orders/order-1/deliver", nil, suite.authHeaders(suite.adminToken))
	helpers.AssertErrorResponse(suite.T(), w, 409)
}

func (suite *APITestSuite) TestMarkDeliveredFlow() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	w := helpers.MakeRequest(suite.router, "PATCH", "/api/orders/order-1/deliver", nil, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)

	w = helpers.MakeRequest(suite.router, "PATCH", "/api/orders/order-1/deliver", nil, suite.authHeaders(suite.adminToken))
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	suite.Equal("DELIVERED", response["data"].(map[string]interface{})["status"])

	// Repeat delivery is an invalid transition
	w = helpers.MakeRequest(suite.router, "PATCH", "/api/orders/order-1/deliver", nil, suite.authHeaders(suite.adminToken))
	helpers.AssertErrorResponse(suite.T(), w, 409)
}

// Chat over HTTP

func (suite *APITestSuite) TestOrderMessages() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	w := helpers.MakeRequest(suite.router, "POST", "/api/orders/order-1/messages", map[string]interface{}{
		"content": "when does it ship?",
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertSuccessResponse(suite.T(), w, 201)

	w = helpers.MakeRequest(suite.router, "POST", "/api/orders/order-1/messages", map[string]interface{}{
		"content": "tomorrow morning",
	}, suite.authHeaders(suite.adminToken))
	helpers.AssertSuccessResponse(suite.T(), w, 201)

	w = helpers.MakeRequest(suite.router, "GET", "/api/orders/order-1/messages", nil, suite.authHeaders(suite.buyerToken))
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	messages := response["data"].([]interface{})
	suite.Len(messages, 2)
	suite.Equal("when does it ship?", messages[0].(map[string]interface{})["content"])
	suite.Equal("tomorrow morning", messages[1].(map[string]interface{})["content"])
}

func (suite *APITestSuite) TestOrderMessagesForeignUser() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	w := helpers.MakeRequest(suite.router, "GET", "/api/orders/order-1/messages", nil, suite.authHeaders(suite.otherToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)

	w = helpers.MakeRequest(suite.router, "POST", "/api/orders/order-1/messages", map[string]interface{}{
		"content": "hello",
	}, suite.authHeaders(suite.otherToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)
}

func (suite *APITestSuite) TestOrderMessageWhitespaceOnly() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	w := helpers.MakeRequest(suite.router, "POST", "/api/orders/order-1/messages", map[string]interface{}{
		"content": "   \t  ",
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 400)

	var count int
	suite.NoError(suite.testDB.DB.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count))
	suite.Equal(0, count)
}

// Reviews

func (suite *APITestSuite) TestCreateReviewRequiresPurchase() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/products/product-1/reviews", map[string]interface{}{
		"rating": 5,
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 403)
}

func (suite *APITestSuite) TestCreateReviewFlow() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	w := helpers.MakeRequest(suite.router, "POST", "/api/products/product-1/reviews", map[string]interface{}{
		"rating":  5,
		"comment": "Absolutely worth it",
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertSuccessResponse(suite.T(), w, 201)

	// Second review of the same product is refused
	w = helpers.MakeRequest(suite.router, "POST", "/api/products/product-1/reviews", map[string]interface{}{
		"rating": 1,
	}, suite.authHeaders(suite.buyerToken))
	helpers.AssertErrorResponse(suite.T(), w, 409)

	w = helpers.MakeRequest(suite.router, "GET", "/api/products/product-1/reviews", nil, nil)
	response := helpers.AssertSuccessResponse(suite.T(), w, 200)
	reviews := response["data"].([]interface{})
	suite.Len(reviews, 1)
	suite.Equal("buyer", reviews[0].(map[string]interface{})["username"])
}

// Internal provisioning

func (suite *APITestSuite) TestCreateSuperUserWrongSecret() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/internal/create-super-user", map[string]interface{}{
		"username": "root",
		"email":    "root@example.com",
		"password": "RootSecret1",
		"secret":   "wrong",
	}, nil)
	helpers.AssertErrorResponse(suite.T(), w, 403)
}

func (suite *APITestSuite) TestCreateSuperUser() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/internal/create-super-user", map[string]interface{}{
		"username": "root",
		"email":    "root@example.com",
		"password": "RootSecret1",
		"secret":   testInternalSecret,
	}, nil)
	response := helpers.AssertSuccessResponse(suite.T(), w, 201)
	suite.Equal("ADMIN", response["data"].(map[string]interface{})["role"])
}

func (suite *APITestSuite) TestCreateSuperUserPromotesExisting() {
	w := helpers.MakeRequest(suite.router, "POST", "/api/internal/create-super-user", map[string]interface{}{
		"username": "buyer",
		"email":    "buyer@example.com",
		"password": "Whatever123",
		"secret":   testInternalSecret,
	}, nil)
	helpers.AssertSuccessResponse(suite.T(), w, 200)

	var role string
	suite.NoError(suite.testDB.DB.QueryRow(`SELECT role FROM users WHERE id = 'buyer-1'`).Scan(&role))
	suite.Equal("ADMIN", role)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

package helpers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"gamerstore-backend/database"
	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
)

// TestConfig holds test configuration
type TestConfig struct {
	JWTSecret      string
	JWTExpiration  int
	DatabaseURL    string
	Environment    string
	InternalSecret string
	PixChargeTTL   int
}

// NewTestConfig creates a new test configuration
func NewTestConfig() *TestConfig {
	return &TestConfig{
		JWTSecret:      "test-jwt-secret-key-12345678901234567890",
		JWTExpiration:  8 * 60 * 60,
		DatabaseURL:    ":memory:",
		Environment:    "test",
		InternalSecret: "test-internal-secret",
		PixChargeTTL:   240,
	}
}

// TestUser represents a test user
type TestUser struct {
	ID       string
	Username string
	Email    string
	Role     string
	Password string
	Token    string
}

// TestDatabase manages test database setup and teardown
type TestDatabase struct {
	DB *sql.DB
}

// SetupTestDatabase creates an in-memory SQLite database for testing
func SetupTestDatabase() *TestDatabase {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		panic(fmt.Sprintf("Failed to open test database: %v", err))
	}
	db.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		panic(fmt.Sprintf("Failed to migrate test database: %v", err))
	}

	return &TestDatabase{DB: db}
}

// Close closes the test database
func (td *TestDatabase) Close() {
	if td.DB != nil {
		td.DB.Close()
	}
}

// CreateTestUser creates a test user in the database
func (td *TestDatabase) CreateTestUser(user TestUser) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, role, email_verified_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err = td.DB.Exec(query, user.ID, user.Username, user.Email, string(hashedPassword), user.Role)
	return err
}

// CreateTestProduct creates a test product in the database
func (td *TestDatabase) CreateTestProduct(productID, sellerID string, price float64) error {
	query := `
		INSERT INTO products (id, name, description, price, image_url, seller_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := td.DB.Exec(query, productID, "Mechanical Keyboard", "RGB hot-swap keyboard", price, "https://cdn.example.com/kb.png", sellerID)
	return err
}

// CreateTestOrder creates a test order with a single item
func (td *TestDatabase) CreateTestOrder(orderID, userID, productID, txid, status string, total float64) error {
	_, err := td.DB.Exec(`
		INSERT INTO orders (id, user_id, total, status, txid)
		VALUES (?, ?, ?, ?, ?)
	`, orderID, userID, total, status, txid)
	if err != nil {
		return err
	}

	_, err = td.DB.Exec(`
		INSERT INTO order_items (id, order_id, product_id, quantity)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), orderID, productID, 1)
	return err
}

// CleanupTestData removes test data from database
func (td *TestDatabase) CleanupTestData() {
	tables := []string{
		"reviews", "messages", "order_items", "orders", "products", "users",
	}

	for _, table := range tables {
		td.DB.Exec("DELETE FROM " + table)
	}
}

// FakePixGateway is an in-memory PIX gateway for testing. When Err is set,
// CreateCharge fails without producing a charge.
type FakePixGateway struct {
	mu        sync.Mutex
	Err       error
	NextTxID  string
	CallCount int
	LastTTL   int
}

func (f *FakePixGateway) CreateCharge(amount float64, expirationSeconds int) (*services.PixCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CallCount++
	f.LastTTL = expirationSeconds
	if f.Err != nil {
		return nil, f.Err
	}

	txid := f.NextTxID
	if txid == "" {
		txid = uuid.New().String()
	}
	return &services.PixCharge{
		TxID:          txid,
		CopyPasteCode: "00020126pix-copy-paste-" + txid,
		QRCodeImage:   "data:image/png;base64,dGVzdA==",
	}, nil
}

// GenerateJWTToken generates a JWT token for testing using the same claims
// shape the auth service produces
func GenerateJWTToken(userID, username, role, secret string) (string, error) {
	authService := services.NewAuthService(secret, 24*60*60)
	return authService.GenerateToken(&models.User{
		ID:       userID,
		Username: username,
		Role:     models.UserRole(role),
	})
}

// MakeRequest makes an HTTP request to the test server
func MakeRequest(router *gin.Engine, method, url string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, url, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// AssertSuccessResponse asserts that the response is successful
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) map[string]interface{} {
	assert.Equal(t, expectedStatus, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.True(t, response["success"].(bool))

	return response
}

// AssertErrorResponse asserts that the response is an error
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) map[string]interface{} {
	assert.Equal(t, expectedStatus, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.False(t, response["success"].(bool))

	return response
}

// WaitFor polls cond until it returns true or the timeout elapses
func WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

package services_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"gamerstore-backend/internal/models"
	"gamerstore-backend/internal/services"
	"gamerstore-backend/test/helpers"
)

type OrderServiceTestSuite struct {
	suite.Suite
	testDB  *helpers.TestDatabase
	gateway *helpers.FakePixGateway
	orders  *services.OrderService
}

func (suite *OrderServiceTestSuite) SetupTest() {
	suite.testDB = helpers.SetupTestDatabase()
	suite.gateway = &helpers.FakePixGateway{}
	suite.orders = services.NewOrderService(suite.testDB.DB, suite.gateway, 240)

	suite.NoError(suite.testDB.CreateTestUser(helpers.TestUser{
		ID: "buyer-1", Username: "buyer", Email: "buyer@example.com", Role: "CUSTOMER", Password: "Password123!",
	}))
	suite.NoError(suite.testDB.CreateTestUser(helpers.TestUser{
		ID: "admin-1", Username: "admin", Email: "admin@example.com", Role: "ADMIN", Password: "Password123!",
	}))
	suite.NoError(suite.testDB.CreateTestProduct("product-1", "admin-1", 49.99))
}

func (suite *OrderServiceTestSuite) TearDownTest() {
	suite.testDB.Close()
}

func (suite *OrderServiceTestSuite) TestCreateOrderComputesTotal() {
	suite.gateway.NextTxID = "T1"

	checkout, err := suite.orders.CreateOrder("buyer-1", "product-1", 2)
	suite.NoError(err)
	suite.NotNil(checkout)

	suite.Equal("T1", checkout.Order.TxID)
	suite.InDelta(99.98, checkout.Order.Total, 0.0001)
	suite.Equal(models.OrderStatusPending, checkout.Order.Status)
	suite.NotEmpty(checkout.QRCodeImage)
	suite.NotEmpty(checkout.CopyPasteCode)
	suite.Len(checkout.Order.Items, 1)
	suite.Equal(2, checkout.Order.Items[0].Quantity)
	suite.Equal(240, suite.gateway.LastTTL)
}

func (suite *OrderServiceTestSuite) TestCreateOrderRejectsZeroQuantity() {
	_, err := suite.orders.CreateOrder("buyer-1", "product-1", 0)
	suite.ErrorIs(err, services.ErrInvalidQuantity)
	suite.Equal(0, suite.gateway.CallCount)
}

func (suite *OrderServiceTestSuite) TestCreateOrderUnknownProduct() {
	_, err := suite.orders.CreateOrder("buyer-1", "missing-product", 1)
	suite.ErrorIs(err, services.ErrProductNotFound)
	suite.Equal(0, suite.gateway.CallCount)
}

func (suite *OrderServiceTestSuite) TestGatewayFailureLeavesNothingPersisted() {
	suite.gateway.Err = &services.GatewayError{Reason: "charge creation failed", Err: errors.New("boom")}

	_, err := suite.orders.CreateOrder("buyer-1", "product-1", 1)
	suite.Error(err)

	var gatewayErr *services.GatewayError
	suite.True(errors.As(err, &gatewayErr))

	var orderCount, itemCount int
	suite.NoError(suite.testDB.DB.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orderCount))
	suite.NoError(suite.testDB.DB.QueryRow(`SELECT COUNT(*) FROM order_items`).Scan(&itemCount))
	suite.Equal(0, orderCount)
	suite.Equal(0, itemCount)
}

func (suite *OrderServiceTestSuite) TestConfirmPaymentTransitionsPendingToPaid() {
	suite.gateway.NextTxID = "T1"
	checkout, err := suite.orders.CreateOrder("buyer-1", "product-1", 1)
	suite.NoError(err)

	suite.NoError(suite.orders.ConfirmPayment("T1"))

	order, err := suite.orders.GetOrderByID(checkout.Order.ID)
	suite.NoError(err)
	suite.Equal(models.OrderStatusPaid, order.Status)
}

func (suite *OrderServiceTestSuite) TestConfirmPaymentIsIdempotent() {
	suite.gateway.NextTxID = "T1"
	checkout, err := suite.orders.CreateOrder("buyer-1", "product-1", 1)
	suite.NoError(err)

	suite.NoError(suite.orders.ConfirmPayment("T1"))
	suite.NoError(suite.orders.ConfirmPayment("T1"))
	suite.NoError(suite.orders.ConfirmPayment("T1"))

	order, err := suite.orders.GetOrderByID(checkout.Order.ID)
	suite.NoError(err)
	suite.Equal(models.OrderStatusPaid, order.Status)
}

func (suite *OrderServiceTestSuite) TestConfirmPaymentUnknownTxidIsNoOp() {
	suite.NoError(suite.orders.ConfirmPayment("does-not-exist"))

	var count int
	suite.NoError(suite.testDB.DB.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	suite.Equal(0, count)
}

func (suite *OrderServiceTestSuite) TestConfirmPaymentDoesNotRegressDelivered() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T9", "DELIVERED", 49.99))

	suite.NoError(suite.orders.ConfirmPayment("T9"))

	order, err := suite.orders.GetOrderByID("order-1")
	suite.NoError(err)
	suite.Equal(models.OrderStatusDelivered, order.Status)
}

func (suite *OrderServiceTestSuite) TestMarkDeliveredRequiresPaid() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PENDING", 49.99))

	_, err := suite.orders.MarkDelivered("order-1")
	suite.ErrorIs(err, services.ErrInvalidTransition)

	order, err := suite.orders.GetOrderByID("order-1")
	suite.NoError(err)
	suite.Equal(models.OrderStatusPending, order.Status)
}

func (suite *OrderServiceTestSuite) TestMarkDeliveredMovesPaidToDelivered() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	order, err := suite.orders.MarkDelivered("order-1")
	suite.NoError(err)
	suite.Equal(models.OrderStatusDelivered, order.Status)

	// Delivering twice is an invalid transition, not a silent success
	_, err = suite.orders.MarkDelivered("order-1")
	suite.ErrorIs(err, services.ErrInvalidTransition)
}

func (suite *OrderServiceTestSuite) TestMarkDeliveredUnknownOrder() {
	_, err := suite.orders.MarkDelivered("missing-order")
	suite.ErrorIs(err, services.ErrOrderNotFound)
}

func (suite *OrderServiceTestSuite) TestGetOrderStatusEnforcesOwnership() {
	suite.NoError(suite.testDB.CreateTestUser(helpers.TestUser{
		ID: "buyer-2", Username: "other", Email: "other@example.com", Role: "CUSTOMER", Password: "Password123!",
	}))
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PENDING", 49.99))

	status, err := suite.orders.GetOrderStatus("order-1", "buyer-1", models.UserRoleCustomer)
	suite.NoError(err)
	suite.Equal(models.OrderStatusPending, status)

	_, err = suite.orders.GetOrderStatus("order-1", "buyer-2", models.UserRoleCustomer)
	suite.ErrorIs(err, services.ErrForbidden)

	status, err = suite.orders.GetOrderStatus("order-1", "admin-1", models.UserRoleAdmin)
	suite.NoError(err)
	suite.Equal(models.OrderStatusPending, status)
}

func (suite *OrderServiceTestSuite) TestGetUserOrdersIncludesItems() {
	suite.gateway.NextTxID = "T1"
	_, err := suite.orders.CreateOrder("buyer-1", "product-1", 3)
	suite.NoError(err)

	orders, err := suite.orders.GetUserOrders("buyer-1")
	suite.NoError(err)
	suite.Len(orders, 1)
	suite.Len(orders[0].Items, 1)
	suite.Equal("Mechanical Keyboard", orders[0].Items[0].ProductName)
	suite.Equal(3, orders[0].Items[0].Quantity)
}

func (suite *OrderServiceTestSuite) TestGetAllOrdersIncludesBuyer() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PAID", 49.99))

	orders, err := suite.orders.GetAllOrders()
	suite.NoError(err)
	suite.Len(orders, 1)
	suite.NotNil(orders[0].Buyer)
	suite.Equal("buyer", orders[0].Buyer.Username)
}

func (suite *OrderServiceTestSuite) TestHasPaidPurchase() {
	suite.NoError(suite.testDB.CreateTestOrder("order-1", "buyer-1", "product-1", "T1", "PENDING", 49.99))

	paid, err := suite.orders.HasPaidPurchase("buyer-1", "product-1")
	suite.NoError(err)
	suite.False(paid)

	suite.NoError(suite.orders.ConfirmPayment("T1"))

	paid, err = suite.orders.HasPaidPurchase("buyer-1", "product-1")
	suite.NoError(err)
	suite.True(paid)
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

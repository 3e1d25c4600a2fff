package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/events"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const orderBody = `{
	"orderItems": [
		{"name": "Sahih al-Bukhari", "qty": 2, "image": "/images/bukhari.jpg", "price": "100.00", "product": "%s"}
	],
	"shippingAddress": {"address": "House 12, Road 5", "city": "Dhaka", "postalCode": "1207", "country": "Bangladesh", "phoneNumber": "01700000000"},
	"paymentMethod": "SSLCommerz",
	"itemsPrice": "200.00",
	"taxPrice": "30.00",
	"shippingPrice": 24,
	"totalPrice": "254.00"
}`

func TestAddOrderItemsPersistsTotals(t *testing.T) {
	buyer := &models.User{ID: primitive.NewObjectID(), Name: "Yusuf", Email: "yusuf@example.com"}
	env := newTestEnv(t, buyer)
	productID := primitive.NewObjectID()
	env.carts.items[buyer.ID] = []models.CartItem{{Product: productID, Qty: 2}}

	rec := env.do(t, env.h.AddOrderItems, call{
		method: http.MethodPost,
		user:   buyer,
		body:   fmt.Sprintf(orderBody, productID.Hex()),
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user":"`+buyer.ID.Hex()+`"`)
	var order models.Order
	decode(t, rec, &order)
	assert.Equal(t, 254.0, order.TotalPrice)
	assert.Equal(t, 200.0, order.ItemsPrice)
	assert.Equal(t, 30.0, order.TaxPrice)
	assert.Equal(t, 24.0, order.ShippingPrice)
	assert.Equal(t, buyer.ID, order.UserID)
	assert.False(t, order.IsPaid)
	assert.False(t, order.IsDelivered)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, productID, order.OrderItems[0].Product)
	assert.Equal(t, "Dhaka", order.ShippingAddress.City)

	// Reading it back returns the same figures
	rec = env.do(t, env.h.GetOrderByID, call{params: map[string]string{"id": order.ID.Hex()}, user: buyer})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user":{"_id":"`+buyer.ID.Hex()+`"`)
	var fetched models.Order
	decode(t, rec, &fetched)
	assert.Equal(t, 254.0, fetched.TotalPrice)
	require.NotNil(t, fetched.Owner)
	assert.Equal(t, "yusuf@example.com", fetched.Owner.Email)

	assert.Empty(t, env.carts.items[buyer.ID])
	assert.Equal(t, []string{events.EventOrderCreated + ":" + order.ID.Hex()}, env.publisher.PublishedEvents)
}

func TestAddOrderItemsRejectsEmpty(t *testing.T) {
	buyer := &models.User{ID: primitive.NewObjectID()}
	env := newTestEnv(t, buyer)

	rec := env.do(t, env.h.AddOrderItems, call{
		method: http.MethodPost,
		user:   buyer,
		body:   `{"orderItems": [], "totalPrice": 10}`,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No order items", messageOf(t, rec))
	assert.Empty(t, env.orders.items)
}

func TestGetOrderByIDVisibility(t *testing.T) {
	owner := &models.User{ID: primitive.NewObjectID()}
	stranger := &models.User{ID: primitive.NewObjectID()}
	admin := &models.User{ID: primitive.NewObjectID(), IsAdmin: true}
	env := newTestEnv(t, owner, stranger, admin)
	order := env.orders.put(&models.Order{UserID: owner.ID, TotalPrice: 10})
	params := map[string]string{"id": order.ID.Hex()}

	assert.Equal(t, http.StatusOK, env.do(t, env.h.GetOrderByID, call{params: params, user: owner}).Code)
	assert.Equal(t, http.StatusOK, env.do(t, env.h.GetOrderByID, call{params: params, user: admin}).Code)

	rec := env.do(t, env.h.GetOrderByID, call{params: params, user: stranger})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", messageOf(t, rec))
}

func TestGetMyOrdersOnlyOwn(t *testing.T) {
	me := &models.User{ID: primitive.NewObjectID()}
	other := &models.User{ID: primitive.NewObjectID()}
	env := newTestEnv(t, me, other)
	env.orders.put(&models.Order{UserID: me.ID})
	env.orders.put(&models.Order{UserID: other.ID})

	rec := env.do(t, env.h.GetMyOrders, call{user: me})

	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.Order
	decode(t, rec, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, me.ID, orders[0].UserID)
}

func TestGetMyOrdersEmptyIsArray(t *testing.T) {
	me := &models.User{ID: primitive.NewObjectID()}
	env := newTestEnv(t, me)

	rec := env.do(t, env.h.GetMyOrders, call{user: me})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDeliverUnpaidOrder(t *testing.T) {
	owner := &models.User{ID: primitive.NewObjectID()}
	env := newTestEnv(t, owner)
	order := env.orders.put(&models.Order{UserID: owner.ID})

	rec := env.do(t, env.h.UpdateOrderToDelivered, call{
		method: http.MethodPut,
		params: map[string]string{"id": order.ID.Hex()},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Order
	decode(t, rec, &got)
	assert.True(t, got.IsDelivered)
	assert.NotNil(t, got.DeliveredAt)
	assert.False(t, got.IsPaid)
	assert.Nil(t, got.PaidAt)
	assert.Contains(t, env.publisher.PublishedEvents, events.EventOrderDelivered+":"+order.ID.Hex())
}

func TestDeliverMissingOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, env.h.UpdateOrderToDelivered, call{
		method: http.MethodPut,
		params: map[string]string{"id": primitive.NewObjectID().Hex()},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

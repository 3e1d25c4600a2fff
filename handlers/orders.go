package handlers

import (
	"context"
	"net/http"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/events"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type orderItemRequest struct {
	Name    string             `json:"name"`
	Qty     flexFloat          `json:"qty"`
	Image   string             `json:"image"`
	Price   flexFloat          `json:"price"`
	Product primitive.ObjectID `json:"product"`
}

type CreateOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ItemsPrice      flexFloat              `json:"itemsPrice"`
	TaxPrice        flexFloat              `json:"taxPrice"`
	ShippingPrice   flexFloat              `json:"shippingPrice"`
	TotalPrice      flexFloat              `json:"totalPrice"`
}

// toOrder copies the client's figures verbatim. Totals are not recomputed
// from the catalog.
func (r CreateOrderRequest) toOrder(userID primitive.ObjectID) *models.Order {
	items := make([]models.OrderItem, 0, len(r.OrderItems))
	for _, it := range r.OrderItems {
		items = append(items, models.OrderItem{
			Name:    it.Name,
			Qty:     it.Qty.Int(),
			Image:   it.Image,
			Price:   it.Price.Float(),
			Product: it.Product,
		})
	}

	return &models.Order{
		UserID:          userID,
		OrderItems:      items,
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   r.PaymentMethod,
		ItemsPrice:      r.ItemsPrice.Float(),
		TaxPrice:        r.TaxPrice.Float(),
		ShippingPrice:   r.ShippingPrice.Float(),
		TotalPrice:      r.TotalPrice.Float(),
	}
}

// AddOrderItems creates an unpaid, undelivered order for the caller.
func (h *Handler) AddOrderItems(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid order data")
	}
	if len(req.OrderItems) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No order items")
	}
	for _, it := range req.OrderItems {
		if it.Product.IsZero() || it.Qty.Int() < 1 || it.Price < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid order item")
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	order := req.toOrder(user.ID)
	if err := h.orders.CreateOrder(ctx, order); err != nil {
		return err
	}

	// The cart has been checked out; a stale cart is harmless so only log
	if err := h.carts.ClearCart(ctx, user.ID); err != nil {
		h.log.Warn("Failed to clear cart after checkout", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}

	h.publish(ctx, events.EventOrderCreated, map[string]interface{}{
		"orderId":    order.ID.Hex(),
		"userId":     user.ID.Hex(),
		"totalPrice": order.TotalPrice,
		"items":      len(order.OrderItems),
	})

	h.log.Info("Order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", user.ID.Hex()),
		zap.Float64("total_price", order.TotalPrice),
	)
	return c.JSON(http.StatusCreated, order)
}

// GetOrderByID returns the order with its owner's name and email. Only the
// owner and admins may read it; anyone else gets a 404.
func (h *Handler) GetOrderByID(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	id, err := parseObjectID(c, "id", database.ErrOrderNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if !order.VisibleTo(user) {
		return database.ErrOrderNotFound
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) GetMyOrders(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	orders, err := h.orders.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrders(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(http.StatusOK, orders)
}

// UpdateOrderToDelivered marks an order delivered whether or not it is paid.
func (h *Handler) UpdateOrderToDelivered(c echo.Context) error {
	id, err := parseObjectID(c, "id", database.ErrOrderNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.MarkDelivered(ctx, id, h.now())
	if err != nil {
		return err
	}

	h.publish(ctx, events.EventOrderDelivered, map[string]interface{}{
		"orderId": order.ID.Hex(),
		"userId":  order.UserID.Hex(),
		"isPaid":  order.IsPaid,
	})

	h.log.Info("Order delivered", zap.String("order_id", order.ID.Hex()), zap.Bool("is_paid", order.IsPaid))
	return c.JSON(http.StatusOK, order)
}

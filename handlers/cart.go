package handlers

import (
	"context"
	"net/http"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartItemRequest struct {
	ProductID string    `json:"productId"`
	Qty       flexFloat `json:"qty"`
}

func (r cartItemRequest) validate() (primitive.ObjectID, int, error) {
	productID, err := primitive.ObjectIDFromHex(r.ProductID)
	if err != nil {
		return primitive.NilObjectID, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid product ID")
	}
	qty := r.Qty.Int()
	if qty < 1 {
		return primitive.NilObjectID, 0, echo.NewHTTPError(http.StatusBadRequest, "Quantity must be at least 1")
	}
	return productID, qty, nil
}

// GetCart retrieves the user's cart
func (h *Handler) GetCart(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// AddToCart snapshots the product into the cart, replacing any existing line
// for it.
func (h *Handler) AddToCart(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	productID, qty, err := req.validate()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > product.CountInStock {
		return echo.NewHTTPError(http.StatusBadRequest, "Not enough stock")
	}

	item := models.CartItem{
		Product: product.ID,
		Name:    product.Name,
		Image:   product.Image,
		Price:   product.Price,
		Qty:     qty,
	}
	if err := h.carts.AddItem(ctx, user.ID, item); err != nil {
		return err
	}

	cart, err := h.carts.GetCart(ctx, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// UpdateCartItemQuantity updates the quantity of an item in the cart
func (h *Handler) UpdateCartItemQuantity(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	productID, qty, err := req.validate()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > product.CountInStock {
		return echo.NewHTTPError(http.StatusBadRequest, "Not enough stock")
	}

	if err := h.carts.UpdateQuantity(ctx, user.ID, productID, qty); err != nil {
		return err
	}

	cart, err := h.carts.GetCart(ctx, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

// RemoveFromCart removes an item from the cart
func (h *Handler) RemoveFromCart(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	productID, err := parseObjectID(c, "productId", database.ErrCartItemNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.carts.RemoveItem(ctx, user.ID, productID); err != nil {
		return err
	}

	cart, err := h.carts.GetCart(ctx, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

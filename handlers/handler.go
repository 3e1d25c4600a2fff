package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/events"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/middleware"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/utils"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ProductStore interface {
	ListProducts(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error)
	FilterValues(ctx context.Context) (*models.FilterValues, error)
	TopProducts(ctx context.Context, limit int64) ([]models.Product, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id primitive.ObjectID, update models.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
	AddReview(ctx context.Context, productID primitive.ObjectID, review models.Review) error
	DeleteReview(ctx context.Context, productID, reviewID primitive.ObjectID) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	SetTransactionID(ctx context.Context, id primitive.ObjectID, transactionID string) error
	MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time) (*models.Order, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

type CartStore interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	AddItem(ctx context.Context, userID primitive.ObjectID, item models.CartItem) error
	UpdateQuantity(ctx context.Context, userID, productID primitive.ObjectID, qty int) error
	RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error
	ClearCart(ctx context.Context, userID primitive.ObjectID) error
}

// PaymentGateway opens hosted checkout sessions and authenticates callbacks.
type PaymentGateway interface {
	InitSession(ctx context.Context, req utils.SessionRequest) (*models.PaymentSession, error)
	VerifyCallback(form url.Values) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// brokerHealth is implemented by publishers that hold a live connection.
type brokerHealth interface {
	IsHealthy() bool
}

// Options are the request-independent settings handlers need.
type Options struct {
	JWTSecret       string
	FrontendURL     string
	BackendURL      string
	Currency        string
	VerifyCallbacks bool
}

// Deps wires a Handler. Events, Metrics and Ping are optional.
type Deps struct {
	Products ProductStore
	Orders   OrderStore
	Users    UserStore
	Carts    CartStore
	Gateway  PaymentGateway
	Events   EventPublisher
	Metrics  *middleware.Metrics
	Ping     func(ctx context.Context) error
	Log      *zap.Logger
	Options  Options
}

type Handler struct {
	products ProductStore
	orders   OrderStore
	users    UserStore
	carts    CartStore
	gateway  PaymentGateway
	events   EventPublisher
	metrics  *middleware.Metrics
	ping     func(ctx context.Context) error
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func New(deps Deps) *Handler {
	h := &Handler{
		products: deps.Products,
		orders:   deps.Orders,
		users:    deps.Users,
		carts:    deps.Carts,
		gateway:  deps.Gateway,
		events:   deps.Events,
		metrics:  deps.Metrics,
		ping:     deps.Ping,
		log:      deps.Log,
		opts:     deps.Options,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if h.events == nil {
		h.events = events.NopPublisher{}
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.opts.Currency == "" {
		h.opts.Currency = "BDT"
	}
	return h
}

// Health reports whether the database is reachable and, when the publisher
// keeps a connection, whether the event broker is.
func (h *Handler) Health(c echo.Context) error {
	if h.ping != nil {
		if err := h.ping(c.Request().Context()); err != nil {
			h.log.Error("Database health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
	}

	// A lost broker degrades health but never fails it.
	status := map[string]string{"status": "ok"}
	if b, ok := h.events.(brokerHealth); ok && !b.IsHealthy() {
		h.log.Warn("Event broker connection lost")
		status["events"] = "unavailable"
	}
	return c.JSON(http.StatusOK, status)
}

// publish sends an event without failing the request that triggered it.
func (h *Handler) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := h.events.Publish(ctx, events.NewEvent(eventType, payload)); err != nil {
		h.log.Warn("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func parseObjectID(c echo.Context, param string, notFound error) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return id, nil
}

func currentUser(c echo.Context) (*models.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, no token")
	}
	return user, nil
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/events"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/middleware"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memProducts struct {
	mu        sync.Mutex
	items     map[primitive.ObjectID]*models.Product
	lastQuery models.ProductQuery
}

func newMemProducts(products ...*models.Product) *memProducts {
	m := &memProducts{items: map[primitive.ObjectID]*models.Product{}}
	for _, p := range products {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		m.items[p.ID] = p
	}
	return m
}

func (m *memProducts) ListProducts(_ context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	page := &models.ProductPage{Products: []models.Product{}, Page: q.Page, Pages: 1}
	for _, p := range m.items {
		page.Products = append(page.Products, *p)
	}
	return page, nil
}

func (m *memProducts) FilterValues(context.Context) (*models.FilterValues, error) {
	return &models.FilterValues{Categories: []string{"Hadith"}}, nil
}

func (m *memProducts) TopProducts(_ context.Context, limit int64) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.items {
		if int64(len(out)) == limit {
			break
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProducts) GetProduct(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	cp := *p
	cp.Reviews = append([]models.Review(nil), p.Reviews...)
	return &cp, nil
}

func (m *memProducts) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	m.items[p.ID] = p
	return nil
}

func (m *memProducts) UpdateProduct(_ context.Context, id primitive.ObjectID, u models.ProductUpdate) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	applyUpdate(u, p)
	cp := *p
	return &cp, nil
}

func (m *memProducts) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return database.ErrProductNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memProducts) AddReview(_ context.Context, id primitive.ObjectID, review models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return database.ErrProductNotFound
	}
	if hasReviewFrom(p, review.User) {
		return database.ErrAlreadyReviewed
	}
	p.Reviews = append(p.Reviews, review)
	recomputeRating(p)
	return nil
}

func (m *memProducts) DeleteReview(_ context.Context, id, reviewID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return database.ErrProductNotFound
	}
	for i, r := range p.Reviews {
		if r.ID == reviewID {
			p.Reviews = append(p.Reviews[:i], p.Reviews[i+1:]...)
			recomputeRating(p)
			return nil
		}
	}
	return database.ErrReviewNotFound
}

func applyUpdate(u models.ProductUpdate, p *models.Product) {
	p.Name = u.Name
	p.Price = u.Price
	p.Description = u.Description
	p.Image = u.Image
	p.Author = u.Author
	p.Publisher = u.Publisher
	p.ISBN = u.ISBN
	p.Pages = u.Pages
	p.Language = u.Language
	p.Binding = u.Binding
	p.PublicationYear = u.PublicationYear
	p.PreviewURL = u.PreviewURL
	p.Category = u.Category
	p.CountInStock = u.CountInStock
}

func hasReviewFrom(p *models.Product, userID primitive.ObjectID) bool {
	for _, r := range p.Reviews {
		if r.User == userID {
			return true
		}
	}
	return false
}

// recomputeRating mirrors the aggregate stage the repository runs.
func recomputeRating(p *models.Product) {
	p.NumReviews = len(p.Reviews)
	p.Rating = 0
	if p.NumReviews == 0 {
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = float64(sum) / float64(p.NumReviews)
}

type memOrders struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Order
	users map[primitive.ObjectID]*models.User
}

func newMemOrders(users ...*models.User) *memOrders {
	m := &memOrders{items: map[primitive.ObjectID]*models.Order{}, users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memOrders) put(o *models.Order) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	m.items[o.ID] = o
	return o
}

func (m *memOrders) view(o *models.Order) *models.Order {
	cp := *o
	if u, ok := m.users[o.UserID]; ok {
		cp.Owner = &models.OrderUser{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return &cp
}

func (m *memOrders) CreateOrder(_ context.Context, o *models.Order) error {
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	m.put(o)
	return nil
}

func (m *memOrders) GetOrder(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	return m.view(o), nil
}

func (m *memOrders) ListOrdersByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.items {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) ListOrders(context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.items {
		out = append(out, *m.view(o))
	}
	return out, nil
}

func (m *memOrders) SetTransactionID(_ context.Context, id primitive.ObjectID, tranID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return database.ErrOrderNotFound
	}
	o.TransactionID = tranID
	for _, issued := range o.TransactionIDs {
		if issued == tranID {
			return nil
		}
	}
	o.TransactionIDs = append(o.TransactionIDs, tranID)
	return nil
}

func (m *memOrders) MarkPaid(_ context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	if o.IsPaid {
		cp := *o
		return &cp, database.ErrOrderAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentResult = &result
	cp := *o
	return &cp, nil
}

func (m *memOrders) MarkDelivered(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	o.IsDelivered = true
	o.DeliveredAt = &at
	cp := *o
	return &cp, nil
}

type memUsers struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{items: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		m.items[u.ID] = u
	}
	return m
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Email == u.Email {
			return database.ErrEmailTaken
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.items[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ListUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.items {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[u.ID]
	if !ok {
		return database.ErrUserNotFound
	}
	existing.Name, existing.Email, existing.IsAdmin = u.Name, u.Email, u.IsAdmin
	if u.Password != "" {
		existing.Password = u.Password
	}
	return nil
}

func (m *memUsers) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return database.ErrUserNotFound
	}
	delete(m.items, id)
	return nil
}

type memCarts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID][]models.CartItem
}

func newMemCarts() *memCarts {
	return &memCarts{items: map[primitive.ObjectID][]models.CartItem{}}
}

func (m *memCarts) GetCart(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]models.CartItem{}, m.items[userID]...)
	return &models.Cart{UserID: userID, Items: items}, nil
}

func (m *memCarts) AddItem(_ context.Context, userID primitive.ObjectID, item models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items[userID] {
		if it.Product == item.Product {
			m.items[userID][i] = item
			return nil
		}
	}
	m.items[userID] = append(m.items[userID], item)
	return nil
}

func (m *memCarts) UpdateQuantity(_ context.Context, userID, productID primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items[userID] {
		if it.Product == productID {
			m.items[userID][i].Qty = qty
			return nil
		}
	}
	return database.ErrCartItemNotFound
}

func (m *memCarts) RemoveItem(_ context.Context, userID, productID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items[userID] {
		if it.Product == productID {
			m.items[userID] = append(m.items[userID][:i], m.items[userID][i+1:]...)
			return nil
		}
	}
	return database.ErrCartItemNotFound
}

func (m *memCarts) ClearCart(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

// fakeGateway stands in for the SSLCommerz client.
type fakeGateway struct {
	mu        sync.Mutex
	requests  []utils.SessionRequest
	initErr   error
	verifyErr error
}

func (g *fakeGateway) InitSession(_ context.Context, req utils.SessionRequest) (*models.PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &models.PaymentSession{
		TransactionID:  req.TransactionID,
		GatewayPageURL: "https://sandbox.sslcommerz.com/EasyCheckOut/" + req.TransactionID,
	}, nil
}

func (g *fakeGateway) VerifyCallback(url.Values) error {
	return g.verifyErr
}

// MockPublisher is a mock event publisher for testing
type MockPublisher struct {
	mu              sync.Mutex
	PublishedEvents []string
}

func (m *MockPublisher) Publish(_ context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedEvents = append(m.PublishedEvents, event.EventType+":"+event.Payload["orderId"].(string))
	return nil
}

type testEnv struct {
	h         *Handler
	e         *echo.Echo
	products  *memProducts
	orders    *memOrders
	users     *memUsers
	carts     *memCarts
	gateway   *fakeGateway
	publisher *MockPublisher
	metrics   *middleware.Metrics
}

func newTestEnv(t *testing.T, users ...*models.User) *testEnv {
	t.Helper()

	env := &testEnv{
		products:  newMemProducts(),
		orders:    newMemOrders(users...),
		users:     newMemUsers(users...),
		carts:     newMemCarts(),
		gateway:   &fakeGateway{},
		publisher: &MockPublisher{PublishedEvents: []string{}},
		metrics:   middleware.NewMetrics(),
	}
	env.h = New(Deps{
		Products: env.products,
		Orders:   env.orders,
		Users:    env.users,
		Carts:    env.carts,
		Gateway:  env.gateway,
		Events:   env.publisher,
		Metrics:  env.metrics,
		Log:      zap.NewNop(),
		Options: Options{
			JWTSecret:       "handler-secret",
			FrontendURL:     "http://localhost:5173",
			BackendURL:      "http://localhost:5000",
			VerifyCallbacks: true,
		},
	})
	env.e = echo.New()
	env.e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	return env
}

type call struct {
	method string
	target string
	body   string
	form   url.Values
	params map[string]string
	user   *models.User
}

func (env *testEnv) do(t *testing.T, fn echo.HandlerFunc, c call) *httptest.ResponseRecorder {
	t.Helper()

	method := c.method
	if method == "" {
		method = http.MethodGet
	}
	target := c.target
	if target == "" {
		target = "/"
	}

	var req *http.Request
	switch {
	case c.form != nil:
		req = httptest.NewRequest(method, target, strings.NewReader(c.form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	case c.body != "":
		req = httptest.NewRequest(method, target, strings.NewReader(c.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	default:
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	ctx := env.e.NewContext(req, rec)
	if len(c.params) > 0 {
		names := make([]string, 0, len(c.params))
		values := make([]string, 0, len(c.params))
		for name, value := range c.params {
			names = append(names, name)
			values = append(values, value)
		}
		ctx.SetParamNames(names...)
		ctx.SetParamValues(values...)
	}
	if c.user != nil {
		middleware.SetUser(ctx, c.user)
	}

	if err := fn(ctx); err != nil {
		env.e.HTTPErrorHandler(err, ctx)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["message"]
}

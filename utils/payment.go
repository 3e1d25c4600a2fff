package utils

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	sandboxGatewayURL = "https://sandbox.sslcommerz.com"
	liveGatewayURL    = "https://securepay.sslcommerz.com"
	sessionPath       = "/gwprocess/v4/api.php"
)

var (
	ErrGatewayRejected  = errors.New("Payment gateway did not return a checkout URL")
	ErrInvalidSignature = errors.New("payment callback signature is invalid")
)

// GatewayConfig configures the SSLCommerz client. BaseURL overrides the
// sandbox/live host.
type GatewayConfig struct {
	StoreID       string
	StorePassword string
	Live          bool
	BaseURL       string
	HTTPClient    *http.Client
}

// PaymentGateway talks to the SSLCommerz hosted checkout.
type PaymentGateway struct {
	storeID       string
	storePassword string
	baseURL       string
	client        *http.Client
	log           *zap.Logger
}

func NewPaymentGateway(cfg GatewayConfig, log *zap.Logger) *PaymentGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sandboxGatewayURL
		if cfg.Live {
			baseURL = liveGatewayURL
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &PaymentGateway{
		storeID:       cfg.StoreID,
		storePassword: cfg.StorePassword,
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        client,
		log:           log,
	}
}

// SessionRequest describes the checkout session opened for one order.
type SessionRequest struct {
	TransactionID string
	OrderRef      string
	TotalAmount   float64
	Currency      string
	SuccessURL    string
	FailURL       string
	CancelURL     string
	IPNURL        string
	CustomerName  string
	CustomerEmail string
	Shipping      models.ShippingAddress
}

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// InitSession asks the gateway for a hosted checkout page.
func (g *PaymentGateway) InitSession(ctx context.Context, req SessionRequest) (*models.PaymentSession, error) {
	form := g.sessionForm(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+sessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.log.Error("Payment gateway request failed", zap.Error(err))
		return nil, fmt.Errorf("payment gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	if !strings.EqualFold(body.Status, "SUCCESS") || body.GatewayPageURL == "" {
		g.log.Warn("Payment gateway rejected session",
			zap.String("tran_id", req.TransactionID),
			zap.String("status", body.Status),
			zap.String("reason", body.FailedReason),
		)
		return nil, ErrGatewayRejected
	}

	g.log.Info("Payment session opened",
		zap.String("tran_id", req.TransactionID),
		zap.String("order", req.OrderRef),
	)

	return &models.PaymentSession{
		TransactionID:  req.TransactionID,
		GatewayPageURL: body.GatewayPageURL,
		SessionKey:     body.SessionKey,
	}, nil
}

func (g *PaymentGateway) sessionForm(req SessionRequest) url.Values {
	addr := req.Shipping
	form := url.Values{}

	form.Set("store_id", g.storeID)
	form.Set("store_passwd", g.storePassword)
	form.Set("total_amount", decimal.NewFromFloat(req.TotalAmount).StringFixed(2))
	form.Set("currency", req.Currency)
	form.Set("tran_id", req.TransactionID)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("ipn_url", req.IPNURL)
	form.Set("value_a", req.OrderRef)

	form.Set("shipping_method", "Courier")
	form.Set("product_name", "Books")
	form.Set("product_category", "Islamic Books")
	form.Set("product_profile", "general")

	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_add1", addr.Address)
	form.Set("cus_add2", addr.Address)
	form.Set("cus_city", addr.City)
	form.Set("cus_state", addr.City)
	form.Set("cus_postcode", addr.PostalCode)
	form.Set("cus_country", addr.Country)
	form.Set("cus_phone", addr.PhoneNumber)
	form.Set("cus_fax", addr.PhoneNumber)

	form.Set("ship_name", req.CustomerName)
	form.Set("ship_add1", addr.Address)
	form.Set("ship_add2", addr.Address)
	form.Set("ship_city", addr.City)
	form.Set("ship_state", addr.City)
	form.Set("ship_postcode", addr.PostalCode)
	form.Set("ship_country", addr.Country)

	return form
}

// VerifyCallback checks the verify_sign the gateway attaches to callbacks.
// The fields listed in verify_key, plus store_passwd as md5(password), are
// sorted by name, joined as k=v pairs with '&' and MD5 hashed.
func (g *PaymentGateway) VerifyCallback(form url.Values) error {
	sign := form.Get("verify_sign")
	keys := form.Get("verify_key")
	if sign == "" || keys == "" {
		return ErrInvalidSignature
	}

	if storeID := form.Get("store_id"); storeID != "" && storeID != g.storeID {
		return ErrInvalidSignature
	}

	expected := callbackSignature(form, strings.Split(keys, ","), g.storePassword)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(sign))) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

func callbackSignature(form url.Values, keys []string, storePassword string) string {
	fields := map[string]string{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		fields[k] = form.Get(k)
	}
	fields["store_passwd"] = md5Hex(storePassword)

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, k+"="+fields[k])
	}
	return md5Hex(strings.Join(pairs, "&"))
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ParseCallback extracts the fields the order lifecycle cares about.
func ParseCallback(form url.Values) models.PaymentCallback {
	return models.PaymentCallback{
		TransactionID: form.Get("tran_id"),
		ValidationID:  form.Get("val_id"),
		Status:        form.Get("status"),
		TransactionAt: form.Get("tran_date"),
		StoreID:       form.Get("store_id"),
		Amount:        form.Get("amount"),
		OrderRef:      form.Get("value_a"),
	}
}

package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *PaymentGateway {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewPaymentGateway(GatewayConfig{
		StoreID:       "teststore",
		StorePassword: "teststore@ssl",
		BaseURL:       srv.URL,
	}, zap.NewNop())
}

func sampleSession() SessionRequest {
	return SessionRequest{
		TransactionID: "TRANS_1700000000000",
		OrderRef:      "65f1c0ffee0000000000abcd",
		TotalAmount:   254,
		Currency:      "BDT",
		SuccessURL:    "http://api.test/api/orders/payment/success/65f1c0ffee0000000000abcd",
		FailURL:       "http://api.test/api/orders/payment/fail/65f1c0ffee0000000000abcd",
		CancelURL:     "http://api.test/api/orders/payment/cancel/65f1c0ffee0000000000abcd",
		IPNURL:        "http://api.test/api/orders/payment/ipn",
		CustomerName:  "Abdullah",
		CustomerEmail: "abdullah@example.com",
		Shipping: models.ShippingAddress{
			Address:     "12 Mirpur Road",
			City:        "Dhaka",
			PostalCode:  "1205",
			Country:     "Bangladesh",
			PhoneNumber: "01700000000",
		},
	}
}

func TestInitSessionSendsOrderDetails(t *testing.T) {
	var got url.Values
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sessionPath, r.URL.Path)
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"SUCCESS","sessionkey":"abc","GatewayPageURL":"https://sandbox.sslcommerz.com/EasyCheckOut/abc"}`))
	})

	session, err := gw.InitSession(context.Background(), sampleSession())
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.sslcommerz.com/EasyCheckOut/abc", session.GatewayPageURL)
	assert.Equal(t, "abc", session.SessionKey)
	assert.Equal(t, "TRANS_1700000000000", session.TransactionID)

	assert.Equal(t, "teststore", got.Get("store_id"))
	assert.Equal(t, "254.00", got.Get("total_amount"))
	assert.Equal(t, "BDT", got.Get("currency"))
	assert.Equal(t, "65f1c0ffee0000000000abcd", got.Get("value_a"))
	assert.Equal(t, "Books", got.Get("product_name"))
	assert.Equal(t, "Islamic Books", got.Get("product_category"))
	assert.Equal(t, "Abdullah", got.Get("cus_name"))
	assert.Equal(t, "Dhaka", got.Get("ship_city"))
	assert.Equal(t, "01700000000", got.Get("cus_phone"))
}

func TestInitSessionRejected(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"FAILED","failedreason":"Store Credential Error"}`))
	})

	_, err := gw.InitSession(context.Background(), sampleSession())
	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestInitSessionTransportFailure(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := gw.InitSession(context.Background(), sampleSession())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrGatewayRejected)
}

func signedCallback(password string) url.Values {
	form := url.Values{
		"tran_id":    {"TRANS_1700000000000"},
		"val_id":     {"230101abc"},
		"amount":     {"254.00"},
		"status":     {"VALID"},
		"tran_date":  {"2024-01-01 12:00:00"},
		"store_id":   {"teststore"},
		"value_a":    {"65f1c0ffee0000000000abcd"},
		"verify_key": {"amount,status,store_id,tran_date,tran_id,val_id,value_a"},
	}
	keys := []string{"amount", "status", "store_id", "tran_date", "tran_id", "val_id", "value_a"}
	form.Set("verify_sign", callbackSignature(form, keys, password))
	return form
}

func TestVerifyCallback(t *testing.T) {
	gw := NewPaymentGateway(GatewayConfig{StoreID: "teststore", StorePassword: "teststore@ssl"}, zap.NewNop())

	assert.NoError(t, gw.VerifyCallback(signedCallback("teststore@ssl")))
}

func TestVerifyCallbackRejectsTampering(t *testing.T) {
	gw := NewPaymentGateway(GatewayConfig{StoreID: "teststore", StorePassword: "teststore@ssl"}, zap.NewNop())

	forged := signedCallback("wrong-password")
	assert.ErrorIs(t, gw.VerifyCallback(forged), ErrInvalidSignature)

	tampered := signedCallback("teststore@ssl")
	tampered.Set("amount", "1.00")
	assert.ErrorIs(t, gw.VerifyCallback(tampered), ErrInvalidSignature)

	otherStore := signedCallback("teststore@ssl")
	otherStore.Set("store_id", "elsewhere")
	assert.ErrorIs(t, gw.VerifyCallback(otherStore), ErrInvalidSignature)

	unsigned := signedCallback("teststore@ssl")
	unsigned.Del("verify_sign")
	assert.ErrorIs(t, gw.VerifyCallback(unsigned), ErrInvalidSignature)
}

func TestCallbackSignatureIgnoresKeyOrder(t *testing.T) {
	form := signedCallback("pw")
	a := callbackSignature(form, []string{"tran_id", "amount", "status"}, "pw")
	b := callbackSignature(form, []string{"status", " amount", "tran_id", ""}, "pw")

	assert.Equal(t, a, b)
}

func TestParseCallback(t *testing.T) {
	cb := ParseCallback(signedCallback("pw"))

	assert.Equal(t, "TRANS_1700000000000", cb.TransactionID)
	assert.Equal(t, "VALID", cb.Status)
	assert.Equal(t, "65f1c0ffee0000000000abcd", cb.OrderRef)
	assert.Equal(t, models.PaymentResult{
		ID:           "TRANS_1700000000000",
		Status:       "VALID",
		UpdateTime:   "2024-01-01 12:00:00",
		EmailAddress: "teststore",
	}, cb.Result())
}

func TestNewPaymentGatewayPicksHost(t *testing.T) {
	sandbox := NewPaymentGateway(GatewayConfig{}, zap.NewNop())
	live := NewPaymentGateway(GatewayConfig{Live: true}, zap.NewNop())

	assert.Equal(t, sandboxGatewayURL, sandbox.baseURL)
	assert.Equal(t, liveGatewayURL, live.baseURL)
}

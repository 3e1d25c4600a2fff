package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/events"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	outcomeSuccess  = "success"
	outcomeFail     = "fail"
	outcomeCancel   = "cancel"
	outcomeReplay   = "replay"
	outcomeRejected = "rejected"
)

var errTransactionMismatch = errors.New("transaction id does not match the order")

// newTransactionID returns a 30 character id, the gateway's tran_id limit.
func newTransactionID() string {
	return "TRANS_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// InitiatePayment opens a hosted checkout session for an unpaid order and
// returns the page the buyer should be sent to.
func (h *Handler) InitiatePayment(c echo.Context) error {
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
	if order.IsPaid {
		return echo.NewHTTPError(http.StatusBadRequest, "Order already paid")
	}

	tranID := newTransactionID()
	if err := h.orders.SetTransactionID(ctx, id, tranID); err != nil {
		return err
	}

	session, err := h.gateway.InitSession(ctx, h.sessionRequest(order, user, tranID))
	if err != nil {
		return err
	}

	h.log.Info("Payment initiated",
		zap.String("order_id", id.Hex()),
		zap.String("tran_id", tranID),
	)
	return c.JSON(http.StatusOK, map[string]string{"url": session.GatewayPageURL})
}

func (h *Handler) sessionRequest(order *models.Order, user *models.User, tranID string) utils.SessionRequest {
	name, email := user.Name, user.Email
	if order.Owner != nil {
		name, email = order.Owner.Name, order.Owner.Email
	}

	backend := strings.TrimRight(h.opts.BackendURL, "/")
	id := order.ID.Hex()

	return utils.SessionRequest{
		TransactionID: tranID,
		OrderRef:      id,
		TotalAmount:   order.TotalPrice,
		Currency:      h.opts.Currency,
		SuccessURL:    fmt.Sprintf("%s/api/orders/payment/success/%s", backend, id),
		FailURL:       fmt.Sprintf("%s/api/orders/payment/fail/%s", backend, id),
		CancelURL:     fmt.Sprintf("%s/api/orders/payment/cancel/%s", backend, id),
		IPNURL:        backend + "/api/orders/payment/ipn",
		CustomerName:  name,
		CustomerEmail: email,
		Shipping:      order.ShippingAddress,
	}
}

// PaymentSuccess handles the gateway's success redirect. The order is marked
// paid at most once; any verification failure sends the buyer to the failure
// page without touching the order.
func (h *Handler) PaymentSuccess(c echo.Context) error {
	rawID := c.Param("id")
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return database.ErrOrderNotFound
	}

	form, err := c.FormParams()
	if err != nil {
		form = url.Values{}
	}
	callback := utils.ParseCallback(form)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	if err := h.authenticate(form, callback, order); err != nil {
		h.log.Warn("Rejected payment callback",
			zap.String("order_id", rawID),
			zap.String("tran_id", callback.TransactionID),
			zap.Error(err),
		)
		h.metrics.PaymentOutcome(outcomeRejected)
		return c.Redirect(http.StatusFound, h.frontendOrderURL(rawID, outcomeFail))
	}

	paid, err := h.markPaid(ctx, id, callback)
	if err != nil && !errors.Is(err, database.ErrOrderAlreadyPaid) {
		return err
	}
	if paid {
		h.metrics.PaymentOutcome(outcomeSuccess)
	} else {
		h.metrics.PaymentOutcome(outcomeReplay)
	}

	return c.Redirect(http.StatusFound, h.frontendOrderURL(rawID, outcomeSuccess))
}

// PaymentFail and PaymentCancel only redirect; the order stays unpaid.
func (h *Handler) PaymentFail(c echo.Context) error {
	h.metrics.PaymentOutcome(outcomeFail)
	return c.Redirect(http.StatusFound, h.frontendOrderURL(c.Param("id"), outcomeFail))
}

func (h *Handler) PaymentCancel(c echo.Context) error {
	h.metrics.PaymentOutcome(outcomeCancel)
	return c.Redirect(http.StatusFound, h.frontendOrderURL(c.Param("id"), outcomeCancel))
}

// PaymentIPN handles the gateway's server-to-server notification. The order id
// travels in value_a.
func (h *Handler) PaymentIPN(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification")
	}
	callback := utils.ParseCallback(form)

	id, err := primitive.ObjectIDFromHex(callback.OrderRef)
	if err != nil {
		return database.ErrOrderNotFound
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	if err := h.authenticate(form, callback, order); err != nil {
		h.log.Warn("Rejected payment notification",
			zap.String("order_id", callback.OrderRef),
			zap.String("tran_id", callback.TransactionID),
			zap.Error(err),
		)
		h.metrics.PaymentOutcome(outcomeRejected)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification")
	}

	status := strings.ToUpper(callback.Status)
	if status != "VALID" && status != "VALIDATED" {
		h.log.Info("Payment notification without a valid status",
			zap.String("order_id", callback.OrderRef),
			zap.String("status", callback.Status),
		)
		h.metrics.PaymentOutcome(outcomeFail)
		return c.JSON(http.StatusOK, map[string]string{"message": "Notification received"})
	}

	paid, err := h.markPaid(ctx, id, callback)
	if err != nil && !errors.Is(err, database.ErrOrderAlreadyPaid) {
		return err
	}
	if !paid {
		h.metrics.PaymentOutcome(outcomeReplay)
		return c.JSON(http.StatusOK, map[string]string{"message": "Order already paid"})
	}

	h.metrics.PaymentOutcome(outcomeSuccess)
	return c.JSON(http.StatusOK, map[string]string{"message": "Order marked as paid"})
}

// authenticate checks the gateway signature and that the callback belongs to
// the transaction opened for this order. It is a no-op when verification is
// disabled.
func (h *Handler) authenticate(form url.Values, callback models.PaymentCallback, order *models.Order) error {
	if !h.opts.VerifyCallbacks {
		return nil
	}
	if err := h.gateway.VerifyCallback(form); err != nil {
		return err
	}
	if !order.IssuedTransaction(callback.TransactionID) {
		return errTransactionMismatch
	}
	return nil
}

// markPaid reports whether this call flipped the order to paid. A replay
// returns false with database.ErrOrderAlreadyPaid.
func (h *Handler) markPaid(ctx context.Context, id primitive.ObjectID, callback models.PaymentCallback) (bool, error) {
	order, err := h.orders.MarkPaid(ctx, id, callback.Result(), h.now())
	if errors.Is(err, database.ErrOrderAlreadyPaid) {
		h.log.Info("Order already paid", zap.String("order_id", id.Hex()))
		return false, err
	}
	if err != nil {
		return false, err
	}

	h.publish(ctx, events.EventOrderPaid, map[string]interface{}{
		"orderId":       order.ID.Hex(),
		"userId":        order.UserID.Hex(),
		"transactionId": callback.TransactionID,
		"totalPrice":    order.TotalPrice,
	})

	h.log.Info("Order paid",
		zap.String("order_id", order.ID.Hex()),
		zap.String("tran_id", callback.TransactionID),
	)
	return true, nil
}

func (h *Handler) frontendOrderURL(id, outcome string) string {
	return fmt.Sprintf("%s/order/%s?payment=%s",
		strings.TrimRight(h.opts.FrontendURL, "/"), url.PathEscape(id), outcome)
}

package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/teresa-solution/rent-payment-service/internal/model"
	"github.com/teresa-solution/rent-payment-service/internal/service"
)

const maxWebhookBody = 1 << 20

// PaymentLifecycle is the payment behaviour the HTTP layer depends on
type PaymentLifecycle interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderSummary, error)
	VerifyAndCapturePayment(ctx context.Context, orderID, paymentID, signature string) (*model.Payment, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (service.WebhookOutcome, error)
	GetPaymentByID(ctx context.Context, id int64) (*model.PaymentDetail, error)
	GetAllPayments(ctx context.Context, filter model.PaymentFilter) (*model.PaymentPage, error)
	GetPaymentsByTenant(ctx context.Context, tenantID int64, filter model.PaymentFilter) (*model.PaymentPage, error)
	GetPaymentsByProperty(ctx context.Context, propertyID int64, filter model.PaymentFilter) (*model.PaymentPage, error)
	InitiateRefund(ctx context.Context, paymentID int64, reason string) (*service.RefundResult, error)
	CancelPayment(ctx context.Context, paymentID int64, reason string) (*model.Payment, error)
}

type PaymentHandler struct {
	payments PaymentLifecycle
}

func NewPaymentHandler(payments PaymentLifecycle) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createOrderRequest struct {
	TenantID    int64           `json:"tenantId"`
	PropertyID  int64           `json:"propertyId"`
	RoomID      int64           `json:"roomId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// verifyRequest accepts the checkout handler's field names as well as camelCase ones
type verifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId"`
	PaymentID         string `json:"paymentId"`
	Signature         string `json:"signature"`
}

type paymentActionRequest struct {
	PaymentID int64  `json:"paymentId"`
	Reason    string `json:"reason"`
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if isTenant(c) {
		req.TenantID = claimsFrom(c).UserID
	}

	summary, err := h.payments.CreateOrder(c.Request().Context(), service.CreateOrderRequest{
		TenantID:    req.TenantID,
		PropertyID:  req.PropertyID,
		RoomID:      req.RoomID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Order created", summary)
}

func (h *PaymentHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	payment, err := h.payments.VerifyAndCapturePayment(c.Request().Context(),
		firstNonEmpty(req.RazorpayOrderID, req.OrderID),
		firstNonEmpty(req.RazorpayPaymentID, req.PaymentID),
		firstNonEmpty(req.RazorpaySignature, req.Signature))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Payment verified", payment)
}

// Webhook authenticates with the gateway signature, not a bearer token
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return respond(c, http.StatusBadRequest, "Failed to read request body", nil)
	}
	signature := c.Request().Header.Get("X-Razorpay-Signature")

	outcome, err := h.payments.HandleWebhook(c.Request().Context(), body, signature)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected webhook")
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}
	return respond(c, http.StatusOK, "Webhook processed", map[string]string{"outcome": string(outcome)})
}

func (h *PaymentHandler) Get(c echo.Context) error {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid payment id", nil)
	}
	payment, err := h.payments.GetPaymentByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if isTenant(c) && payment.TenantID != claimsFrom(c).UserID {
		return respond(c, http.StatusNotFound, (&service.NotFoundError{Entity: "payment", ID: c.Param("id")}).Error(), nil)
	}
	return respond(c, http.StatusOK, "Payment fetched", payment)
}

func (h *PaymentHandler) List(c echo.Context) error {
	var filter model.PaymentFilter
	if err := c.Bind(&filter); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	page, err := h.payments.GetAllPayments(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Payments fetched", page)
}

func (h *PaymentHandler) ListByTenant(c echo.Context) error {
	var filter model.PaymentFilter
	if err := c.Bind(&filter); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	tenantID := filter.TenantID
	if isTenant(c) {
		tenantID = claimsFrom(c).UserID
	}
	page, err := h.payments.GetPaymentsByTenant(c.Request().Context(), tenantID, filter)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Payments fetched", page)
}

func (h *PaymentHandler) ListByProperty(c echo.Context) error {
	var filter model.PaymentFilter
	if err := c.Bind(&filter); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	page, err := h.payments.GetPaymentsByProperty(c.Request().Context(), filter.PropertyID, filter)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Payments fetched", page)
}

func (h *PaymentHandler) Refund(c echo.Context) error {
	var req paymentActionRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	result, err := h.payments.InitiateRefund(c.Request().Context(), req.PaymentID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Refund initiated", result)
}

func (h *PaymentHandler) Cancel(c echo.Context) error {
	var req paymentActionRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if isTenant(c) {
		existing, err := h.payments.GetPaymentByID(c.Request().Context(), req.PaymentID)
		if err != nil {
			return respondError(c, err)
		}
		if existing.TenantID != claimsFrom(c).UserID {
			return respond(c, http.StatusNotFound, (&service.NotFoundError{Entity: "payment", ID: strconv.FormatInt(req.PaymentID, 10)}).Error(), nil)
		}
	}
	payment, err := h.payments.CancelPayment(c.Request().Context(), req.PaymentID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, "Payment cancelled", payment)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

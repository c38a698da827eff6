package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/teresa-solution/rent-payment-service/internal/crypto"
	"github.com/teresa-solution/rent-payment-service/internal/gateway"
	"github.com/teresa-solution/rent-payment-service/internal/model"
	"github.com/teresa-solution/rent-payment-service/internal/monitoring"
	"github.com/teresa-solution/rent-payment-service/internal/store"
)

// Gateway is the payment provider used by PaymentService
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*gateway.PaymentInfo, error)
	RefundPayment(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*gateway.Refund, error)
}

// EventSink accepts payment events for asynchronous delivery
type EventSink interface {
	Enqueue(event model.PaymentEvent) bool
}

type PaymentConfig struct {
	KeySecret     string
	WebhookSecret string
	ReceiptPrefix string
	Currency      string
}

type CreateOrderRequest struct {
	TenantID    int64           `json:"tenantId"`
	PropertyID  int64           `json:"propertyId"`
	RoomID      int64           `json:"roomId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// OrderSummary is what a checkout client needs to open the gateway widget
type OrderSummary struct {
	OrderID     string         `json:"orderId"`
	AmountMinor int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Receipt     string         `json:"receipt"`
	KeyID       string         `json:"keyId"`
	Payment     *model.Payment `json:"payment"`
}

type RefundResult struct {
	RefundID  string          `json:"refundId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	Payment   *model.Payment  `json:"payment"`
}

// WebhookOutcome describes what a webhook delivery did
type WebhookOutcome string

const (
	WebhookApplied   WebhookOutcome = "applied"
	WebhookStale     WebhookOutcome = "stale"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookUnhandled WebhookOutcome = "unhandled"
	WebhookError     WebhookOutcome = "error"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity map[string]interface{} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity map[string]interface{} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// PaymentService drives payments through the gateway-backed state machine
type PaymentService struct {
	store   store.PaymentStore
	gateway Gateway
	events  EventSink
	cfg     PaymentConfig
}

func NewPaymentService(store store.PaymentStore, gw Gateway, events EventSink, cfg PaymentConfig) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.ReceiptPrefix == "" {
		cfg.ReceiptPrefix = "rent_"
	}
	return &PaymentService{store: store, gateway: gw, events: events, cfg: cfg}
}

// CreateOrder opens a gateway order and records a Pending payment for it.
// Nothing is persisted when the gateway call fails.
func (s *PaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderSummary, error) {
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}

	receipt := newReceipt(s.cfg.ReceiptPrefix)
	amountMinor := model.MinorUnits(req.Amount)
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: amountMinor,
		Currency:    s.cfg.Currency,
		Receipt:     receipt,
		Notes: map[string]string{
			"tenantId":   formatID(req.TenantID),
			"propertyId": formatID(req.PropertyID),
			"roomId":     formatID(req.RoomID),
		},
	})
	if err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}

	payment := &model.Payment{
		TenantID:        req.TenantID,
		PropertyID:      req.PropertyID,
		RoomID:          req.RoomID,
		Amount:          req.Amount.Round(2),
		Currency:        s.cfg.Currency,
		Status:          model.PaymentPending,
		Description:     strings.TrimSpace(req.Description),
		Receipt:         receipt,
		RazorpayOrderID: order.ID,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("Failed to persist payment for gateway order")
		return nil, err
	}
	monitoring.PaymentTransitions.WithLabelValues(string(model.PaymentPending)).Inc()
	log.Info().Int64("payment_id", payment.ID).Str("order_id", order.ID).Str("receipt", receipt).Msg("Created payment order")

	if order.AmountMinor != 0 {
		amountMinor = order.AmountMinor
	}
	currency := s.cfg.Currency
	if order.Currency != "" {
		currency = order.Currency
	}
	return &OrderSummary{
		OrderID:     order.ID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		KeyID:       s.gateway.KeyID(),
		Payment:     payment,
	}, nil
}

func validateCreateOrder(req CreateOrderRequest) error {
	switch {
	case req.TenantID <= 0:
		return &ValidationError{Field: "tenantId", Reason: "must be positive"}
	case req.PropertyID <= 0:
		return &ValidationError{Field: "propertyId", Reason: "must be positive"}
	case req.RoomID <= 0:
		return &ValidationError{Field: "roomId", Reason: "must be positive"}
	case !req.Amount.IsPositive():
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	case model.MinorUnits(req.Amount) <= 0:
		return &ValidationError{Field: "amount", Reason: "is below the smallest currency unit"}
	}
	return nil
}

// VerifyAndCapturePayment checks the checkout signature, then records the gateway's view of the payment.
// Failures after the signature check mark a Pending payment Failed.
func (s *PaymentService) VerifyAndCapturePayment(ctx context.Context, orderID, paymentID, signature string) (*model.Payment, error) {
	orderID, paymentID = strings.TrimSpace(orderID), strings.TrimSpace(paymentID)
	if orderID == "" {
		return nil, &ValidationError{Field: "orderId", Reason: "is required"}
	}
	if paymentID == "" {
		return nil, &ValidationError{Field: "paymentId", Reason: "is required"}
	}
	if !crypto.Verify(s.cfg.KeySecret, crypto.PaymentPayload(orderID, paymentID), signature) {
		log.Warn().Str("order_id", orderID).Msg("Payment signature mismatch")
		return nil, &SignatureError{Kind: "payment"}
	}

	payment, err := s.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &NotFoundError{Entity: "payment", ID: orderID}
	}
	if payment.RazorpayPaymentID != nil && *payment.RazorpayPaymentID != paymentID {
		log.Warn().Int64("payment_id", payment.ID).Str("order_id", orderID).
			Str("linked_gateway_payment_id", *payment.RazorpayPaymentID).Str("gateway_payment_id", paymentID).
			Msg("Verify for a gateway payment other than the linked one")
		return nil, &InvalidStateError{
			Op:     "verify payment",
			Status: string(payment.Status),
			Reason: fmt.Sprintf("order is already linked to gateway payment %s", *payment.RazorpayPaymentID),
		}
	}

	info, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		s.markFailed(ctx, payment, "gateway fetch failed")
		return nil, &GatewayError{Op: "fetch payment", Err: err}
	}
	if info.OrderID != "" && info.OrderID != orderID {
		s.markFailed(ctx, payment, "gateway payment belongs to another order")
		return nil, &InvalidStateError{Op: "verify payment", Status: string(payment.Status), Reason: "gateway payment belongs to another order"}
	}

	target := model.PaymentAuthorized
	if strings.EqualFold(info.Status, "captured") {
		target = model.PaymentCaptured
	}
	t := model.NewTransition(target)
	t.RazorpayPaymentID = paymentID
	t.RazorpaySignature = strings.TrimSpace(signature)
	if info.Method != "" {
		t.PaymentMethod = model.NormalizeMethod(info.Method)
		t.PaymentMethodDetails = info.Method
	}

	updated, err := s.store.TransitionPayment(ctx, payment.ID, t)
	if errors.Is(err, store.ErrTransitionRejected) {
		return s.resolveRejected(ctx, orderID, target)
	}
	if err != nil {
		s.markFailed(ctx, payment, "store update failed")
		return nil, err
	}

	s.recordTransition(payment.Status, updated, "")
	log.Info().Int64("payment_id", updated.ID).Str("order_id", orderID).Str("status", string(updated.Status)).Msg("Verified payment")
	return updated, nil
}

// resolveRejected handles a verify write that lost to a concurrent transition.
// A payment already at or past the target is returned as is.
func (s *PaymentService) resolveRejected(ctx context.Context, orderID string, target model.PaymentStatus) (*model.Payment, error) {
	current, err := s.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &NotFoundError{Entity: "payment", ID: orderID}
	}
	switch current.Status {
	case model.PaymentCaptured, model.PaymentRefunded:
		return current, nil
	}
	return nil, &InvalidStateError{Op: "verify payment", Status: string(current.Status)}
}

// markFailed moves a Pending payment to Failed; errors are logged and alerted, never returned
func (s *PaymentService) markFailed(ctx context.Context, payment *model.Payment, reason string) {
	t := model.Transition{From: []model.PaymentStatus{model.PaymentPending}, To: model.PaymentFailed}
	updated, err := s.store.TransitionPayment(ctx, payment.ID, t)
	if errors.Is(err, store.ErrTransitionRejected) {
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Msg("Failed to mark payment as failed")
		monitoring.Alert("payment failure cleanup failed", map[string]string{
			"payment_id": formatID(payment.ID),
			"reason":     reason,
		})
		return
	}
	log.Warn().Int64("payment_id", payment.ID).Str("reason", reason).Msg("Marked payment as failed")
	s.recordTransition(payment.Status, updated, reason)
}

// HandleWebhook authenticates a gateway callback and applies it.
// Only signature and body errors are returned; processing problems are logged and reported in the outcome.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookOutcome, error) {
	if !crypto.Verify(s.cfg.WebhookSecret, body, signature) {
		monitoring.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		log.Warn().Msg("Webhook signature mismatch")
		return "", &SignatureError{Kind: "webhook"}
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		monitoring.WebhookEvents.WithLabelValues("unknown", "bad_body").Inc()
		return "", &ValidationError{Field: "body", Reason: err.Error()}
	}

	outcome := s.dispatchWebhook(ctx, env)
	monitoring.WebhookEvents.WithLabelValues(env.Event, string(outcome)).Inc()
	log.Info().Str("event", env.Event).Str("outcome", string(outcome)).Msg("Processed webhook")
	return outcome, nil
}

func (s *PaymentService) dispatchWebhook(ctx context.Context, env webhookEnvelope) WebhookOutcome {
	entity := gateway.ParsePayment(env.Payload.Payment.Entity)

	var (
		payment *model.Payment
		target  model.PaymentStatus
		err     error
	)
	switch env.Event {
	case "payment.authorized":
		target = model.PaymentAuthorized
		payment, err = s.findForPaymentEvent(ctx, entity)
	case "payment.captured":
		target = model.PaymentCaptured
		payment, err = s.findForPaymentEvent(ctx, entity)
	case "payment.failed":
		target = model.PaymentFailed
		payment, err = s.findByOrderID(ctx, entity.OrderID)
	case "order.paid":
		target = model.PaymentCaptured
		orderID := stringValue(env.Payload.Order.Entity, "id")
		if orderID == "" {
			orderID = entity.OrderID
		}
		payment, err = s.findByOrderID(ctx, orderID)
	default:
		log.Debug().Str("event", env.Event).Msg("Ignoring unhandled webhook event")
		return WebhookUnhandled
	}

	if err != nil {
		log.Error().Err(err).Str("event", env.Event).Msg("Failed to look up payment for webhook")
		monitoring.Alert("webhook lookup failed", map[string]string{"event": env.Event})
		return WebhookError
	}
	if payment == nil {
		log.Warn().Str("event", env.Event).Str("gateway_payment_id", entity.ID).Str("order_id", entity.OrderID).
			Msg("No payment matches webhook, ignoring")
		return WebhookIgnored
	}

	t := model.NewTransition(target)
	if target == model.PaymentAuthorized || target == model.PaymentCaptured {
		t.RazorpayPaymentID = entity.ID
	}
	if entity.Method != "" {
		t.PaymentMethod = model.NormalizeMethod(entity.Method)
		t.PaymentMethodDetails = entity.Method
	}
	updated, err := s.store.TransitionPayment(ctx, payment.ID, t)
	if errors.Is(err, store.ErrTransitionRejected) {
		log.Info().Int64("payment_id", payment.ID).Str("event", env.Event).Str("status", string(payment.Status)).
			Msg("Dropping stale webhook transition")
		return WebhookStale
	}
	if err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Str("event", env.Event).Msg("Failed to apply webhook")
		monitoring.Alert("webhook transition failed", map[string]string{
			"payment_id": formatID(payment.ID),
			"event":      env.Event,
		})
		return WebhookError
	}

	s.recordTransition(payment.Status, updated, "")
	return WebhookApplied
}

// findForPaymentEvent looks up by gateway payment id, falling back to the entity's order id
// for payments the verify path has not linked yet.
func (s *PaymentService) findForPaymentEvent(ctx context.Context, entity *gateway.PaymentInfo) (*model.Payment, error) {
	if entity.ID != "" {
		payment, err := s.store.GetPaymentByGatewayPaymentID(ctx, entity.ID)
		if err != nil || payment != nil {
			return payment, err
		}
	}
	return s.findByOrderID(ctx, entity.OrderID)
}

func (s *PaymentService) findByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	if orderID == "" {
		return nil, nil
	}
	return s.store.GetPaymentByOrderID(ctx, orderID)
}

func (s *PaymentService) GetPaymentByID(ctx context.Context, id int64) (*model.PaymentDetail, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Reason: "must be positive"}
	}
	payment, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &NotFoundError{Entity: "payment", ID: formatID(id)}
	}
	return payment, nil
}

// currentPayment reads the authoritative row for state guards; cached reads may be stale
func (s *PaymentService) currentPayment(ctx context.Context, id int64) (*model.Payment, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Reason: "must be positive"}
	}
	payment, err := s.store.GetPaymentRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, &NotFoundError{Entity: "payment", ID: formatID(id)}
	}
	return payment, nil
}

func (s *PaymentService) GetAllPayments(ctx context.Context, filter model.PaymentFilter) (*model.PaymentPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, &ValidationError{Field: "from", Reason: "must not be after to"}
	}
	filter = filter.Normalize()
	payments, total, err := s.store.ListPayments(ctx, filter)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []model.PaymentDetail{}
	}
	return &model.PaymentPage{
		Data:       payments,
		Pagination: model.NewPagination(total, filter.Page, filter.Limit),
	}, nil
}

func (s *PaymentService) GetPaymentsByTenant(ctx context.Context, tenantID int64, filter model.PaymentFilter) (*model.PaymentPage, error) {
	if tenantID <= 0 {
		return nil, &ValidationError{Field: "tenantId", Reason: "must be positive"}
	}
	filter.TenantID = tenantID
	return s.GetAllPayments(ctx, filter)
}

func (s *PaymentService) GetPaymentsByProperty(ctx context.Context, propertyID int64, filter model.PaymentFilter) (*model.PaymentPage, error) {
	if propertyID <= 0 {
		return nil, &ValidationError{Field: "propertyId", Reason: "must be positive"}
	}
	filter.PropertyID = propertyID
	return s.GetAllPayments(ctx, filter)
}

// InitiateRefund fully refunds a Captured payment.
// The state guard runs before any gateway call.
func (s *PaymentService) InitiateRefund(ctx context.Context, paymentID int64, reason string) (*RefundResult, error) {
	payment, err := s.currentPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentCaptured {
		return nil, &InvalidStateError{Op: "refund", Status: string(payment.Status)}
	}
	if payment.RazorpayPaymentID == nil || *payment.RazorpayPaymentID == "" {
		return nil, &InvalidStateError{Op: "refund", Status: string(payment.Status), Reason: "payment has no gateway payment id"}
	}

	notes := map[string]string{"paymentId": formatID(payment.ID)}
	if reason = strings.TrimSpace(reason); reason != "" {
		notes["reason"] = reason
	}
	refund, err := s.gateway.RefundPayment(ctx, *payment.RazorpayPaymentID, model.MinorUnits(payment.Amount), notes)
	if err != nil {
		return nil, &GatewayError{Op: "refund", Err: err}
	}

	updated, err := s.store.TransitionPayment(ctx, payment.ID, model.NewTransition(model.PaymentRefunded))
	if errors.Is(err, store.ErrTransitionRejected) {
		log.Error().Int64("payment_id", payment.ID).Str("refund_id", refund.ID).Msg("Payment left Captured while refund was issued")
		monitoring.Alert("refund raced another transition", map[string]string{
			"payment_id": formatID(payment.ID),
			"refund_id":  refund.ID,
		})
		return nil, &InvalidStateError{Op: "refund", Status: string(payment.Status), Reason: "payment is no longer Captured"}
	}
	if err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Str("refund_id", refund.ID).Msg("Refund issued but payment status not updated")
		monitoring.Alert("refund status update failed", map[string]string{
			"payment_id": formatID(payment.ID),
			"refund_id":  refund.ID,
		})
		return nil, err
	}
	s.recordTransition(payment.Status, updated, reason)
	log.Info().Int64("payment_id", payment.ID).Str("refund_id", refund.ID).Str("reason", reason).Msg("Refunded payment")

	currency := refund.Currency
	if currency == "" {
		currency = payment.Currency
	}
	return &RefundResult{
		RefundID:  refund.ID,
		Amount:    model.MajorUnits(refund.AmountMinor),
		Currency:  currency,
		Status:    refund.Status,
		CreatedAt: refund.CreatedAt,
		Payment:   updated,
	}, nil
}

// CancelPayment abandons a Pending payment. The reason is logged and published, not stored.
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID int64, reason string) (*model.Payment, error) {
	current, err := s.currentPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if current.Status != model.PaymentPending {
		return nil, &InvalidStateError{Op: "cancel", Status: string(current.Status)}
	}

	t := model.Transition{From: []model.PaymentStatus{model.PaymentPending}, To: model.PaymentFailed}
	updated, err := s.store.TransitionPayment(ctx, paymentID, t)
	if errors.Is(err, store.ErrTransitionRejected) {
		return nil, &InvalidStateError{Op: "cancel", Status: string(current.Status), Reason: "payment is no longer Pending"}
	}
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	log.Info().Int64("payment_id", paymentID).Str("reason", reason).Msg("Cancelled payment")
	monitoring.PaymentTransitions.WithLabelValues(string(updated.Status)).Inc()
	s.publish(model.NewPaymentEvent(model.EventPaymentCancelled, updated, reason))
	return updated, nil
}

// recordTransition counts a status change and publishes its event; no-op writes are skipped
func (s *PaymentService) recordTransition(from model.PaymentStatus, updated *model.Payment, reason string) {
	if updated == nil || from == updated.Status {
		return
	}
	monitoring.PaymentTransitions.WithLabelValues(string(updated.Status)).Inc()

	switch updated.Status {
	case model.PaymentCaptured:
		s.publish(model.NewPaymentEvent(model.EventPaymentCaptured, updated, reason))
	case model.PaymentFailed:
		s.publish(model.NewPaymentEvent(model.EventPaymentFailed, updated, reason))
	case model.PaymentRefunded:
		s.publish(model.NewPaymentEvent(model.EventPaymentRefunded, updated, reason))
	}
}

func (s *PaymentService) publish(event model.PaymentEvent) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(event)
}

// newReceipt returns prefix + unix millis + "_" + six random characters
func newReceipt(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return prefix + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func stringValue(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/rent-payment-service/internal/monitoring"
)

var (
	ErrOrderCreationFailed = errors.New("failed to create order")
	ErrPaymentFetchFailed  = errors.New("failed to fetch payment")
	ErrRefundFailed        = errors.New("failed to refund payment")
)

// OrderRequest describes a gateway order; amounts are in minor units (paise)
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	Status      string
}

// PaymentInfo is the live gateway view of a payment
type PaymentInfo struct {
	ID          string
	OrderID     string
	Status      string
	Method      string
	AmountMinor int64
	Currency    string
}

type Refund struct {
	ID          string
	PaymentID   string
	AmountMinor int64
	Currency    string
	Status      string
	CreatedAt   time.Time
}

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Config struct {
	KeyID     string
	KeySecret string
}

// Client wraps the Razorpay SDK with typed requests and responses
type Client struct {
	orders   orderAPI
	payments paymentAPI
	keyID    string
}

func NewClient(config Config) *Client {
	if config.KeyID == "" || config.KeySecret == "" {
		log.Warn().Msg("Razorpay credentials are empty; gateway calls will fail")
	} else {
		log.Info().Str("key_id", MaskKey(config.KeyID)).Msg("Initializing Razorpay client")
	}
	rp := razorpay.NewClient(config.KeyID, config.KeySecret)
	return &Client{orders: rp.Order, payments: rp.Payment, keyID: config.KeyID}
}

// KeyID is the public key handed to checkout clients
func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	data := map[string]interface{}{
		"amount":          req.AmountMinor,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	done := observe("create_order")
	resp, err := c.orders.Create(data, nil)
	done(err)
	if err != nil {
		log.Error().Err(err).Str("receipt", req.Receipt).Msg("Failed to create Razorpay order")
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	order := parseOrder(resp)
	if order.ID == "" {
		return nil, fmt.Errorf("%w: response carries no order id", ErrOrderCreationFailed)
	}
	log.Info().Str("order_id", order.ID).Str("receipt", order.Receipt).Msg("Created Razorpay order")
	return order, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	done := observe("fetch_payment")
	resp, err := c.payments.Fetch(paymentID, nil, nil)
	done(err)
	if err != nil {
		log.Error().Err(err).Str("gateway_payment_id", paymentID).Msg("Failed to fetch Razorpay payment")
		return nil, fmt.Errorf("%w: %v", ErrPaymentFetchFailed, err)
	}
	return ParsePayment(resp), nil
}

// RefundPayment refunds amountMinor of the payment; callers pass the captured amount for a full refund.
func (c *Client) RefundPayment(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*Refund, error) {
	data := map[string]interface{}{}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	done := observe("refund")
	resp, err := c.payments.Refund(paymentID, int(amountMinor), data, nil)
	done(err)
	if err != nil {
		log.Error().Err(err).Str("gateway_payment_id", paymentID).Msg("Failed to refund Razorpay payment")
		return nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}
	return parseRefund(resp), nil
}

func observe(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		monitoring.GatewayDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	}
}

// MaskKey keeps the key's prefix and last four characters
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func parseOrder(m map[string]interface{}) *Order {
	return &Order{
		ID:          stringField(m, "id"),
		AmountMinor: int64Field(m, "amount"),
		Currency:    stringField(m, "currency"),
		Receipt:     stringField(m, "receipt"),
		Status:      stringField(m, "status"),
	}
}

// ParsePayment reads a payment entity as returned by the API or nested in a webhook
func ParsePayment(m map[string]interface{}) *PaymentInfo {
	return &PaymentInfo{
		ID:          stringField(m, "id"),
		OrderID:     stringField(m, "order_id"),
		Status:      stringField(m, "status"),
		Method:      stringField(m, "method"),
		AmountMinor: int64Field(m, "amount"),
		Currency:    stringField(m, "currency"),
	}
}

func parseRefund(m map[string]interface{}) *Refund {
	r := &Refund{
		ID:          stringField(m, "id"),
		PaymentID:   stringField(m, "payment_id"),
		AmountMinor: int64Field(m, "amount"),
		Currency:    stringField(m, "currency"),
		Status:      stringField(m, "status"),
	}
	if ts := int64Field(m, "created_at"); ts > 0 {
		r.CreatedAt = time.Unix(ts, 0).UTC()
	} else {
		r.CreatedAt = time.Now().UTC()
	}
	return r
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// int64Field accepts the numeric shapes produced by encoding/json and by hand-built maps
func int64Field(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

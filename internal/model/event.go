package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEventType names a payment lifecycle event published downstream
type PaymentEventType string

const (
	EventPaymentCaptured  PaymentEventType = "payment.captured"
	EventPaymentFailed    PaymentEventType = "payment.failed"
	EventPaymentRefunded  PaymentEventType = "payment.refunded"
	EventPaymentCancelled PaymentEventType = "payment.cancelled"
)

// PaymentEvent is the message consumed by the notification mailer
type PaymentEvent struct {
	Type       PaymentEventType `json:"type"`
	PaymentID  int64            `json:"paymentId"`
	TenantID   int64            `json:"tenantId"`
	PropertyID int64            `json:"propertyId"`
	RoomID     int64            `json:"roomId"`
	Amount     decimal.Decimal  `json:"amount"`
	Currency   string           `json:"currency"`
	Status     PaymentStatus    `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// NewPaymentEvent snapshots p into an event of the given type
func NewPaymentEvent(typ PaymentEventType, p *Payment, reason string) PaymentEvent {
	return PaymentEvent{
		Type:       typ,
		PaymentID:  p.ID,
		TenantID:   p.TenantID,
		PropertyID: p.PropertyID,
		RoomID:     p.RoomID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     p.Status,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}

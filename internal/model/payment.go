package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a rent payment
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "Pending"
	PaymentAuthorized PaymentStatus = "Authorized"
	PaymentCaptured   PaymentStatus = "Captured"
	PaymentFailed     PaymentStatus = "Failed"
	PaymentRefunded   PaymentStatus = "Refunded"
)

// transitions lists, for each target status, the statuses it may be reached from.
// Gateway-driven targets accept themselves so repeated deliveries are no-ops;
// Refunded is reachable only from Captured.
var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentAuthorized: {PaymentPending, PaymentAuthorized},
	PaymentCaptured:   {PaymentPending, PaymentAuthorized, PaymentCaptured},
	PaymentFailed:     {PaymentPending, PaymentFailed},
	PaymentRefunded:   {PaymentCaptured},
}

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentAuthorized, PaymentCaptured, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s
func (s PaymentStatus) Terminal() bool {
	return s == PaymentFailed || s == PaymentRefunded
}

// SourcesFor returns the statuses from which to may be written
func SourcesFor(to PaymentStatus) []PaymentStatus {
	src := transitions[to]
	out := make([]PaymentStatus, len(src))
	copy(out, src)
	return out
}

// CanTransition reports whether a payment in from may be written to to
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// PaymentMethod is the normalized payment instrument
type PaymentMethod string

const (
	MethodUPI        PaymentMethod = "UPI"
	MethodCard       PaymentMethod = "Card"
	MethodNetBanking PaymentMethod = "NetBanking"
	MethodWallet     PaymentMethod = "Wallet"
	MethodEMI        PaymentMethod = "EMI"
	MethodUnknown    PaymentMethod = "Unknown"
)

// NormalizeMethod maps a raw gateway method string onto PaymentMethod
func NormalizeMethod(raw string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upi":
		return MethodUPI
	case "card":
		return MethodCard
	case "netbanking":
		return MethodNetBanking
	case "wallet":
		return MethodWallet
	case "emi", "cardless_emi":
		return MethodEMI
	}
	return MethodUnknown
}

// Payment represents the payments table
type Payment struct {
	ID                   int64           `json:"id"`
	TenantID             int64           `json:"tenantId"`
	PropertyID           int64           `json:"propertyId"`
	RoomID               int64           `json:"roomId"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Status               PaymentStatus   `json:"status"`
	Description          string          `json:"description,omitempty"`
	Receipt              string          `json:"receipt"`
	RazorpayOrderID      string          `json:"razorpayOrderId"`
	RazorpayPaymentID    *string         `json:"razorpayPaymentId,omitempty"`
	RazorpaySignature    *string         `json:"razorpaySignature,omitempty"`
	PaymentMethod        *PaymentMethod  `json:"paymentMethod,omitempty"`
	PaymentMethodDetails *string         `json:"paymentMethodDetails,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// PaymentDetail is a payment joined with the tenant, property and room it references
type PaymentDetail struct {
	Payment
	TenantName   string `json:"tenantName"`
	TenantEmail  string `json:"tenantEmail"`
	TenantMobile string `json:"tenantMobile"`
	PropertyName string `json:"propertyName"`
	RoomNumber   string `json:"roomNumber"`
}

// Transition is a single conditional status write on a payment.
// Gateway fields are only applied when non-empty; the gateway payment id is never overwritten.
type Transition struct {
	From                 []PaymentStatus
	To                   PaymentStatus
	RazorpayPaymentID    string
	RazorpaySignature    string
	PaymentMethod        PaymentMethod
	PaymentMethodDetails string
}

// NewTransition builds a transition to the given status from every legal source
func NewTransition(to PaymentStatus) Transition {
	return Transition{From: SourcesFor(to), To: to}
}

// MinorUnits converts a major-unit amount to the gateway's minor units (paise)
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// MajorUnits converts a gateway minor-unit amount back to major units
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

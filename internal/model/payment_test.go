package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PaymentPending, PaymentAuthorized))
	assert.True(t, CanTransition(PaymentPending, PaymentCaptured))
	assert.True(t, CanTransition(PaymentAuthorized, PaymentCaptured))
	assert.True(t, CanTransition(PaymentPending, PaymentFailed))
	assert.True(t, CanTransition(PaymentCaptured, PaymentRefunded))

	// idempotent rewrites
	assert.True(t, CanTransition(PaymentCaptured, PaymentCaptured))
	assert.True(t, CanTransition(PaymentFailed, PaymentFailed))
	assert.False(t, CanTransition(PaymentRefunded, PaymentRefunded))

	assert.False(t, CanTransition(PaymentCaptured, PaymentAuthorized))
	assert.False(t, CanTransition(PaymentFailed, PaymentCaptured))
	assert.False(t, CanTransition(PaymentRefunded, PaymentCaptured))
	assert.False(t, CanTransition(PaymentAuthorized, PaymentFailed))
	assert.False(t, CanTransition(PaymentPending, PaymentRefunded))
	assert.False(t, CanTransition(PaymentCaptured, PaymentPending))
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	all := []PaymentStatus{PaymentPending, PaymentAuthorized, PaymentCaptured, PaymentFailed, PaymentRefunded}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			if to == from {
				continue
			}
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestSourcesForReturnsCopy(t *testing.T) {
	src := SourcesFor(PaymentCaptured)
	src[0] = PaymentRefunded
	assert.Equal(t, PaymentPending, SourcesFor(PaymentCaptured)[0])
}

func TestNormalizeMethod(t *testing.T) {
	assert.Equal(t, MethodUPI, NormalizeMethod("upi"))
	assert.Equal(t, MethodCard, NormalizeMethod("CARD"))
	assert.Equal(t, MethodNetBanking, NormalizeMethod("netbanking"))
	assert.Equal(t, MethodWallet, NormalizeMethod(" wallet "))
	assert.Equal(t, MethodEMI, NormalizeMethod("emi"))
	assert.Equal(t, MethodUnknown, NormalizeMethod("bank_transfer"))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(500000), MinorUnits(decimal.NewFromInt(5000)))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	assert.True(t, MajorUnits(500000).Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "19.99", MajorUnits(1999).String())
}

func TestOccupancyFor(t *testing.T) {
	assert.Equal(t, RoomAvailable, OccupancyFor(0))
	assert.Equal(t, RoomOccupied, OccupancyFor(2))
}

func TestPaymentFilterNormalize(t *testing.T) {
	f := PaymentFilter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 0, f.Offset())

	f = PaymentFilter{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, 200, f.Offset())

	p := NewPagination(21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPagination(0, 1, 10).TotalPages)
}

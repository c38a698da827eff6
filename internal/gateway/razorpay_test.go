package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	got  map[string]interface{}
	resp map[string]interface{}
	err  error
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.got = data
	return f.resp, f.err
}

type fakePayments struct {
	fetchResp    map[string]interface{}
	refundResp   map[string]interface{}
	err          error
	refundAmount int
}

func (f *fakePayments) Fetch(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return f.fetchResp, f.err
}

func (f *fakePayments) Refund(_ string, amount int, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.refundAmount = amount
	return f.refundResp, f.err
}

func TestClient_CreateOrder(t *testing.T) {
	orders := &fakeOrders{resp: map[string]interface{}{
		"id": "order_9A33XWu170gUtm", "amount": float64(500000), "currency": "INR",
		"receipt": "rent_1700000000000_ab12cd", "status": "created",
	}}
	c := &Client{orders: orders, payments: &fakePayments{}, keyID: "rzp_test_key"}

	order, err := c.CreateOrder(context.Background(), OrderRequest{
		AmountMinor: 500000, Currency: "INR", Receipt: "rent_1700000000000_ab12cd",
		Notes: map[string]string{"tenantId": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_9A33XWu170gUtm", order.ID)
	assert.Equal(t, int64(500000), order.AmountMinor)
	assert.Equal(t, int64(500000), orders.got["amount"])
	assert.Equal(t, 1, orders.got["payment_capture"])
	assert.Contains(t, orders.got, "notes")
	assert.Equal(t, "rzp_test_key", c.KeyID())
}

func TestClient_CreateOrderErrors(t *testing.T) {
	c := &Client{orders: &fakeOrders{err: errors.New("BAD_REQUEST_ERROR")}, payments: &fakePayments{}}
	_, err := c.CreateOrder(context.Background(), OrderRequest{AmountMinor: 100, Currency: "INR"})
	assert.ErrorIs(t, err, ErrOrderCreationFailed)

	c = &Client{orders: &fakeOrders{resp: map[string]interface{}{}}, payments: &fakePayments{}}
	_, err = c.CreateOrder(context.Background(), OrderRequest{AmountMinor: 100, Currency: "INR"})
	assert.ErrorIs(t, err, ErrOrderCreationFailed)
}

func TestClient_FetchAndRefund(t *testing.T) {
	payments := &fakePayments{
		fetchResp: map[string]interface{}{
			"id": "pay_29QQoUBi66xm2f", "order_id": "order_1", "status": "captured",
			"method": "upi", "amount": float64(500000), "currency": "INR",
		},
		refundResp: map[string]interface{}{
			"id": "rfnd_1", "payment_id": "pay_29QQoUBi66xm2f", "amount": float64(500000),
			"currency": "INR", "status": "processed", "created_at": float64(1700000000),
		},
	}
	c := &Client{orders: &fakeOrders{}, payments: payments}

	info, err := c.FetchPayment(context.Background(), "pay_29QQoUBi66xm2f")
	require.NoError(t, err)
	assert.Equal(t, "captured", info.Status)
	assert.Equal(t, "upi", info.Method)
	assert.Equal(t, "order_1", info.OrderID)

	refund, err := c.RefundPayment(context.Background(), "pay_29QQoUBi66xm2f", 500000, map[string]string{"reason": "moved out"})
	require.NoError(t, err)
	assert.Equal(t, 500000, payments.refundAmount)
	assert.Equal(t, "rfnd_1", refund.ID)
	assert.Equal(t, int64(1700000000), refund.CreatedAt.Unix())

	payments.err = errors.New("timeout")
	_, err = c.FetchPayment(context.Background(), "pay_x")
	assert.ErrorIs(t, err, ErrPaymentFetchFailed)
	_, err = c.RefundPayment(context.Background(), "pay_x", 1, nil)
	assert.ErrorIs(t, err, ErrRefundFailed)
}

func TestInt64Field(t *testing.T) {
	m := map[string]interface{}{
		"f": float64(42), "i": 42, "i64": int64(42), "n": json.Number("42"), "s": "42", "bad": true,
	}
	for _, k := range []string{"f", "i", "i64", "n", "s"} {
		assert.Equal(t, int64(42), int64Field(m, k), k)
	}
	assert.Zero(t, int64Field(m, "bad"))
	assert.Zero(t, int64Field(m, "missing"))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "rzp_****cdef", MaskKey("rzp_test_abcdef"))
	assert.Equal(t, "****", MaskKey("short"))
}

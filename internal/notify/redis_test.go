package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

type fakePublisher struct {
	channel string
	message []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message = message.([]byte)
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	return redis.NewIntResult(1, nil)
}

func TestRedisPublisher_Notify(t *testing.T) {
	client := &fakePublisher{}
	pub := NewRedisPublisher(client, "")

	payment := &model.Payment{ID: 7, TenantID: 1, Amount: decimal.RequireFromString("5000"), Currency: "INR", Status: model.PaymentCaptured}
	require.NoError(t, pub.Notify(context.Background(), model.NewPaymentEvent(model.EventPaymentCaptured, payment, "")))
	assert.Equal(t, DefaultChannel, client.channel)

	var got model.PaymentEvent
	require.NoError(t, json.Unmarshal(client.message, &got))
	assert.Equal(t, model.EventPaymentCaptured, got.Type)
	assert.Equal(t, int64(7), got.PaymentID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(5000)))
}

func TestRedisPublisher_NotifyError(t *testing.T) {
	client := &fakePublisher{err: errors.New("connection refused")}
	pub := NewRedisPublisher(client, "custom")

	err := pub.Notify(context.Background(), model.PaymentEvent{Type: model.EventPaymentFailed, PaymentID: 3})
	assert.Error(t, err)
	assert.Equal(t, "custom", client.channel)
}

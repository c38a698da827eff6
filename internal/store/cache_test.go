package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

type fakeRedis struct {
	data    map[string]string
	sets    int
	setErr  error
	deleted []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	f.deleted = append(f.deleted, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestCachedPaymentStore_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	mem := seededMemoryStore()
	rdb := newFakeRedis()
	cached := NewCachedPaymentStore(mem, rdb, time.Minute)

	p := &model.Payment{TenantID: 1, PropertyID: 10, RoomID: 100, Status: model.PaymentPending, RazorpayOrderID: "order_c"}
	require.NoError(t, cached.CreatePayment(ctx, p))

	got, err := cached.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", got.TenantName)
	assert.Equal(t, 1, rdb.sets)
	assert.Contains(t, rdb.data, "payment:1")

	// Served from cache
	got, err = cached.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, 1, rdb.sets)

	_, err = cached.TransitionPayment(ctx, p.ID, model.NewTransition(model.PaymentCaptured))
	require.NoError(t, err)
	assert.Equal(t, []string{"payment:1"}, rdb.deleted)
	assert.NotContains(t, rdb.data, "payment:1")

	got, err = cached.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCaptured, got.Status)
}

func TestCachedPaymentStore_RejectedTransitionKeepsCache(t *testing.T) {
	ctx := context.Background()
	mem := seededMemoryStore()
	rdb := newFakeRedis()
	cached := NewCachedPaymentStore(mem, rdb, 0)

	p := &model.Payment{TenantID: 1, Status: model.PaymentPending, RazorpayOrderID: "order_r"}
	require.NoError(t, cached.CreatePayment(ctx, p))

	_, err := cached.TransitionPayment(ctx, p.ID, model.NewTransition(model.PaymentRefunded))
	assert.ErrorIs(t, err, ErrTransitionRejected)
	assert.Empty(t, rdb.deleted)
}

func TestCachedPaymentStore_CacheFailuresIgnored(t *testing.T) {
	ctx := context.Background()
	mem := seededMemoryStore()
	rdb := newFakeRedis()
	rdb.setErr = errors.New("connection refused")
	cached := NewCachedPaymentStore(mem, rdb, time.Minute)

	p := &model.Payment{TenantID: 1, Status: model.PaymentPending, RazorpayOrderID: "order_f"}
	require.NoError(t, cached.CreatePayment(ctx, p))

	got, err := cached.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// Corrupt entries fall through to the store
	rdb.data[paymentKey(p.ID)] = "{not json"
	got, err = cached.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	missing, err := cached.GetPayment(ctx, 404)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

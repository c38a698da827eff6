package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

// CachedPaymentStore serves GetPayment from Redis and invalidates on every transition.
// Cache errors never fail the call; the underlying store is authoritative.
// GetPaymentRecord and the lookups by order or gateway id are never cached.
type CachedPaymentStore struct {
	PaymentStore
	redis RedisClient
	ttl   time.Duration
}

// NewCachedPaymentStore wraps next with a Redis read-through cache
func NewCachedPaymentStore(next PaymentStore, redis RedisClient, ttl time.Duration) *CachedPaymentStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedPaymentStore{PaymentStore: next, redis: redis, ttl: ttl}
}

func paymentKey(id int64) string {
	return fmt.Sprintf("payment:%d", id)
}

func (c *CachedPaymentStore) GetPayment(ctx context.Context, id int64) (*model.PaymentDetail, error) {
	key := paymentKey(id)
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		detail := &model.PaymentDetail{}
		if err := json.Unmarshal([]byte(cached), detail); err == nil {
			return detail, nil
		}
	}

	detail, err := c.PaymentStore.GetPayment(ctx, id)
	if err != nil || detail == nil {
		return detail, err
	}

	data, err := json.Marshal(detail)
	if err == nil {
		if err := c.redis.SetEx(ctx, key, data, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Int64("payment_id", id).Msg("Failed to cache payment")
		}
	}
	return detail, nil
}

func (c *CachedPaymentStore) TransitionPayment(ctx context.Context, id int64, t model.Transition) (*model.Payment, error) {
	payment, err := c.PaymentStore.TransitionPayment(ctx, id, t)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return payment, nil
}

func (c *CachedPaymentStore) invalidate(ctx context.Context, id int64) {
	if err := c.redis.Del(ctx, paymentKey(id)).Err(); err != nil {
		log.Warn().Err(err).Int64("payment_id", id).Msg("Failed to invalidate cached payment")
	}
}

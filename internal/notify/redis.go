package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

// DefaultChannel is the pub/sub channel the mailer subscribes to
const DefaultChannel = "payments.events"

// RedisPublisherClient is the subset of go-redis used for publishing
type RedisPublisherClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes payment events as JSON on a Redis channel
type RedisPublisher struct {
	client  RedisPublisherClient
	channel string
}

func NewRedisPublisher(client RedisPublisherClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Notify(ctx context.Context, event model.PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s for payment %d: %w", event.Type, event.PaymentID, err)
	}
	if receivers == 0 {
		log.Debug().Str("channel", p.channel).Int64("payment_id", event.PaymentID).Msg("Payment event published with no subscribers")
	}
	return nil
}

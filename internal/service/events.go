package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/rent-payment-service/internal/model"
	"github.com/teresa-solution/rent-payment-service/internal/monitoring"
)

// Notifier delivers a payment event downstream
type Notifier interface {
	Notify(ctx context.Context, event model.PaymentEvent) error
}

// EventDispatcher publishes payment events from a background worker
type EventDispatcher struct {
	notifier Notifier
	events   chan model.PaymentEvent // Buffered queue drained by the worker
	timeout  time.Duration
	done     chan struct{}
	once     sync.Once
	mu       sync.RWMutex
	closed   bool
}

// NewEventDispatcher creates a dispatcher and starts its worker
func NewEventDispatcher(notifier Notifier, buffer int) *EventDispatcher {
	if buffer <= 0 {
		buffer = 100
	}
	d := &EventDispatcher{
		notifier: notifier,
		events:   make(chan model.PaymentEvent, buffer),
		timeout:  5 * time.Second,
		done:     make(chan struct{}),
	}
	go d.startWorker()
	return d
}

// startWorker runs until the queue is closed and drained
func (d *EventDispatcher) startWorker() {
	defer close(d.done)
	for event := range d.events {
		d.deliver(event)
	}
}

func (d *EventDispatcher) deliver(event model.PaymentEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, event); err != nil {
		log.Error().Err(err).Int64("payment_id", event.PaymentID).Str("event", string(event.Type)).Msg("Failed to publish payment event")
		monitoring.Alert("payment event publish failed", map[string]string{
			"payment_id": formatID(event.PaymentID),
			"event":      string(event.Type),
		})
		return
	}
	log.Info().Int64("payment_id", event.PaymentID).Str("event", string(event.Type)).Msg("Published payment event")
}

// Enqueue queues event without blocking; it reports false when the event was dropped
func (d *EventDispatcher) Enqueue(event model.PaymentEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Warn().Int64("payment_id", event.PaymentID).Str("event", string(event.Type)).Msg("Event dispatcher closed, dropping payment event")
		return false
	}
	select {
	case d.events <- event:
		return true
	default:
		log.Warn().Int64("payment_id", event.PaymentID).Str("event", string(event.Type)).Msg("Event queue full, dropping payment event")
		return false
	}
}

// Close stops accepting events and waits until queued ones are delivered
func (d *EventDispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.events)
		d.mu.Unlock()
	})
	<-d.done
}

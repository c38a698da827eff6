package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

type recordingNotifier struct {
	mu      sync.Mutex
	got     []model.PaymentEvent
	err     error
	release chan struct{}
}

func (n *recordingNotifier) Notify(ctx context.Context, event model.PaymentEvent) error {
	if n.release != nil {
		<-n.release
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, event)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

func TestEventDispatcher_DeliversOnClose(t *testing.T) {
	n := &recordingNotifier{}
	d := NewEventDispatcher(n, 10)

	for i := int64(1); i <= 5; i++ {
		assert.True(t, d.Enqueue(model.PaymentEvent{Type: model.EventPaymentCaptured, PaymentID: i}))
	}
	d.Close()

	assert.Equal(t, 5, n.count())
	assert.Equal(t, int64(1), n.got[0].PaymentID)
	assert.False(t, d.Enqueue(model.PaymentEvent{PaymentID: 6}))

	// Close is safe to repeat
	d.Close()
}

func TestEventDispatcher_DropsWhenFull(t *testing.T) {
	n := &recordingNotifier{release: make(chan struct{})}
	d := NewEventDispatcher(n, 1)

	accepted := 0
	for i := int64(1); i <= 5; i++ {
		if d.Enqueue(model.PaymentEvent{Type: model.EventPaymentFailed, PaymentID: i}) {
			accepted++
		}
	}
	// the worker holds at most one event while the buffer holds one more
	assert.LessOrEqual(t, accepted, 2)
	assert.GreaterOrEqual(t, accepted, 1)

	close(n.release)
	d.Close()
	assert.Equal(t, accepted, n.count())
}

func TestEventDispatcher_NotifyErrorDoesNotStopWorker(t *testing.T) {
	n := &recordingNotifier{err: errors.New("redis down")}
	d := NewEventDispatcher(n, 4)

	d.Enqueue(model.PaymentEvent{PaymentID: 1})
	d.Enqueue(model.PaymentEvent{PaymentID: 2})
	d.Close()
	assert.Equal(t, 2, n.count())
}

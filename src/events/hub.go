package events

import (
	"context"
	"errors"
	"sync"

	logger "github.com/sirupsen/logrus"

	"ordersapi/src/model"
)

// Hub fans committed audit entries out to in-process subscribers. A subscriber
// whose buffer is full misses the entry; publishing never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan model.OrderLog]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{subs: make(map[chan model.OrderLog]struct{}), buffer: buffer}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes
// the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan model.OrderLog, func()) {
	ch := make(chan model.OrderLog, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *Hub) PublishOrderLog(_ context.Context, entry *model.OrderLog) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("hub is closed")
	}

	for ch := range h.subs {
		select {
		case ch <- *entry:
		default:
			logger.WithFields(map[string]interface{}{
				"component": "events",
				"order_id":  entry.OrderID,
			}).Warn("stream subscriber is behind, entry dropped")
		}
	}
	return nil
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	return nil
}

type multiPublisher []Publisher

// Multi publishes every entry to all publishers in order. Errors are joined;
// one failing publisher does not stop the others.
func Multi(publishers ...Publisher) Publisher {
	return multiPublisher(publishers)
}

func (m multiPublisher) PublishOrderLog(ctx context.Context, entry *model.OrderLog) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishOrderLog(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

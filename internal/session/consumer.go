package session

import (
	"context"
	"errors"
	"sync"
)

// ErrConsumerGone tells the session to stop retrying and destroy itself.
var ErrConsumerGone = errors.New("consumer gone")

// Consumer receives item lists from a session. A transient error is retried
// with backoff; ErrConsumerGone, or exhausting the retries, destroys the session.
type Consumer[T any] interface {
	Deliver(ctx context.Context, items []T) error
}

type ConsumerFunc[T any] func(ctx context.Context, items []T) error

func (f ConsumerFunc[T]) Deliver(ctx context.Context, items []T) error {
	return f(ctx, items)
}

// ChannelConsumer exposes deliveries as a latest-value channel. An unread
// list is replaced by a newer one.
type ChannelConsumer[T any] struct {
	mu     sync.Mutex
	ch     chan []T
	closed bool
}

func NewChannelConsumer[T any]() *ChannelConsumer[T] {
	return &ChannelConsumer[T]{ch: make(chan []T, 1)}
}

func (c *ChannelConsumer[T]) C() <-chan []T {
	return c.ch
}

func (c *ChannelConsumer[T]) Deliver(_ context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConsumerGone
	}
	select {
	case <-c.ch:
	default:
	}
	c.ch <- items
	return nil
}

// Close makes later deliveries fail with ErrConsumerGone.
func (c *ChannelConsumer[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

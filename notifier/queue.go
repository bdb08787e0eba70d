// Package notifier implements the notification channel: an unbounded FIFO of
// server notifications with a single blocking consumer.
package notifier

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Consume once the queue has been closed and every
// notification pushed before Close has been consumed.
var ErrClosed = errors.New("notification queue closed")

// Sink receives the notifications taken off the queue by Serve.
type Sink interface {
	Output(msg string) error
}

// Queue is an unbounded FIFO of notification payloads. Push never blocks;
// Consume blocks while the queue is empty. It is safe for concurrent use.
type Queue struct {
	mu        sync.Mutex
	items     []string
	closed    bool
	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue returns an empty, open queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends payload to the tail and wakes the consumer. Pushes after Close
// are dropped.
//
// Parameters:
//   - payload: The notification text
//
// Returns:
//   - true if the payload was queued, false if the queue is closed
func (q *Queue) Push(payload string) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	q.items = append(q.items, payload)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}

	return true
}

// Consume blocks until a notification is available and pops the head.
//
// Parameters:
//   - ctx: Cancels the wait
//
// Returns:
//   - The oldest queued payload
//   - ErrClosed after Close once the queue is drained, or ctx.Err()
func (q *Queue) Consume(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			head := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			q.mu.Unlock()
			return head, nil
		}

		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", ErrClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Close marks the end of the stream. Notifications already queued are still
// handed out before Consume reports ErrClosed. Idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Serve is the consumer loop: it writes every notification to sink in arrival
// order until the queue is closed, ctx is cancelled or the sink fails.
//
// Returns:
//   - nil when the queue was closed, ctx.Err() on cancellation, or the sink's
//     error
func (q *Queue) Serve(ctx context.Context, sink Sink) error {
	for {
		msg, err := q.Consume(ctx)
		if errors.Is(err, ErrClosed) {
			return nil
		}

		if err != nil {
			return err
		}

		if err := sink.Output(msg); err != nil {
			return err
		}
	}
}

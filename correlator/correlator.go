// Package correlator pairs the single outstanding request of a connection with
// its reply. Replies are produced by the network receive loop and consumed by
// the goroutine that issued the request.
package correlator

import (
	"context"
	"errors"
	"sync"

	"github.com/cyberinferno/sudoku-client/idgenerator"
	"github.com/cyberinferno/sudoku-client/logger"
	"github.com/cyberinferno/sudoku-client/notifier"
	"github.com/cyberinferno/sudoku-client/perfmonitor"
	"github.com/cyberinferno/sudoku-client/protocol"
)

var (
	// ErrClosed is returned once the correlator has been shut down and no
	// reply queued before the shutdown remains.
	ErrClosed = errors.New("correlator shut down")
	// ErrSendFailed is returned when the request could not be transmitted.
	ErrSendFailed = errors.New("request not sent")
)

// Sender transmits a frame. Send reports false when the frame did not go out;
// the connection is unusable afterwards.
type Sender interface {
	Send(frame protocol.Frame) bool
}

// Correlator serializes requests and hands each requester the next reply.
// The server answers requests in the order they were sent and only one
// request is outstanding at a time; replies that arrive with no waiter are
// queued rather than overwritten.
type Correlator struct {
	sender        Sender
	notifications *notifier.Queue
	log           logger.Logger
	ids           *idgenerator.IdGenerator

	// sendMu is held for a request's full round trip.
	sendMu sync.Mutex

	mu           sync.Mutex
	replies      []protocol.Frame
	closed       bool
	ready        chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once
}

// New creates a Correlator that transmits through sender. Shutdown also
// closes notifications, which may be nil.
//
// Parameters:
//   - sender: Transmits request frames (normally the network session)
//   - notifications: The notification queue to close on shutdown
//   - log: Logger for request tracing
//
// Returns:
//   - A ready Correlator
func New(sender Sender, notifications *notifier.Queue, log logger.Logger) *Correlator {
	return &Correlator{
		sender:        sender,
		notifications: notifications,
		log:           log.With(logger.Field{Key: "component", Value: "correlator"}),
		ids:           idgenerator.NewIdGenerator(0),
		ready:         make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Request transmits a frame and blocks until the next reply arrives.
//
// Parameters:
//   - ctx: Cancels the wait for the reply
//   - header: The request header code
//   - payload: The request payload
//
// Returns:
//   - The reply frame
//   - ErrSendFailed if transmission failed, ErrClosed if the correlator was
//     shut down, or ctx.Err()
func (c *Correlator) Request(ctx context.Context, header protocol.Header, payload string) (protocol.Frame, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.isClosed() {
		return protocol.Frame{}, ErrClosed
	}

	id := c.ids.Id()
	pm := perfmonitor.NewPerformanceMonitor()
	pm.Start()

	c.log.Debug("sending request", logger.Field{Key: "request", Value: id}, logger.Field{Key: "header", Value: header})
	if !c.sender.Send(protocol.Frame{Header: header, Payload: payload}) {
		c.log.Warn("request not sent", logger.Field{Key: "request", Value: id})
		return protocol.Frame{}, ErrSendFailed
	}

	reply, err := c.next(ctx)
	pm.Stop()
	if err != nil {
		c.log.Debug("request abandoned",
			logger.Field{Key: "request", Value: id},
			logger.Field{Key: "error", Value: err})
		return protocol.Frame{}, err
	}

	c.log.Debug("reply received",
		logger.Field{Key: "request", Value: id},
		logger.Field{Key: "header", Value: reply.Header},
		logger.Field{Key: "rtt_ms", Value: pm.ElapsedMilliseconds()})
	return reply, nil
}

// Await waits for the next reply without sending anything, for replies the
// server pushes on its own (e.g. the table that starts a game). It holds the
// send right while waiting.
//
// Returns:
//   - The reply frame, or ErrClosed / ctx.Err()
func (c *Correlator) Await(ctx context.Context) (protocol.Frame, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.next(ctx)
}

func (c *Correlator) next(ctx context.Context) (protocol.Frame, error) {
	for {
		c.mu.Lock()
		if len(c.replies) > 0 {
			reply := c.replies[0]
			c.replies[0] = protocol.Frame{}
			c.replies = c.replies[1:]
			c.mu.Unlock()
			return reply, nil
		}

		closed := c.closed
		c.mu.Unlock()

		if closed {
			return protocol.Frame{}, ErrClosed
		}

		select {
		case <-c.ready:
		case <-c.done:
		case <-ctx.Done():
			return protocol.Frame{}, ctx.Err()
		}
	}
}

// Deliver hands a reply to the waiting requester. A reply that arrives while
// another is still unconsumed is queued behind it.
func (c *Correlator) Deliver(reply protocol.Frame) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Debug("reply after shutdown dropped", logger.Field{Key: "header", Value: reply.Header})
		return
	}

	if len(c.replies) > 0 {
		c.log.Warn("reply queued behind an unconsumed reply",
			logger.Field{Key: "header", Value: reply.Header},
			logger.Field{Key: "pending", Value: len(c.replies)})
	}
	c.replies = append(c.replies, reply)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Shutdown unblocks every waiter: pending and later requests return ErrClosed
// once the queued replies are consumed, and the notification queue is closed.
// Idempotent.
func (c *Correlator) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)

		if c.notifications != nil {
			c.notifications.Close()
		}

		c.log.Debug("shut down")
	})
}

// Pending returns the number of replies waiting to be consumed.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}

func (c *Correlator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

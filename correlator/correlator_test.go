package correlator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/sudoku-client/logger"
	"github.com/cyberinferno/sudoku-client/notifier"
	"github.com/cyberinferno/sudoku-client/protocol"
)

// fakeSender records frames and optionally answers each one through reply.
type fakeSender struct {
	mu    sync.Mutex
	sent  []protocol.Frame
	fail  bool
	reply func(protocol.Frame)
}

func (s *fakeSender) Send(f protocol.Frame) bool {
	s.mu.Lock()
	if s.fail {
		s.mu.Unlock()
		return false
	}
	s.sent = append(s.sent, f)
	reply := s.reply
	s.mu.Unlock()

	if reply != nil {
		go reply(f)
	}

	return true
}

func (s *fakeSender) frames() []protocol.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Frame(nil), s.sent...)
}

func newCorrelator(sender Sender) (*Correlator, *notifier.Queue) {
	q := notifier.NewQueue()
	return New(sender, q, logger.NewNopLogger()), q
}

func TestCorrelator_Request(t *testing.T) {
	t.Run("returns the delivered reply", func(t *testing.T) {
		sender := &fakeSender{}
		c, _ := newCorrelator(sender)
		sender.reply = func(protocol.Frame) {
			time.Sleep(5 * time.Millisecond)
			c.Deliver(protocol.Frame{Header: protocol.CurrentSessions, Payload: "none"})
		}

		reply, err := c.Request(context.Background(), protocol.Nickname, "Alice")
		require.NoError(t, err)
		assert.Equal(t, protocol.Frame{Header: protocol.CurrentSessions, Payload: "none"}, reply)
		assert.Equal(t, []protocol.Frame{{Header: protocol.Nickname, Payload: "Alice"}}, sender.frames())
	})

	t.Run("send failure returns immediately", func(t *testing.T) {
		c, _ := newCorrelator(&fakeSender{fail: true})

		_, err := c.Request(context.Background(), protocol.PutNumber, "213")
		assert.ErrorIs(t, err, ErrSendFailed)
	})

	t.Run("context cancellation ends the wait", func(t *testing.T) {
		c, _ := newCorrelator(&fakeSender{})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := c.Request(ctx, protocol.PutNumber, "213")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestCorrelator_RequestsAreSerialized(t *testing.T) {
	sender := &fakeSender{}
	c, _ := newCorrelator(sender)

	var inFlight, maxInFlight int
	var mu sync.Mutex
	sender.reply = func(f protocol.Frame) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		c.Deliver(protocol.Frame{Header: protocol.PutNumberAck, Payload: f.Payload})
	}

	var wg sync.WaitGroup
	for _, move := range []string{"111", "222", "333", "444", "555"} {
		wg.Add(1)
		go func(move string) {
			defer wg.Done()
			reply, err := c.Request(context.Background(), protocol.PutNumber, move)
			assert.NoError(t, err)
			assert.Equal(t, move, reply.Payload)
		}(move)
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
	assert.Len(t, sender.frames(), 5)
}

func TestCorrelator_Await(t *testing.T) {
	c, _ := newCorrelator(&fakeSender{})

	go func() {
		time.Sleep(5 * time.Millisecond)
		c.Deliver(protocol.Frame{Header: protocol.Table, Payload: "board"})
	}()

	reply, err := c.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.Table, reply.Header)
}

func TestCorrelator_DuplicateReplyIsQueued(t *testing.T) {
	c, _ := newCorrelator(&fakeSender{})

	c.Deliver(protocol.Frame{Header: protocol.WaitingPlayers, Payload: "1/2"})
	c.Deliver(protocol.Frame{Header: protocol.Table, Payload: "board"})
	assert.Equal(t, 2, c.Pending())

	first, err := c.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.WaitingPlayers, first.Header)

	second, err := c.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.Table, second.Header)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelator_Shutdown(t *testing.T) {
	t.Run("unblocks a pending request and closes notifications", func(t *testing.T) {
		c, q := newCorrelator(&fakeSender{})
		errCh := make(chan error, 1)

		go func() {
			_, err := c.Request(context.Background(), protocol.Nickname, "Alice")
			errCh <- err
		}()

		time.Sleep(10 * time.Millisecond)
		c.Shutdown()
		c.Shutdown()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("request hung after shutdown")
		}

		_, err := q.Consume(context.Background())
		assert.ErrorIs(t, err, notifier.ErrClosed)
	})

	t.Run("later requests fail without sending", func(t *testing.T) {
		sender := &fakeSender{}
		c, _ := newCorrelator(sender)
		c.Shutdown()

		_, err := c.Request(context.Background(), protocol.Nickname, "Alice")
		assert.ErrorIs(t, err, ErrClosed)
		assert.Empty(t, sender.frames())

		_, err = c.Await(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("replies after shutdown are dropped", func(t *testing.T) {
		c, _ := newCorrelator(&fakeSender{})
		c.Shutdown()
		c.Deliver(protocol.Frame{Header: protocol.NotOK})
		assert.Equal(t, 0, c.Pending())
	})
}

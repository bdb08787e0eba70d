package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (s *recordingSink) Output(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.msgs...)
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	var want []string
	for i := 0; i < 100; i++ {
		msg := fmt.Sprintf("msg-%d", i)
		want = append(want, msg)
		require.True(t, q.Push(msg))
	}

	assert.Equal(t, 100, q.Len())

	for _, w := range want {
		got, err := q.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
}

func TestQueue_ConsumeBlocksUntilPush(t *testing.T) {
	q := NewQueue()
	got := make(chan string, 1)

	go func() {
		msg, err := q.Consume(context.Background())
		if err == nil {
			got <- msg
		}
	}()

	select {
	case <-got:
		t.Fatal("consume returned on an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("player Bob joined")

	select {
	case msg := <-got:
		assert.Equal(t, "player Bob joined", msg)
	case <-time.After(time.Second):
		t.Fatal("consume did not wake up after push")
	}
}

func TestQueue_ConcurrentProducerKeepsOrder(t *testing.T) {
	q := NewQueue()
	const n = 500

	go func() {
		for i := 0; i < n; i++ {
			q.Push(fmt.Sprintf("%d", i))
		}
		q.Close()
	}()

	var got []string
	for {
		msg, err := q.Consume(context.Background())
		if errors.Is(err, ErrClosed) {
			break
		}
		require.NoError(t, err)
		got = append(got, msg)
	}

	require.Len(t, got, n)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("%d", i), msg)
	}
}

func TestQueue_Close(t *testing.T) {
	t.Run("unblocks a pending consume", func(t *testing.T) {
		q := NewQueue()
		errCh := make(chan error, 1)

		go func() {
			_, err := q.Consume(context.Background())
			errCh <- err
		}()

		time.Sleep(10 * time.Millisecond)
		q.Close()

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("consume hung after close")
		}
	})

	t.Run("drains queued items before reporting closed", func(t *testing.T) {
		q := NewQueue()
		q.Push("a")
		q.Push("b")
		q.Close()
		q.Close()

		assert.False(t, q.Push("c"))

		msg, err := q.Consume(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", msg)
		msg, err = q.Consume(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "b", msg)
		_, err = q.Consume(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestQueue_ConsumeContextCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_Serve(t *testing.T) {
	t.Run("delivers in order and returns nil on close", func(t *testing.T) {
		q := NewQueue()
		sink := &recordingSink{}
		done := make(chan error, 1)

		go func() { done <- q.Serve(context.Background(), sink) }()

		q.Push("one")
		q.Push("two")
		q.Push("three")
		q.Close()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("serve did not exit after close")
		}

		assert.Equal(t, []string{"one", "two", "three"}, sink.messages())
	})

	t.Run("stops on sink error", func(t *testing.T) {
		q := NewQueue()
		sink := &recordingSink{err: assert.AnError}
		q.Push("lost")

		err := q.Serve(context.Background(), sink)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

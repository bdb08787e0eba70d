package idgenerator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdGenerator_Id(t *testing.T) {
	t.Run("starts after start value", func(t *testing.T) {
		gen := NewIdGenerator(100)
		assert.Equal(t, uint32(100), gen.Last())
		assert.Equal(t, uint32(101), gen.Id())
		assert.Equal(t, uint32(101), gen.Last())
	})

	t.Run("sequential ids", func(t *testing.T) {
		gen := NewIdGenerator(0)
		for want := uint32(1); want <= 10; want++ {
			assert.Equal(t, want, gen.Id())
		}
	})

	t.Run("wraps at max uint32", func(t *testing.T) {
		gen := NewIdGenerator(^uint32(0))
		assert.Equal(t, uint32(0), gen.Id())
	})
}

func TestIdGenerator_Concurrent(t *testing.T) {
	gen := NewIdGenerator(0)
	const goroutines, perGoroutine = 20, 50

	var mu sync.Mutex
	seen := make(map[uint32]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := gen.Id()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, uint32(goroutines*perGoroutine), gen.Last())
}

package perfmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceMonitor_Lifecycle(t *testing.T) {
	t.Run("new monitor has no measurement", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		assert.True(t, pm.startTime.IsZero())
		assert.True(t, pm.endTime.IsZero())
		assert.Equal(t, 0.0, pm.ElapsedMilliseconds())
	})

	t.Run("start without stop reports zero", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Start()
		assert.Equal(t, 0.0, pm.ElapsedMilliseconds())
	})

	t.Run("stop without start is ignored", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Stop()
		assert.True(t, pm.endTime.IsZero())
	})

	t.Run("reset clears a finished measurement", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Start()
		pm.Stop()
		pm.Reset()
		pm.Stop()
		assert.True(t, pm.startTime.IsZero())
		assert.True(t, pm.endTime.IsZero())
		assert.Equal(t, 0.0, pm.ElapsedMilliseconds())
	})
}

func TestPerformanceMonitor_ElapsedMilliseconds(t *testing.T) {
	t.Run("measures a sleep", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Start()
		time.Sleep(50 * time.Millisecond)
		pm.Stop()

		elapsed := pm.ElapsedMilliseconds()
		assert.Greater(t, elapsed, 40.0)
		assert.Less(t, elapsed, 500.0)
	})

	t.Run("restart begins a new measurement", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Start()
		time.Sleep(30 * time.Millisecond)
		pm.Stop()

		pm.Start()
		pm.Stop()
		assert.Less(t, pm.ElapsedMilliseconds(), 30.0)
	})
}

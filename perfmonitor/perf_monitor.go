// Package perfmonitor measures the wall-clock duration of an operation.
package perfmonitor

import (
	"sync"
	"time"
)

// PerformanceMonitor records a start and an end instant. A zero value is
// ready to use; it is safe for concurrent use.
type PerformanceMonitor struct {
	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
}

// NewPerformanceMonitor returns a monitor with no measurement in progress.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{}
}

// Start records the start instant, overwriting any previous one, and clears
// the end instant.
func (p *PerformanceMonitor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Now()
	p.endTime = time.Time{}
}

// Stop records the end instant. It is a no-op when Start has not been called
// since the last Reset.
func (p *PerformanceMonitor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startTime.IsZero() {
		return
	}

	p.endTime = time.Now()
}

// Reset clears both instants.
func (p *PerformanceMonitor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Time{}
	p.endTime = time.Time{}
}

// ElapsedMilliseconds returns the duration between Start and Stop.
//
// Returns:
//   - The elapsed time in milliseconds, or 0 if the measurement is incomplete
func (p *PerformanceMonitor) ElapsedMilliseconds() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startTime.IsZero() || p.endTime.IsZero() {
		return 0
	}

	return float64(p.endTime.Sub(p.startTime)) / float64(time.Millisecond)
}

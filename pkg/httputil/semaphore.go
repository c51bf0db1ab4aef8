package httputil

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds concurrent access to a resource, with a non-blocking
// TryAcquire path for load shedding. The gateway uses one to cap in-flight
// semantic analyses so a slow embedder cannot pile up goroutines.
type Semaphore struct {
	slots   chan struct{}
	dropped atomic.Int64
}

// NewSemaphore creates a semaphore permitting n concurrent holders.
func NewSemaphore(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// TryAcquire attempts to take a slot without blocking. When it returns
// false the caller should shed the work; the drop is counted.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Acquire blocks until a slot is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot. Must be called exactly once per successful
// acquire; releasing an unheld semaphore panics.
func (s *Semaphore) Release() {
	select {
	case <-s.slots:
	default:
		panic("httputil: release of unheld semaphore")
	}
}

// InFlight reports the number of currently held slots.
func (s *Semaphore) InFlight() int {
	return len(s.slots)
}

// Capacity reports the maximum number of concurrent holders.
func (s *Semaphore) Capacity() int {
	return cap(s.slots)
}

// DroppedCount reports how many TryAcquire calls were shed.
func (s *Semaphore) DroppedCount() int64 {
	return s.dropped.Load()
}

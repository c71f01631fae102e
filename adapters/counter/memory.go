package counter

import (
	"context"
	"sync"
	"time"
)

type streamCount struct {
	count     int
	expiresAt time.Time
}

// MemoryCounter is an in-memory implementation of the StreamCounter
// interface, primarily for testing. Entries carry the same ceiling TTL
// semantics as the Redis implementation: each increment refreshes the
// deadline and an expired entry reads as zero.
type MemoryCounter struct {
	mu      sync.Mutex
	counts  map[string]*streamCount
	ceiling time.Duration
}

// NewMemoryCounter creates a MemoryCounter with the given ceiling TTL.
func NewMemoryCounter(ceiling time.Duration) *MemoryCounter {
	return &MemoryCounter{
		counts:  make(map[string]*streamCount),
		ceiling: ceiling,
	}
}

// Increment bumps the subject's live stream count.
func (c *MemoryCounter) Increment(ctx context.Context, subject string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sc := c.live(subject)
	if sc == nil {
		sc = &streamCount{}
		c.counts[subject] = sc
	}

	sc.count++
	sc.expiresAt = time.Now().Add(c.ceiling)
	return nil
}

// Decrement lowers the subject's live stream count, clamped at zero.
func (c *MemoryCounter) Decrement(ctx context.Context, subject string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sc := c.live(subject)
	if sc == nil || sc.count == 0 {
		return nil
	}

	sc.count--
	return nil
}

// Count returns the subject's live stream count.
func (c *MemoryCounter) Count(ctx context.Context, subject string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sc := c.live(subject)
	if sc == nil {
		return 0, nil
	}
	return sc.count, nil
}

// live returns the subject's entry, dropping it first if the ceiling TTL
// has passed. Callers must hold the lock.
func (c *MemoryCounter) live(subject string) *streamCount {
	sc, ok := c.counts[subject]
	if !ok {
		return nil
	}

	if time.Now().After(sc.expiresAt) {
		delete(c.counts, subject)
		return nil
	}

	return sc
}

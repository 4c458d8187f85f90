package testutil

import "sync"

// DefaultStep is the nanosecond gap between consecutive fixture timestamps.
const DefaultStep int64 = 1000

// DeterministicClock hands out monotonic nanosecond timestamps for fixtures.
//
// The same sequence of Next calls always yields the same timestamps, so
// fixture batches and the reports built from them are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	step int64
}

// NewDeterministicClock creates a clock advancing DefaultStep per tick.
//
// The first call to Next() returns DefaultStep.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: DefaultStep}
}

// NewDeterministicClockWithStep creates a clock advancing step per tick.
func NewDeterministicClockWithStep(step int64) *DeterministicClock {
	if step <= 0 {
		step = DefaultStep
	}
	return &DeterministicClock{step: step}
}

// Next advances the clock and returns the new timestamp.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq * c.step
}

// Current returns the current timestamp without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq * c.step
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for soft-delete stamps. Each call
// to Now advances it by Step from Epoch.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	Step  time.Duration
	ticks int64
}

// NewStepClock creates a clock whose first reading is Epoch+step.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{Step: step}
}

// Now advances the clock and returns the new reading.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Epoch.Add(time.Duration(c.ticks) * c.Step)
}

// Current returns the last reading without advancing. Before the first
// call to Now it returns Epoch.
func (c *StepClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Epoch.Add(time.Duration(c.ticks) * c.Step)
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}

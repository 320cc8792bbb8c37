package core

import (
	"fmt"
	"sync"
)

// StepLimiter enforces the safety ceiling on state-machine steps per run.
type StepLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepLimiter creates a new limiter with a max number of steps.
// If max == 0, unlimited steps are allowed.
func NewStepLimiter(max int) *StepLimiter {
	return &StepLimiter{max: max}
}

// Increment increases the step counter and returns an error wrapping
// ErrMaxSteps if the ceiling is exceeded.
func (sl *StepLimiter) Increment() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.count++
	if sl.max > 0 && sl.count > sl.max {
		return fmt.Errorf("%w (%d)", ErrMaxSteps, sl.max)
	}

	return nil
}

// Restore sets the counter, used when resuming from a checkpoint.
func (sl *StepLimiter) Restore(count int) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.count = count
}

// Count returns the number of steps taken so far.
func (sl *StepLimiter) Count() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.count
}

// Remaining returns how many steps are left before hitting the ceiling.
func (sl *StepLimiter) Remaining() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.max == 0 {
		return -1 // unlimited
	}

	return sl.max - sl.count
}

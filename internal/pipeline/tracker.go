package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// LastRun is the outcome of the most recent completed run.
type LastRun struct {
	Result     Result
	Err        error
	FinishedAt time.Time
}

// Tracker remembers the outcome of the last run that went through it, whoever
// triggered it. Rejected triggers (ErrRunInProgress, ErrClosed) are not runs
// and leave the last outcome untouched.
type Tracker struct {
	runner Runner
	now    func() time.Time

	mu   sync.Mutex
	last *LastRun
}

// NewTracker wraps runner.
func NewTracker(runner Runner) *Tracker {
	return &Tracker{runner: runner, now: time.Now}
}

// Run runs the wrapped runner and records the outcome.
func (t *Tracker) Run(ctx context.Context) (Result, error) {
	res, err := t.runner.Run(ctx)
	if errors.Is(err, ErrRunInProgress) || errors.Is(err, ErrClosed) {
		return res, err
	}

	t.mu.Lock()
	t.last = &LastRun{Result: res, Err: err, FinishedAt: t.now()}
	t.mu.Unlock()

	return res, err
}

// Last returns the most recent outcome, or false if nothing has run yet.
func (t *Tracker) Last() (LastRun, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return LastRun{}, false
	}
	return *t.last, true
}

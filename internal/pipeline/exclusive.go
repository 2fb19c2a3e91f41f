package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrRunInProgress is returned when a run is triggered while another is active.
	ErrRunInProgress = errors.New("a pipeline run is already in progress")

	// ErrClosed is returned for runs triggered after Close.
	ErrClosed = errors.New("pipeline is shutting down")
)

// Runner executes one batch.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Exclusive lets at most one run execute at a time. Overlapping triggers fail
// fast with ErrRunInProgress instead of queueing, since two runs would race on
// replacing the same tables.
type Exclusive struct {
	runner Runner
	slot   chan struct{}
	closed atomic.Bool
}

// NewExclusive wraps runner.
func NewExclusive(runner Runner) *Exclusive {
	return &Exclusive{runner: runner, slot: make(chan struct{}, 1)}
}

// Run runs the wrapped runner unless a run is already active.
func (e *Exclusive) Run(ctx context.Context) (Result, error) {
	if e.closed.Load() {
		return Result{}, ErrClosed
	}
	select {
	case e.slot <- struct{}{}:
	default:
		return Result{}, ErrRunInProgress
	}
	defer func() { <-e.slot }()

	if e.closed.Load() {
		return Result{}, ErrClosed
	}
	return e.runner.Run(ctx)
}

// Close rejects later runs with ErrClosed and waits for the active run, if
// any, to finish. It returns ctx's error if the run outlives ctx.
func (e *Exclusive) Close(ctx context.Context) error {
	e.closed.Store(true)
	select {
	case e.slot <- struct{}{}:
		<-e.slot
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

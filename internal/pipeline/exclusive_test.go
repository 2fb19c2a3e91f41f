package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockingRunner holds its run open until release is closed.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) (Result, error) {
	close(r.started)
	<-r.release
	return Result{Status: StatusSuccess}, nil
}

func TestExclusive_RejectsOverlap(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	e := NewExclusive(r)

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background())
		done <- err
	}()
	<-r.started

	if _, err := e.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("overlapping Run() err = %v, want ErrRunInProgress", err)
	}

	close(r.release)
	if err := <-done; err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Released; a new run may start.
	r.started = make(chan struct{})
	r.release = make(chan struct{})
	close(r.release)
	if _, err := e.Run(context.Background()); err != nil {
		t.Errorf("Run() after release error = %v", err)
	}
}

func TestExclusive_CloseWaitsForActiveRun(t *testing.T) {
	r := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	e := NewExclusive(r)

	done := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background())
		done <- err
	}()
	<-r.started

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Close(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() during run err = %v, want DeadlineExceeded", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- e.Close(context.Background()) }()

	select {
	case err := <-closed:
		t.Fatalf("Close() returned %v before the run finished", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(r.release)
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := <-closed; err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := e.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close err = %v, want ErrClosed", err)
	}
}

type stubRunner struct {
	res Result
	err error
}

func (r stubRunner) Run(context.Context) (Result, error) { return r.res, r.err }

func TestTracker(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("nothing run yet", func(t *testing.T) {
		if _, ok := NewTracker(stubRunner{}).Last(); ok {
			t.Error("Last() ok = true before any run")
		}
	})

	t.Run("records failure", func(t *testing.T) {
		boom := errors.New("boom")
		tr := NewTracker(stubRunner{res: Result{RunID: "r1"}, err: boom})
		tr.now = func() time.Time { return fixed }

		if _, err := tr.Run(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("Run() err = %v, want boom", err)
		}
		last, ok := tr.Last()
		if !ok || last.Result.RunID != "r1" || !errors.Is(last.Err, boom) || !last.FinishedAt.Equal(fixed) {
			t.Errorf("Last() = %+v, %v", last, ok)
		}
	})

	t.Run("rejected triggers are not runs", func(t *testing.T) {
		for _, rejected := range []error{ErrRunInProgress, ErrClosed} {
			inner := &stubRunner{res: Result{RunID: "ok", Status: StatusSuccess}}
			tr := NewTracker(inner)
			tr.Run(context.Background())

			inner.res, inner.err = Result{}, rejected
			tr.Run(context.Background())

			last, _ := tr.Last()
			if last.Result.RunID != "ok" || last.Err != nil {
				t.Errorf("after %v, Last() = %+v, want the earlier successful run", rejected, last)
			}
		}
	})
}

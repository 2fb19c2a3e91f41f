package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/daily-prices/internal/pipeline"
)

// countingRunner counts runs and can hold each run open for delay.
type countingRunner struct {
	calls atomic.Int32
	delay time.Duration
}

func (r *countingRunner) Run(ctx context.Context) (pipeline.Result, error) {
	r.calls.Add(1)
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return pipeline.Result{}, ctx.Err()
	}
	return pipeline.Result{RunID: "test", Status: pipeline.StatusSuccess}, nil
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNew_InvalidSpec(t *testing.T) {
	if _, err := New(Config{Spec: "every tuesday"}, &countingRunner{}, nil); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestScheduler_RunOnStart(t *testing.T) {
	runner := &countingRunner{}
	s, err := New(Config{Spec: "@yearly", RunOnStart: true}, runner, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := runner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestScheduler_Next(t *testing.T) {
	s, err := New(Config{Spec: "@daily"}, &countingRunner{}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop(context.Background())

	// cron computes the first activation asynchronously after Start.
	deadline := time.Now().Add(time.Second)
	for s.Next().IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if next := s.Next(); next.IsZero() || next.After(time.Now().Add(25*time.Hour)) {
		t.Errorf("Next() = %v, want within a day", next)
	}
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	runner := &countingRunner{delay: 200 * time.Millisecond}
	s, err := New(Config{Spec: "@yearly"}, pipeline.NewExclusive(runner), logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.trigger()
	time.Sleep(20 * time.Millisecond)
	s.trigger()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := runner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if !strings.Contains(logs.String(), "skipping scheduled run") {
		t.Errorf("expected skip log, got:\n%s", logs.String())
	}
}

func TestScheduler_StopCancelsRun(t *testing.T) {
	runner := &countingRunner{delay: time.Hour}
	s, err := New(Config{Spec: "@yearly", RunOnStart: true}, runner, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v, want run canceled promptly", err)
	}
}

package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/rickgao/daily-prices/internal/model"
	"github.com/rickgao/daily-prices/internal/pipeline"
)

// RunRecord is the stored summary of one run.
type RunRecord struct {
	RunID        string `badgerhold:"key"`
	StartedAt    time.Time
	Duration     time.Duration
	Status       string // success, partial or failed
	Error        string
	Symbols      int
	PriceRows    int
	FetchFailed  []model.Symbol
	Enriched     int
	EnrichFailed []model.Symbol
	HolderRows   int
	InfoRows     int
}

// StatusFailed marks a run that returned an error.
const StatusFailed = "failed"

// NewRunRecord summarizes a run result and its error.
func NewRunRecord(res pipeline.Result, err error) RunRecord {
	rec := RunRecord{
		RunID:        res.RunID,
		StartedAt:    res.StartedAt,
		Duration:     res.Duration,
		Status:       res.Status,
		Symbols:      res.Symbols,
		PriceRows:    res.PriceRows,
		FetchFailed:  res.FetchFailed,
		Enriched:     res.Enrichment.Succeeded,
		EnrichFailed: res.EnrichFailed,
		HolderRows:   res.HolderRows,
		InfoRows:     res.InfoRows,
	}
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
	}
	return rec
}

// Store persists run records.
type Store struct {
	store *badgerhold.Store
}

// Open opens (or creates) the history database in dir. An empty dir keeps
// history in memory only.
func Open(dir string) (*Store, error) {
	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.InMemory = dir == ""
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{store: store}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.store.Close()
}

// Save inserts or replaces rec.
func (s *Store) Save(rec RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("save run: empty run id")
	}
	if err := s.store.Upsert(rec.RunID, rec); err != nil {
		return fmt.Errorf("save run %s: %w", rec.RunID, err)
	}
	return nil
}

// Get returns the record for runID.
func (s *Store) Get(runID string) (RunRecord, error) {
	var rec RunRecord
	if err := s.store.Get(runID, &rec); err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns every record.
func (s *Store) Recent(limit int) ([]RunRecord, error) {
	var recs []RunRecord
	if err := s.store.Find(&recs, badgerhold.Where("RunID").Ne("")); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	slices.SortFunc(recs, func(a, b RunRecord) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Recording wraps a runner and saves every completed run. A failure to save
// is logged and does not change the run's outcome.
type Recording struct {
	runner pipeline.Runner
	store  *Store
	logger *slog.Logger
}

// NewRecording creates a Recording runner.
func NewRecording(runner pipeline.Runner, store *Store, logger *slog.Logger) *Recording {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recording{runner: runner, store: store, logger: logger}
}

// Run runs the wrapped runner and records the outcome.
func (r *Recording) Run(ctx context.Context) (pipeline.Result, error) {
	res, err := r.runner.Run(ctx)
	if res.RunID == "" {
		return res, err
	}
	if saveErr := r.store.Save(NewRunRecord(res, err)); saveErr != nil {
		r.logger.Warn("failed to record run", "run_id", res.RunID, "err", saveErr)
	}
	return res, err
}

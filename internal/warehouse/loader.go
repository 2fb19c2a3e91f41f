package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/daily-prices/internal/model"
)

// DB begins transactions. *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Config holds destination settings.
type Config struct {
	Schema           string
	HoldersTable     string
	InfoTable        string
	HoldersChunkSize int // rows per INSERT (default: 250)
	InfoChunkSize    int // rows per INSERT (default: 10)
}

// DefaultConfig returns the standard destination tables.
func DefaultConfig() Config {
	return Config{
		Schema:           "stg",
		HoldersTable:     "yfinance_institutional_investors",
		InfoTable:        "yfinance_stock_information",
		HoldersChunkSize: 250,
		InfoChunkSize:    10,
	}
}

// LoaderStats tracks cumulative load activity.
type LoaderStats struct {
	Tables int64 // tables replaced
	Rows   int64 // rows inserted
	Chunks int64 // INSERT statements executed
	Errors int64 // failed loads
}

// Loader replaces warehouse tables.
type Loader struct {
	cfg    Config
	db     DB
	logger *slog.Logger

	mu    sync.Mutex
	stats LoaderStats
}

// NewLoader creates a new Loader.
func NewLoader(cfg Config, db DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Schema == "" {
		cfg.Schema = def.Schema
	}
	if cfg.HoldersTable == "" {
		cfg.HoldersTable = def.HoldersTable
	}
	if cfg.InfoTable == "" {
		cfg.InfoTable = def.InfoTable
	}
	if cfg.HoldersChunkSize <= 0 {
		cfg.HoldersChunkSize = def.HoldersChunkSize
	}
	if cfg.InfoChunkSize <= 0 {
		cfg.InfoChunkSize = def.InfoChunkSize
	}
	return &Loader{cfg: cfg, db: db, logger: logger}
}

// Stats returns current metrics.
func (l *Loader) Stats() LoaderStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// ReplaceHolders replaces the institutional holders table with records.
func (l *Loader) ReplaceHolders(ctx context.Context, records []model.InstitutionalHolderRecord) error {
	t := HoldersTable(l.cfg.Schema, l.cfg.HoldersTable, records)
	return l.Replace(ctx, t, l.cfg.HoldersChunkSize)
}

// ReplaceInfo replaces the instrument info table with records.
func (l *Loader) ReplaceInfo(ctx context.Context, records []model.InstrumentInfoRecord) error {
	t := InfoTable(l.cfg.Schema, l.cfg.InfoTable, records)
	return l.Replace(ctx, t, l.cfg.InfoChunkSize)
}

// Replace drops and recreates t, then inserts its rows chunkSize at a time,
// all in one transaction.
func (l *Loader) Replace(ctx context.Context, t Table, chunkSize int) error {
	start := time.Now()

	chunks, err := l.replace(ctx, t, chunkSize)
	if err != nil {
		l.mu.Lock()
		l.stats.Errors++
		l.mu.Unlock()
		return fmt.Errorf("replace %s: %w", t.Ident(), err)
	}

	l.mu.Lock()
	l.stats.Tables++
	l.stats.Rows += int64(len(t.Rows))
	l.stats.Chunks += int64(chunks)
	l.mu.Unlock()

	l.logger.Info("replaced table",
		"table", t.Schema+"."+t.Name,
		"rows", len(t.Rows),
		"columns", len(t.Columns),
		"chunks", chunks,
		"duration", time.Since(start),
	)
	return nil
}

func (l *Loader) replace(ctx context.Context, t Table, chunkSize int) (int, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx)

	stmts := []string{
		"CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{t.Schema}.Sanitize(),
		"DROP TABLE IF EXISTS " + t.Ident(),
		t.CreateSQL(),
	}
	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s); err != nil {
			return 0, err
		}
	}

	chunks := t.Chunks(chunkSize)
	for i, rows := range chunks {
		args := make([]any, 0, len(rows)*len(t.Columns))
		for _, r := range rows {
			args = append(args, r...)
		}
		if _, err := tx.Exec(ctx, t.InsertSQL(len(rows)), args...); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", i, err)
		}
		l.logger.Debug("inserted chunk",
			"table", t.Name,
			"chunk", i,
			"count", len(rows),
		)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(chunks), nil
}

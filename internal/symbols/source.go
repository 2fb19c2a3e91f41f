package symbols

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rickgao/daily-prices/internal/blob"
	"github.com/rickgao/daily-prices/internal/model"
)

// DefaultColumn is the header of the symbol column in the reference file.
const DefaultColumn = "symbol"

// Source reads the dynamic symbol list from a CSV object in a blob store and
// appends the reference instruments.
type Source struct {
	store     blob.Store
	name      string
	column    string
	reference []model.Symbol
	logger    *slog.Logger
}

// NewSource creates a Source reading object name from store.
func NewSource(store blob.Store, name, column string, reference []model.Symbol, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if column == "" {
		column = DefaultColumn
	}
	return &Source{
		store:     store,
		name:      name,
		column:    column,
		reference: reference,
		logger:    logger,
	}
}

// Symbols returns the file's symbols in file order followed by any reference
// instrument not already listed. Blank cells and repeats are skipped.
func (s *Source) Symbols(ctx context.Context) ([]model.Symbol, error) {
	data, err := s.store.Get(ctx, s.name)
	if err != nil {
		return nil, fmt.Errorf("read symbol list: %w", err)
	}

	listed, err := ParseCSV(data, s.column)
	if err != nil {
		return nil, fmt.Errorf("parse symbol list %s: %w", s.name, err)
	}

	out := WithReference(listed, s.reference)

	s.logger.Info("loaded symbols",
		"file", s.name,
		"listed", len(listed),
		"count", len(out),
	)

	return out, nil
}

// ParseCSV extracts the distinct non-blank values of column from CSV data.
// The header match is case-insensitive.
func ParseCSV(data []byte, column string) ([]model.Symbol, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", column)
	}

	var out []model.Symbol
	seen := make(map[model.Symbol]struct{})
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if idx >= len(rec) {
			continue
		}

		sym := strings.TrimSpace(rec[idx])
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}

	return out, nil
}

// WithReference appends each reference instrument not already in symbols.
func WithReference(symbols, reference []model.Symbol) []model.Symbol {
	out := make([]model.Symbol, 0, len(symbols)+len(reference))
	out = append(out, symbols...)
	for _, ref := range reference {
		if !model.IsReference(ref, out) {
			out = append(out, ref)
		}
	}
	return out
}

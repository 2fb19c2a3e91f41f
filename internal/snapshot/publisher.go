package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rickgao/daily-prices/internal/blob"
	"github.com/rickgao/daily-prices/internal/model"
)

// DefaultName is the logical name of the published snapshot.
const DefaultName = "dailystockprices.csv"

// Header is the snapshot's column order. The misspelled last column is read
// by existing consumers of the file and must not change.
var Header = []string{
	"date",
	"ticker",
	"open",
	"high",
	"low",
	"close",
	"adj_close",
	"previous_close",
	"percent_increase",
	"percent_increase_multipler",
}

// Publisher writes snapshots to a blob store.
type Publisher struct {
	store  blob.Store
	name   string
	logger *slog.Logger
}

// NewPublisher creates a Publisher writing to name in store.
func NewPublisher(store blob.Store, name string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = DefaultName
	}
	return &Publisher{store: store, name: name, logger: logger}
}

// Name returns the logical name snapshots are published under.
func (p *Publisher) Name() string {
	return p.name
}

// Publish encodes records and overwrites the snapshot.
func (p *Publisher) Publish(ctx context.Context, records []model.DailyPriceRecord) error {
	start := time.Now()

	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.store.Put(ctx, p.name, data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	p.logger.Info("published snapshot",
		"name", p.name,
		"rows", len(records),
		"bytes", len(data),
		"duration", time.Since(start),
	)
	return nil
}

// Encode renders records as CSV with Header as the first line.
func Encode(records []model.DailyPriceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, err
	}

	row := make([]string, len(Header))
	for _, r := range records {
		row[0] = r.Date.String()
		row[1] = r.Symbol
		row[2] = formatFloat(r.Open)
		row[3] = formatFloat(r.High)
		row[4] = formatFloat(r.Low)
		row[5] = formatFloat(r.Close)
		row[6] = formatFloat(r.AdjClose)
		row[7] = formatFloat(r.PreviousClose)
		row[8] = formatFloat(r.PercentChange)
		row[9] = formatFloat(r.PercentChangeMultiplier)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

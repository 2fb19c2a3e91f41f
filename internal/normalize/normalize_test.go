package normalize

import (
	"reflect"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"

	"github.com/rickgao/daily-prices/internal/model"
)

// setRow fills every provider field for one date.
func setRow(raw model.RawSeries, sym, date string, o, h, l, c, adj float64) {
	raw.Set(sym, model.FieldOpen, date, null.FloatFrom(o))
	raw.Set(sym, model.FieldHigh, date, null.FloatFrom(h))
	raw.Set(sym, model.FieldLow, date, null.FloatFrom(l))
	raw.Set(sym, model.FieldClose, date, null.FloatFrom(c))
	raw.Set(sym, model.FieldAdjClose, date, null.FloatFrom(adj))
	raw.Set(sym, model.FieldVolume, date, null.FloatFrom(1000))
}

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCanonicalField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Open", "open"},
		{"Adj Close", "adj_close"},
		{"ADJ  CLOSE", "adj_close"},
		{"Volume", "volume"},
		{"close", "close"},
	}
	for _, tt := range tests {
		if got := CanonicalField(tt.in); got != tt.want {
			t.Errorf("CanonicalField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	raw := model.RawSeries{}
	setRow(raw, "BBB", "2024-01-03", 5, 6, 4, 5.5, 5.4)
	setRow(raw, "BBB", "2024-01-02", 4, 5, 3, 4.5, 4.4)
	setRow(raw, "AAA", "2024-01-02", 10, 11, 9, 10.5, 10.4)
	setRow(raw, "AAA", "2024-01-04", 11, 12, 10, 11.5, 11.4)
	// null close drops the row
	setRow(raw, "AAA", "2024-01-03", 1, 1, 1, 1, 1)
	raw.Set("AAA", model.FieldClose, "2024-01-03", null.Float{})
	// missing adj close drops the row
	raw.Set("AAA", model.FieldOpen, "2024-01-05", null.FloatFrom(1))
	raw.Set("AAA", model.FieldHigh, "2024-01-05", null.FloatFrom(1))
	raw.Set("AAA", model.FieldLow, "2024-01-05", null.FloatFrom(1))
	raw.Set("AAA", model.FieldClose, "2024-01-05", null.FloatFrom(1))
	// unparseable date
	setRow(raw, "AAA", "01/06/2024", 1, 1, 1, 1, 1)

	rows, stats, err := Normalize(raw, model.ProviderDateLayout)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := []model.PriceRow{
		{Date: date("2024-01-02"), Symbol: "AAA", Open: 10, High: 11, Low: 9, Close: 10.5, AdjClose: 10.4},
		{Date: date("2024-01-04"), Symbol: "AAA", Open: 11, High: 12, Low: 10, Close: 11.5, AdjClose: 11.4},
		{Date: date("2024-01-02"), Symbol: "BBB", Open: 4, High: 5, Low: 3, Close: 4.5, AdjClose: 4.4},
		{Date: date("2024-01-03"), Symbol: "BBB", Open: 5, High: 6, Low: 4, Close: 5.5, AdjClose: 5.4},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows =\n%+v\nwant\n%+v", rows, want)
	}

	wantStats := Stats{Symbols: 2, RowsIn: 7, RowsKept: 4, DroppedNull: 2, DroppedBadDate: 1}
	if stats != wantStats {
		t.Errorf("stats = %+v, want %+v", stats, wantStats)
	}
}

func TestNormalize_NonPositiveClose(t *testing.T) {
	raw := model.RawSeries{}
	setRow(raw, "AAA", "2020-01-02", 0, 0, 0, 0, 0)
	setRow(raw, "AAA", "2020-01-03", 5, 5, 5, 5, 5)
	setRow(raw, "BBB", "2020-01-02", 1, 1, 1, -1, 1)

	rows, stats, err := Normalize(raw, model.ProviderDateLayout)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := []model.PriceRow{
		{Date: date("2020-01-03"), Symbol: "AAA", Open: 5, High: 5, Low: 5, Close: 5, AdjClose: 5},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %+v, want %+v", rows, want)
	}
	if stats.DroppedClose != 2 || stats.DroppedNull != 0 {
		t.Errorf("stats = %+v, want DroppedClose 2 and DroppedNull 0", stats)
	}
}

func TestNormalize_Duplicates(t *testing.T) {
	raw := model.RawSeries{}
	setRow(raw, "AAA", "2024-01-02", 1, 1, 1, 1, 1)
	setRow(raw, "AAA", "2024-1-2", 2, 2, 2, 2, 2)

	rows, stats, err := Normalize(raw, "2006-1-2")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(rows) != 1 || stats.Duplicates != 1 {
		t.Fatalf("rows = %+v, stats = %+v, want one row and one duplicate", rows, stats)
	}
	// "2024-01-02" sorts before "2024-1-2", so it is the first occurrence.
	if rows[0].Close != 1 {
		t.Errorf("kept close = %v, want 1 (first occurrence)", rows[0].Close)
	}
}

func TestNormalize_CaseCollapsedFields(t *testing.T) {
	raw := model.RawSeries{}
	setRow(raw, "AAA", "2024-01-02", 1, 1, 1, 1, 1)
	raw.Set("AAA", "adj close", "2024-01-02", null.Float{})

	rows, _, err := Normalize(raw, model.ProviderDateLayout)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (valid value wins over null)", len(rows))
	}
}

func TestNormalize_EmptyLayout(t *testing.T) {
	if _, _, err := Normalize(model.RawSeries{}, ""); err == nil {
		t.Error("expected error for empty layout")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := model.RawSeries{}
	setRow(raw, "ZZZ", "2024-01-03", 3, 3, 3, 3, 3)
	setRow(raw, "AAA", "2024-01-03", 2, 2, 2, 2, 2)
	setRow(raw, "AAA", "2024-01-02", 1, 1, 1, 1, 1)
	raw.Set("AAA", model.FieldLow, "2024-01-04", null.FloatFrom(1))

	rows, _, err := Normalize(raw, model.ProviderDateLayout)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	again := Renormalize(rows)
	if !reflect.DeepEqual(again, rows) {
		t.Errorf("Renormalize changed clean rows:\n%+v\n%+v", again, rows)
	}
}

func TestRenormalize_SortsAndDedups(t *testing.T) {
	rows := []model.PriceRow{
		{Date: date("2024-01-03"), Symbol: "BBB", Close: 3},
		{Date: date("2024-01-02"), Symbol: "BBB", Close: 2},
		{Date: date("2024-01-02"), Symbol: "AAA", Close: 1},
		{Date: date("2024-01-02"), Symbol: "BBB", Close: 99},
	}

	got := Renormalize(rows)
	want := []model.PriceRow{
		{Date: date("2024-01-02"), Symbol: "AAA", Close: 1},
		{Date: date("2024-01-02"), Symbol: "BBB", Close: 2},
		{Date: date("2024-01-03"), Symbol: "BBB", Close: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Renormalize() = %+v, want %+v", got, want)
	}
	if rows[0].Symbol != "BBB" {
		t.Error("Renormalize must not reorder its input")
	}
}

package warehouse

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/daily-prices/internal/model"
)

// maxParams is PostgreSQL's limit on bind parameters per statement.
const maxParams = 65535

// Column is a destination column.
type Column struct {
	Name string
	Type string
}

// Table is a fully materialized destination table.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
	Rows    [][]any
}

// Ident returns the schema-qualified, quoted table name.
func (t Table) Ident() string {
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// CreateSQL returns the CREATE TABLE statement.
func (t Table) CreateSQL() string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.Ident(), strings.Join(cols, ", "))
}

// InsertSQL returns a multi-row INSERT for n rows with positional parameters.
func (t Table) InsertSQL(n int) string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = pgx.Identifier{c.Name}.Sanitize()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", t.Ident(), strings.Join(names, ", "))

	p := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range t.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(p))
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// Chunks splits the rows into groups of at most size rows, shrinking size if
// needed to stay under the bind parameter limit.
func (t Table) Chunks(size int) [][][]any {
	if size <= 0 {
		size = 1
	}
	if cols := len(t.Columns); cols > 0 && size*cols > maxParams {
		size = maxParams / cols
	}

	var out [][][]any
	for start := 0; start < len(t.Rows); start += size {
		end := min(start+size, len(t.Rows))
		out = append(out, t.Rows[start:end])
	}
	return out
}

// HoldersTable builds the institutional holders table.
func HoldersTable(schema, name string, records []model.InstitutionalHolderRecord) Table {
	t := Table{
		Schema: schema,
		Name:   name,
		Columns: []Column{
			{"index", "BIGINT"},
			{"symbol", "TEXT"},
			{"holder", "TEXT"},
			{"shares", "BIGINT"},
			{"date_reported", "DATE"},
			{"pct_held", "DOUBLE PRECISION"},
			{"value", "DOUBLE PRECISION"},
		},
		Rows: make([][]any, 0, len(records)),
	}

	for i, r := range records {
		var reported *time.Time
		if r.DateReported.Valid {
			d := r.DateReported.V.In(time.UTC)
			reported = &d
		}
		t.Rows = append(t.Rows, []any{
			int64(i), r.Symbol, r.Holder, r.Shares, reported, r.PctHeld, r.Value,
		})
	}
	return t
}

// InfoTable builds the wide instrument info table. Its columns are the sorted
// union of every record's attribute names; missing attributes are NULL.
func InfoTable(schema, name string, records []model.InstrumentInfoRecord) Table {
	names := attributeUnion(records)

	t := Table{
		Schema:  schema,
		Name:    name,
		Columns: make([]Column, 0, len(names)+2),
		Rows:    make([][]any, 0, len(records)),
	}
	t.Columns = append(t.Columns, Column{"index", "BIGINT"}, Column{"symbol", "TEXT"})
	for _, n := range names {
		t.Columns = append(t.Columns, Column{n, "TEXT"})
	}

	for i, r := range records {
		attrs := foldAttributes(r)
		row := make([]any, 0, len(t.Columns))
		row = append(row, int64(i), r.Symbol)
		for _, n := range names {
			row = append(row, RenderValue(attrs[strings.ToLower(n)]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// attributeUnion returns every attribute name except "symbol", sorted.
// Names are compared case-insensitively since PostgreSQL column names are.
func attributeUnion(records []model.InstrumentInfoRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		for _, n := range r.AttributeNames() {
			key := strings.ToLower(n)
			if key == "symbol" || key == "index" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// foldAttributes keys a record's attributes by lower-cased name so every
// spelling of a name lands in the same column. When a record carries several
// spellings, the first non-nil one in name order wins.
func foldAttributes(r model.InstrumentInfoRecord) map[string]any {
	out := make(map[string]any, len(r.Attributes))
	for _, n := range r.AttributeNames() {
		key := strings.ToLower(n)
		if v, ok := out[key]; ok && v != nil {
			continue
		}
		out[key] = r.Attributes[n]
	}
	return out
}

// RenderValue converts an attribute value to its TEXT form. nil stays NULL.
func RenderValue(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case bool:
		s = strconv.FormatBool(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case json.Number:
		s = x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			s = fmt.Sprint(x)
		} else {
			s = string(b)
		}
	}
	return &s
}

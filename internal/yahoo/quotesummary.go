package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"

	"github.com/rickgao/daily-prices/internal/model"
)

// GetQuoteSummary fetches the named modules for symbol, keyed by module name.
func (c *Client) GetQuoteSummary(ctx context.Context, symbol string, modules ...string) (map[string]json.RawMessage, error) {
	query := url.Values{}
	query.Set("modules", strings.Join(modules, ","))

	var resp QuoteSummaryResponse
	if err := c.getWithCrumb(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), query, &resp); err != nil {
		return nil, fmt.Errorf("get quote summary %s: %w", symbol, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("get quote summary %s: %s: %s", symbol, resp.QuoteSummary.Error.Code, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("get quote summary %s: %w", symbol, ErrNoData)
	}

	return resp.QuoteSummary.Result[0], nil
}

// InstitutionalHolders fetches the institutional owners of symbol, tagged with the symbol.
// A symbol the provider covers but with no listed owners yields an empty slice.
func (c *Client) InstitutionalHolders(ctx context.Context, symbol string) ([]model.InstitutionalHolderRecord, error) {
	modules, err := c.GetQuoteSummary(ctx, symbol, "institutionOwnership")
	if err != nil {
		return nil, err
	}

	raw, ok := modules["institutionOwnership"]
	if !ok {
		return nil, fmt.Errorf("institution ownership %s: %w", symbol, ErrNoData)
	}

	var own InstitutionOwnership
	if err := json.Unmarshal(raw, &own); err != nil {
		return nil, fmt.Errorf("decode institution ownership %s: %w", symbol, err)
	}

	holders := make([]model.InstitutionalHolderRecord, 0, len(own.OwnershipList))
	for _, e := range own.OwnershipList {
		holders = append(holders, e.toModel(symbol))
	}
	return holders, nil
}

func (e OwnershipEntry) toModel(symbol string) model.InstitutionalHolderRecord {
	h := model.InstitutionalHolderRecord{
		Symbol:  symbol,
		Holder:  e.Organization,
		PctHeld: e.PctHeld.value(),
		Value:   e.Value.value(),
		Shares:  int64(e.Position.value()),
	}
	if e.ReportDate.Raw != nil {
		h.DateReported = null.ValueFrom(civil.DateOf(time.Unix(int64(*e.ReportDate.Raw), 0).UTC()))
	}
	return h
}

func (v rawValue) value() float64 {
	if v.Raw == nil {
		return 0
	}
	return *v.Raw
}

// Info fetches the instrument's attribute set, flattened across InfoModules.
// Formatted number wrappers are unwrapped to their raw values; "maxAge" keys are dropped.
func (c *Client) Info(ctx context.Context, symbol string) (model.InstrumentInfoRecord, error) {
	modules, err := c.GetQuoteSummary(ctx, symbol, InfoModules...)
	if err != nil {
		return model.InstrumentInfoRecord{}, err
	}
	return FlattenInfo(symbol, modules)
}

// FlattenInfo merges quoteSummary modules into one open attribute map.
// Later modules in InfoModules order win on key collisions.
func FlattenInfo(symbol string, modules map[string]json.RawMessage) (model.InstrumentInfoRecord, error) {
	attrs := make(map[string]any)
	for _, name := range InfoModules {
		raw, ok := modules[name]
		if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return model.InstrumentInfoRecord{}, fmt.Errorf("decode %s module for %s: %w", name, symbol, err)
		}
		for k, v := range fields {
			if k == "maxAge" {
				continue
			}
			if v = unwrap(v); v != nil {
				attrs[k] = v
			}
		}
	}

	if len(attrs) == 0 {
		return model.InstrumentInfoRecord{}, fmt.Errorf("info %s: %w", symbol, ErrNoData)
	}
	attrs["symbol"] = symbol

	return model.InstrumentInfoRecord{Symbol: symbol, Attributes: attrs}, nil
}

// unwrap replaces {"raw": x, "fmt": ...} with x and empty wrappers with nil.
func unwrap(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if raw, ok := m["raw"]; ok {
		return raw
	}
	if _, ok := m["fmt"]; ok {
		return nil
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

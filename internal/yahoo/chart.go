package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/daily-prices/internal/model"
)

// GetChart fetches daily bars for symbol in [start, end).
func (c *Client) GetChart(ctx context.Context, symbol string, start, end time.Time) (*ChartResult, error) {
	query := url.Values{}
	query.Set("period1", strconv.FormatInt(start.Unix(), 10))
	query.Set("period2", strconv.FormatInt(end.Unix(), 10))
	query.Set("interval", "1d")
	query.Set("events", "div,splits")
	query.Set("includeAdjustedClose", "true")

	var resp ChartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), query, &resp); err != nil {
		return nil, fmt.Errorf("get chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("get chart %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("get chart %s: %w", symbol, ErrNoData)
	}

	return &resp.Chart.Result[0], nil
}

// FetchPrices implements the price fetcher contract for a single symbol.
func (c *Client) FetchPrices(ctx context.Context, symbol string, start, end time.Time) (model.RawSeries, error) {
	result, err := c.GetChart(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return result.ToRawSeries(symbol)
}

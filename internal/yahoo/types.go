package yahoo

import "encoding/json"

// ChartResponse from GET /v8/finance/chart/{symbol}
type ChartResponse struct {
	Chart struct {
		Result []ChartResult  `json:"result"`
		Error  *providerError `json:"error"`
	} `json:"chart"`
}

// ChartResult is one symbol's series. Indicator arrays are parallel to Timestamp
// and hold nil where the provider has no value.
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// ChartMeta carries the exchange context needed to map timestamps to trading days.
type ChartMeta struct {
	Symbol               string `json:"symbol"`
	Currency             string `json:"currency"`
	ExchangeName         string `json:"exchangeName"`
	InstrumentType       string `json:"instrumentType"`
	GMTOffset            int    `json:"gmtoffset"` // seconds east of UTC
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	DataGranularity      string `json:"dataGranularity"`
}

// QuoteSummaryResponse from GET /v10/finance/quoteSummary/{symbol}
type QuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *providerError               `json:"error"`
	} `json:"quoteSummary"`
}

// rawValue is Yahoo's formatted number wrapper: {"raw": 0.0842, "fmt": "8.42%"}.
type rawValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

// InstitutionOwnership is the institutionOwnership quoteSummary module.
type InstitutionOwnership struct {
	OwnershipList []OwnershipEntry `json:"ownershipList"`
}

// OwnershipEntry is one institutional holder.
type OwnershipEntry struct {
	Organization string   `json:"organization"`
	ReportDate   rawValue `json:"reportDate"` // raw = unix seconds
	PctHeld      rawValue `json:"pctHeld"`
	Position     rawValue `json:"position"`
	Value        rawValue `json:"value"`
}

// InfoModules are the quoteSummary modules merged into an instrument's info record.
var InfoModules = []string{
	"assetProfile",
	"summaryDetail",
	"defaultKeyStatistics",
	"price",
	"financialData",
	"quoteType",
}

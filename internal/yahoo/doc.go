// Package yahoo provides the Yahoo Finance clients used by the pipeline.
//
// REST endpoints (relative to the query host, e.g. https://query2.finance.yahoo.com):
//   - /v8/finance/chart/{symbol}          daily OHLC, adjusted close and volume
//   - /v10/finance/quoteSummary/{symbol}  institutional ownership and instrument info modules
//
// quoteSummary requires a crumb bound to a session cookie. The client visits
// the cookie page once, reads /v1/test/getcrumb, caches the crumb and refreshes
// it once when a request comes back 401.
//
// FinanceGoFetcher is an alternate price backend built on github.com/piquette/finance-go.
package yahoo

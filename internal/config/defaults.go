package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultProviderBackend   = "rest"
	DefaultProviderBaseURL   = "https://query2.finance.yahoo.com"
	DefaultProviderTimeout   = 30 * time.Second
	DefaultMaxRetries        = 2
	DefaultRateLimit         = 5
	DefaultSymbolsFile       = "stock_tickers_top_10_test.csv"
	DefaultSymbolsColumn     = "symbol"
	DefaultStartDate         = "2019-12-31"
	DefaultFetchConcurrency  = 8
	DefaultRecencyThreshold  = "2024-10-01"
	DefaultEnrichConcurrency = 4
	DefaultEnrichTimeout     = 30 * time.Second
	DefaultBlobBackend       = "fs"
	DefaultBlobPath          = "data"
	DefaultSnapshotName      = "dailystockprices.csv"
	DefaultWarehouseSchema   = "stg"
	DefaultHoldersTable      = "yfinance_institutional_investors"
	DefaultInfoTable         = "yfinance_stock_information"
	DefaultHoldersChunkSize  = 250
	DefaultInfoChunkSize     = 10
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultServerPort        = 8080
	DefaultLogLevel          = "info"
)

// DefaultReferenceInstruments mirrors model.ReferenceInstruments; config does
// not import model to keep the dependency one-way.
var DefaultReferenceInstruments = []string{
	"GC=F", "GBPUSD=X", "EURUSD=X", "USDJPY=X", "CL=F", "^GSPC", "BTC-USD",
}

func (c *PipelineConfig) applyDefaults() {
	// Provider defaults
	if c.Provider.Backend == "" {
		c.Provider.Backend = DefaultProviderBackend
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = DefaultProviderBaseURL
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultMaxRetries
	}
	if c.Provider.RateLimit == 0 {
		c.Provider.RateLimit = DefaultRateLimit
	}

	// Symbols defaults
	if c.Symbols.File == "" {
		c.Symbols.File = DefaultSymbolsFile
	}
	if c.Symbols.Column == "" {
		c.Symbols.Column = DefaultSymbolsColumn
	}
	if c.Symbols.Reference == nil {
		c.Symbols.Reference = append([]string(nil), DefaultReferenceInstruments...)
	}

	// Fetch defaults
	if c.Fetch.StartDate == "" {
		c.Fetch.StartDate = DefaultStartDate
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = DefaultFetchConcurrency
	}

	// Enrich defaults
	if c.Enrich.RecencyThreshold == "" {
		c.Enrich.RecencyThreshold = DefaultRecencyThreshold
	}
	if c.Enrich.Concurrency == 0 {
		c.Enrich.Concurrency = DefaultEnrichConcurrency
	}
	if c.Enrich.Timeout == 0 {
		c.Enrich.Timeout = DefaultEnrichTimeout
	}

	// Blob and snapshot defaults
	if c.Blob.Backend == "" {
		c.Blob.Backend = DefaultBlobBackend
	}
	if c.Blob.Path == "" {
		c.Blob.Path = DefaultBlobPath
	}
	if c.Snapshot.Name == "" {
		c.Snapshot.Name = DefaultSnapshotName
	}

	// Warehouse defaults
	applyDBDefaults(&c.Warehouse.Database)
	if c.Warehouse.Schema == "" {
		c.Warehouse.Schema = DefaultWarehouseSchema
	}
	if c.Warehouse.HoldersTable == "" {
		c.Warehouse.HoldersTable = DefaultHoldersTable
	}
	if c.Warehouse.InfoTable == "" {
		c.Warehouse.InfoTable = DefaultInfoTable
	}
	if c.Warehouse.HoldersChunkSize == 0 {
		c.Warehouse.HoldersChunkSize = DefaultHoldersChunkSize
	}
	if c.Warehouse.InfoChunkSize == 0 {
		c.Warehouse.InfoChunkSize = DefaultInfoChunkSize
	}

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

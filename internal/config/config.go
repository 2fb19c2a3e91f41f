package config

import (
	"time"

	"cloud.google.com/go/civil"
)

// PipelineConfig is the root configuration for a pipeline instance.
type PipelineConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Provider  ProviderConfig  `yaml:"provider"`
	Symbols   SymbolsConfig   `yaml:"symbols"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Enrich    EnrichConfig    `yaml:"enrich"`
	Blob      BlobConfig      `yaml:"blob"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Server    ServerConfig    `yaml:"server"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
}

// InstanceConfig identifies this pipeline deployment.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ProviderConfig holds market-data provider settings.
type ProviderConfig struct {
	Backend    string        `yaml:"backend"`  // "rest" or "finance-go"
	BaseURL    string        `yaml:"base_url"` // Yahoo query host for the rest backend
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RateLimit  int           `yaml:"rate_limit"` // requests per second, shared by all workers
}

// SymbolsConfig locates the reference list of symbols.
type SymbolsConfig struct {
	File      string   `yaml:"file"`      // blob name of the CSV
	Column    string   `yaml:"column"`    // header of the symbol column
	Reference []string `yaml:"reference"` // always fetched, never enriched
}

// FetchConfig holds bulk price fetch settings.
type FetchConfig struct {
	StartDate   string `yaml:"start_date"` // anchor date, YYYY-MM-DD
	Concurrency int    `yaml:"concurrency"`
}

// AnchorDate returns the parsed start date. Validate guarantees it parses.
func (f FetchConfig) AnchorDate() civil.Date {
	d, _ := civil.ParseDate(f.StartDate)
	return d
}

// EnrichConfig holds enrichment loop settings.
type EnrichConfig struct {
	RecencyThreshold string        `yaml:"recency_threshold"` // YYYY-MM-DD
	Concurrency      int           `yaml:"concurrency"`
	Timeout          time.Duration `yaml:"timeout"` // per symbol
}

// Threshold returns the parsed recency threshold. Validate guarantees it parses.
func (e EnrichConfig) Threshold() civil.Date {
	d, _ := civil.ParseDate(e.RecencyThreshold)
	return d
}

// BlobConfig selects the flat-file store used for the symbol list and the snapshot.
type BlobConfig struct {
	Backend string `yaml:"backend"` // "fs" or "badger"
	Path    string `yaml:"path"`
}

// SnapshotConfig holds the published snapshot settings.
type SnapshotConfig struct {
	Name string `yaml:"name"`
}

// WarehouseConfig holds the relational warehouse destination.
type WarehouseConfig struct {
	Database         DBConfig `yaml:"database"`
	Schema           string   `yaml:"schema"`
	HoldersTable     string   `yaml:"holders_table"`
	InfoTable        string   `yaml:"info_table"`
	HoldersChunkSize int      `yaml:"holders_chunk_size"`
	InfoChunkSize    int      `yaml:"info_chunk_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ServerConfig holds the HTTP trigger server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ScheduleConfig holds the cron expression for scheduled runs.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// HistoryConfig locates the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty keeps history in memory
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

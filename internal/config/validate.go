package config

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"
)

// Validate checks that all required fields are set and values are valid.
func (c *PipelineConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Provider.Backend {
	case "rest", "finance-go":
	default:
		return fmt.Errorf("provider.backend must be rest or finance-go, got %q", c.Provider.Backend)
	}
	if c.Provider.MaxRetries < 0 {
		return errors.New("provider.max_retries must be >= 0")
	}
	if c.Provider.RateLimit < 1 {
		return errors.New("provider.rate_limit must be >= 1")
	}

	if c.Symbols.File == "" {
		return errors.New("symbols.file is required")
	}

	anchor, err := civil.ParseDate(c.Fetch.StartDate)
	if err != nil {
		return fmt.Errorf("fetch.start_date must be YYYY-MM-DD, got %q", c.Fetch.StartDate)
	}
	if c.Fetch.Concurrency < 1 {
		return errors.New("fetch.concurrency must be >= 1")
	}

	threshold, err := civil.ParseDate(c.Enrich.RecencyThreshold)
	if err != nil {
		return fmt.Errorf("enrich.recency_threshold must be YYYY-MM-DD, got %q", c.Enrich.RecencyThreshold)
	}
	if !threshold.After(anchor) {
		return fmt.Errorf("enrich.recency_threshold (%s) must be after fetch.start_date (%s)", threshold, anchor)
	}
	if c.Enrich.Concurrency < 1 {
		return errors.New("enrich.concurrency must be >= 1")
	}

	switch c.Blob.Backend {
	case "fs", "badger":
	default:
		return fmt.Errorf("blob.backend must be fs or badger, got %q", c.Blob.Backend)
	}
	if c.Blob.Path == "" {
		return errors.New("blob.path is required")
	}
	if c.Snapshot.Name == "" {
		return errors.New("snapshot.name is required")
	}

	if err := c.Warehouse.Database.validate("warehouse.database"); err != nil {
		return err
	}
	if c.Warehouse.HoldersChunkSize < 1 {
		return errors.New("warehouse.holders_chunk_size must be >= 1")
	}
	if c.Warehouse.InfoChunkSize < 1 {
		return errors.New("warehouse.info_chunk_size must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.History.Enabled && c.History.Path != "" && c.Blob.Backend == "badger" && c.History.Path == c.Blob.Path {
		return errors.New("history.path must differ from blob.path when blob.backend is badger")
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

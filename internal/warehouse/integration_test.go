package warehouse

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/guregu/null/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rickgao/daily-prices/internal/model"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("warehouse"),
		postgres.WithUsername("pipeline"),
		postgres.WithPassword("pipeline"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestLoader_Postgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	l := NewLoader(Config{HoldersChunkSize: 2, InfoChunkSize: 1}, pool, nil)

	reported := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	first := []model.InstitutionalHolderRecord{
		{Symbol: "AAA", Holder: "Vanguard", Shares: 100, DateReported: null.ValueFrom(civil.DateOf(reported)), PctHeld: 0.08, Value: 1e9},
		{Symbol: "AAA", Holder: "Blackrock", Shares: 50},
		{Symbol: "BBB", Holder: "State Street", Shares: 10},
	}
	require.NoError(t, l.ReplaceHolders(ctx, first))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM stg.yfinance_institutional_investors`).Scan(&count))
	assert.Equal(t, 3, count)

	var got time.Time
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT date_reported FROM stg.yfinance_institutional_investors WHERE holder = 'Vanguard'`).Scan(&got))
	assert.True(t, got.Equal(reported), "date_reported = %v", got)

	// A second load replaces rather than appends.
	require.NoError(t, l.ReplaceHolders(ctx, first[:1]))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM stg.yfinance_institutional_investors`).Scan(&count))
	assert.Equal(t, 1, count)

	infos := []model.InstrumentInfoRecord{
		{Symbol: "AAA", Attributes: map[string]any{"symbol": "AAA", "sector": "Technology", "marketCap": 3e12}},
		{Symbol: "BBB", Attributes: map[string]any{"symbol": "BBB", "currency": "USD"}},
	}
	require.NoError(t, l.ReplaceInfo(ctx, infos))

	var marketCap, sector *string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT "marketCap", sector FROM stg.yfinance_stock_information WHERE symbol = 'BBB'`).Scan(&marketCap, &sector))
	assert.Nil(t, marketCap)
	assert.Nil(t, sector)

	require.NoError(t, pool.QueryRow(ctx,
		`SELECT "marketCap" FROM stg.yfinance_stock_information WHERE symbol = 'AAA'`).Scan(&marketCap))
	require.NotNil(t, marketCap)
	assert.Equal(t, "3000000000000", *marketCap)

	stats := l.Stats()
	assert.Equal(t, int64(3), stats.Tables)
	assert.Equal(t, int64(6), stats.Rows)
}

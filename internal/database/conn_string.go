package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/daily-prices/internal/config"
)

// BuildConnString builds a PostgreSQL connection URL from config.
// appName is reported to the server as application_name when non-empty.
func BuildConnString(cfg config.DBConfig, appName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	if appName != "" {
		q.Set("application_name", appName)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Supported DB_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBDriver   string // postgres or sqlite
	DBURL      string // postgres connection string
	SQLitePath string // sqlite database file
	Port       string
	CORSOrigin string
}

// Load reads required values from environment variables.
func Load() (Config, error) {
	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = DriverPostgres
	}

	cfg := Config{
		DBDriver:   driver,
		DBURL:      strings.TrimSpace(os.Getenv("DB_URL")),
		SQLitePath: strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		Port:       strings.TrimSpace(os.Getenv("PORT")),
		CORSOrigin: strings.TrimSpace(os.Getenv("FE_ORIGIN")),
	}

	switch driver {
	case DriverPostgres:
		if cfg.DBURL == "" {
			return Config{}, errors.New("DB_URL required when DB_DRIVER=postgres")
		}
	case DriverSQLite:
		// Local dev fallback so the service runs out-of-the-box.
		if cfg.SQLitePath == "" {
			cfg.SQLitePath = "pulsetrace.db"
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (postgres or sqlite)", driver)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	return cfg, nil
}

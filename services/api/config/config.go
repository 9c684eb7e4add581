package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/paging"
	"github.com/02loveslollipop/tswater/internal/writer"
	"github.com/02loveslollipop/tswater/services/api/db"
)

// Config holds environment-driven settings shared by the API, the watcher
// and the importer.
type Config struct {
	StoreDriver   string
	DatabaseURL   string
	SQLitePath    string
	Table         string
	DateLayout    string
	CodeTableFile string

	Paging     paging.Sizes
	CacheLimit int

	Flush       writer.Policy
	BulkTimeout time.Duration

	Port        int
	BearerToken string
	SessionTTL  time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		StoreDriver: db.DriverPostgres,
		SQLitePath:  "./tswater.db",
		Table:       "tswater",
		DateLayout:  codec.DefaultLayout,
		Paging:      paging.DefaultSizes(),
		Flush:       writer.DefaultPolicy(),
		BulkTimeout: 30 * time.Minute,
		Port:        8080,
		SessionTTL:  30 * time.Minute,
		LogLevel:    "info",
		LogFormat:   "console",
	}

	if v := env("STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.ToLower(v)
	}
	switch cfg.StoreDriver {
	case db.DriverPostgres:
		cfg.DatabaseURL = env("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required")
		}
	case db.DriverSQLite:
		if v := env("SQLITE_PATH"); v != "" {
			cfg.SQLitePath = v
		}
	default:
		return cfg, fmt.Errorf("invalid STORE_DRIVER: %s", cfg.StoreDriver)
	}

	if v := env("TSWATER_TABLE"); v != "" {
		if !db.ValidTableName(v) {
			return cfg, fmt.Errorf("invalid TSWATER_TABLE: %s", v)
		}
		cfg.Table = v
	}

	if v := os.Getenv("DB_DATETIME_FORMAT"); v != "" {
		cfg.DateLayout = v
	}
	cfg.CodeTableFile = env("CODE_TABLE_FILE")

	var err error
	if cfg.Paging.UIPage, err = positiveInt("UI_PAGE_SIZE", cfg.Paging.UIPage); err != nil {
		return cfg, err
	}
	if cfg.Paging.DBWindow, err = positiveInt("DB_WINDOW_SIZE", cfg.Paging.DBWindow); err != nil {
		return cfg, err
	}
	if err := cfg.Paging.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid paging sizes: %w", err)
	}
	if v := env("WINDOW_CACHE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return cfg, fmt.Errorf("invalid WINDOW_CACHE_LIMIT: %s", v)
		}
		cfg.CacheLimit = limit
	}

	if v := env("FLUSH_MODE"); v != "" {
		cfg.Flush.Mode = writer.Mode(strings.ToLower(v))
	}
	if cfg.Flush.MaxRows, err = positiveInt("FLUSH_MAX_ROWS", cfg.Flush.MaxRows); err != nil {
		return cfg, err
	}
	if cfg.Flush.Interval, err = duration("FLUSH_INTERVAL", cfg.Flush.Interval); err != nil {
		return cfg, err
	}
	if err := cfg.Flush.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid flush policy: %w", err)
	}
	if cfg.BulkTimeout, err = duration("BULK_TIMEOUT", cfg.BulkTimeout); err != nil {
		return cfg, err
	}

	if portStr := env("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := env("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")
	if cfg.SessionTTL, err = duration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return cfg, err
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// StoreOptions returns the backend selection.
func (c Config) StoreOptions() db.Options {
	return db.Options{
		Driver:      c.StoreDriver,
		DatabaseURL: c.DatabaseURL,
		SQLitePath:  c.SQLitePath,
		Table:       c.Table,
		Layout:      c.DateLayout,
	}
}

// Codec builds the row codec, loading CODE_TABLE_FILE when set.
func (c Config) Codec() (*codec.RowCodec, error) {
	codes := codec.DefaultCodeTable()
	if c.CodeTableFile != "" {
		var err error
		if codes, err = codec.LoadCodeTable(c.CodeTableFile); err != nil {
			return nil, fmt.Errorf("load code table: %w", err)
		}
	}
	return codec.New(c.DateLayout, codes), nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func positiveInt(key string, def int) (int, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def, fmt.Errorf("invalid %s: %s", key, v)
	}
	return n, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

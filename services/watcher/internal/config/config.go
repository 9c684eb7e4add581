package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/02loveslollipop/tswater/internal/models"
	apiconfig "github.com/02loveslollipop/tswater/services/api/config"
)

const (
	defaultInterval       = 5 * time.Minute
	defaultRequestTimeout = 30 * time.Second
	defaultStationPrefix  = "nivel_"
)

// Config holds runtime configuration for the watcher service. Store, paging
// and flush settings are shared with the API.
type Config struct {
	apiconfig.Config

	FeedURL        string
	Interval       time.Duration
	RequestTimeout time.Duration
	StationPrefix  string
	Channel        models.ChannelType
	Message        models.MessageType
	Once           bool
	DryRun         bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	base, err := apiconfig.Load()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Config:         base,
		Interval:       defaultInterval,
		RequestTimeout: defaultRequestTimeout,
		StationPrefix:  defaultStationPrefix,
		Channel:        models.Channel(models.ChannelGPRS),
		Message:        models.Message(models.MessageTimed),
	}

	cfg.FeedURL = strings.TrimSpace(os.Getenv("FEED_URL"))
	if cfg.FeedURL == "" {
		return cfg, errors.New("FEED_URL is required")
	}

	if v := strings.TrimSpace(os.Getenv("WATCHER_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid WATCHER_INTERVAL: %s", v)
		}
		cfg.Interval = d
	}

	if v := strings.TrimSpace(os.Getenv("WATCHER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v, ok := os.LookupEnv("WATCHER_STATION_PREFIX"); ok {
		cfg.StationPrefix = strings.TrimSpace(v)
	}

	if v := strings.TrimSpace(os.Getenv("WATCHER_CHANNEL")); v != "" {
		if err := cfg.Channel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_CHANNEL: %w", err)
		}
	}
	if v := strings.TrimSpace(os.Getenv("WATCHER_MESSAGE")); v != "" {
		if err := cfg.Message.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_MESSAGE: %w", err)
		}
	}

	cfg.Once = flag("WATCHER_ONCE")
	cfg.DryRun = flag("DRY_RUN")

	return cfg, nil
}

func flag(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return v == "1" || strings.EqualFold(v, "true")
}

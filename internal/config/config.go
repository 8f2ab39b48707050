package config

import (
	"errors"
	"net/url"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds the tool settings, populated from environment variables.
// Per-invocation inputs (run date, target directory, config file) are flags.
type Config struct {
	LogLevel  string
	LogFormat string

	// NOAA NOMADS download configuration.
	NOAABaseURL string
	NOAATimeout time.Duration

	// Optional completion notifications; disabled when no brokers are set.
	KafkaBrokers     []string
	KafkaNotifyTopic string

	// Optional Pushgateway for batch-job metrics; disabled when empty.
	PushgatewayURL string
	PushgatewayJob string
}

// NotifyEnabled reports whether fetch completions should be published to Kafka.
func (c *Config) NotifyEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	noaaTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("NOAA_TIMEOUT", "5m"))
	if err != nil || noaaTimeout <= 0 {
		return nil, errors.New("invalid NOAA_TIMEOUT")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		NOAABaseURL:      sharedcfg.EnvOrDefault("NOAA_BASE_URL", "https://nomads.ncep.noaa.gov/pub/data/nccf/com/gfs/prod"),
		NOAATimeout:      noaaTimeout,
		KafkaBrokers:     brokers,
		KafkaNotifyTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "gfs-fetch-events"),
		PushgatewayURL:   sharedcfg.EnvOrDefault("PUSHGATEWAY_URL", ""),
		PushgatewayJob:   sharedcfg.EnvOrDefault("PUSHGATEWAY_JOB", "tdm_gfs_fetch"),
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("LOG_FORMAT must be json or text")
	}
	if u, err := url.Parse(cfg.NOAABaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid NOAA_BASE_URL")
	}
	if cfg.NotifyEnabled() && cfg.KafkaNotifyTopic == "" {
		return nil, errors.New("KAFKA_NOTIFY_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.PushgatewayURL != "" && cfg.PushgatewayJob == "" {
		return nil, errors.New("PUSHGATEWAY_JOB is required when PUSHGATEWAY_URL is set")
	}

	return cfg, nil
}

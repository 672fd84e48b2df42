package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bookflow BookflowConfig `yaml:"bookflow"`
	Venue    VenueConfig    `yaml:"venue"`
	Books    []BookConfig   `yaml:"books"`
	Channels ChannelsConfig `yaml:"channels"`
	Replica  ReplicaConfig  `yaml:"replica"`
	Journal  JournalConfig  `yaml:"journal"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type BookflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// VenueConfig describes the websocket endpoint and the pacing of outbound
// subscribe requests. The rate limit keeps a misbehaving resync loop from
// turning into a resubscribe storm.
type VenueConfig struct {
	URL                 string        `yaml:"url"`
	DialTimeout         time.Duration `yaml:"dial_timeout"`
	ReconnectDelay      time.Duration `yaml:"reconnect_delay"`
	SubscribesPerSecond int           `yaml:"subscribes_per_second"`
	SubscribeBurst      int           `yaml:"subscribe_burst"`
}

// BookConfig is one replicated order book subscription.
type BookConfig struct {
	Symbol    string `yaml:"symbol"`
	Precision string `yaml:"precision"`
	Frequency string `yaml:"frequency"`
	Length    string `yaml:"length"`
}

type ChannelsConfig struct {
	EventBuffer int `yaml:"event_buffer"`
}

// ReplicaConfig bounds the recording window and the resync watchdog.
type ReplicaConfig struct {
	RecordingWindow time.Duration `yaml:"recording_window"`
	ResyncTimeout   time.Duration `yaml:"resync_timeout"`
}

type JournalConfig struct {
	Directory string        `yaml:"directory"`
	Parquet   ParquetConfig `yaml:"parquet"`
	S3        S3Config      `yaml:"s3"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

const defaultConfigPath = "config/config.yml"

// envConfigPaths maps environments to the configuration file used when the
// caller did not ask for a specific one.
var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Venue: VenueConfig{
			URL:                 "wss://api-pub.bitfinex.com/ws/2",
			DialTimeout:         10 * time.Second,
			ReconnectDelay:      5 * time.Second,
			SubscribesPerSecond: 5,
			SubscribeBurst:      10,
		},
		Channels: ChannelsConfig{EventBuffer: 256},
		Replica: ReplicaConfig{
			RecordingWindow: 3300 * time.Second,
			ResyncTimeout:   30 * time.Second,
		},
		Journal: JournalConfig{Directory: "data"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Journal.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Journal.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Journal.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Journal.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Journal.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Journal.S3.Bucket = strings.TrimSpace(config.Journal.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Bookflow.Name == "" {
		return fmt.Errorf("bookflow.name is required")
	}
	if cfg.Bookflow.Version == "" {
		return fmt.Errorf("bookflow.version is required")
	}

	if cfg.Venue.URL == "" {
		return fmt.Errorf("venue.url is required")
	}
	if cfg.Venue.SubscribesPerSecond <= 0 {
		return fmt.Errorf("venue.subscribes_per_second must be greater than 0")
	}

	if len(cfg.Books) == 0 {
		return fmt.Errorf("at least one book subscription is required")
	}
	for i, book := range cfg.Books {
		if !strings.HasPrefix(book.Symbol, "t") && !strings.HasPrefix(book.Symbol, "f") {
			return fmt.Errorf("books[%d].symbol %q must carry a t or f prefix", i, book.Symbol)
		}
		if book.Precision == "" {
			return fmt.Errorf("books[%d].precision is required", i)
		}
	}

	if cfg.Channels.EventBuffer <= 0 {
		return fmt.Errorf("channels.event_buffer must be greater than 0")
	}

	if cfg.Replica.RecordingWindow <= 0 {
		return fmt.Errorf("replica.recording_window must be greater than 0")
	}
	if cfg.Replica.ResyncTimeout <= 0 {
		return fmt.Errorf("replica.resync_timeout must be greater than 0")
	}

	if cfg.Journal.Directory == "" {
		return fmt.Errorf("journal.directory is required")
	}

	if cfg.Journal.S3.Enabled {
		if cfg.Journal.S3.Bucket == "" {
			return fmt.Errorf("journal.s3.bucket is required when S3 is enabled")
		}
		if cfg.Journal.S3.Region == "" {
			return fmt.Errorf("journal.s3.region is required when S3 is enabled")
		}
		// Outside production-like environments ambient AWS credentials
		// (instance profile, shared config) are an acceptable fallback.
		if IsProductionLike(AppEnvironment()) &&
			(cfg.Journal.S3.AccessKeyID == "" || cfg.Journal.S3.SecretAccessKey == "") {
			return fmt.Errorf("journal.s3.access_key_id and journal.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Journal.S3.Bucket) {
			return fmt.Errorf("journal.s3.bucket '%s' is invalid", cfg.Journal.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}

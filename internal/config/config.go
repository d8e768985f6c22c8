// Package config provides configuration management for cif using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute
	defaultQueryTimeout    = 30 * time.Second
	defaultStageBatchSize  = 5714 // transactionMutationCap / mutationsPerRow, see internal/catalog/capacity.go
	defaultChunkLines      = 50000
	defaultChunkWorkers    = 3
	defaultPublishBatch    = 5000
)

// Config holds all configuration for the application.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Ingestion     IngestionConfig     `mapstructure:"ingestion"`
	Disaggregation DisaggregationConfig `mapstructure:"disaggregation"`
	Queue         QueueConfig         `mapstructure:"queue"`
	GCS           GCSConfig           `mapstructure:"gcs"`
}

// ServerConfig holds HTTP server configuration for the `cif serve` façade.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// IngestionConfig holds Intake staging/batching configuration.
type IngestionConfig struct {
	// StageBatchSize caps how many stage rows a single promotion
	// transaction covers, bounded above by the catalog's mutation cap.
	StageBatchSize int `mapstructure:"stage_batch_size"`
	// StageBufferThreshold is the in-memory threshold before diskslice
	// spills batch buffering to disk.
	StageBufferThreshold ByteSize      `mapstructure:"stage_buffer_threshold"`
	RetryAttempts         int           `mapstructure:"retry_attempts"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
}

// DisaggregationConfig holds dispatch-mode tuning.
type DisaggregationConfig struct {
	DefaultChunkLines int `mapstructure:"default_chunk_lines"`
	ChunkWorkers      int `mapstructure:"chunk_workers"`
	PublishBatchSize  int `mapstructure:"publish_batch_size"`
}

// QueueConfig holds message bus configuration.
type QueueConfig struct {
	// Driver selects the concrete queue.Publisher/Subscriber implementation.
	// "memqueue" (default) is the in-process, in-memory push bus.
	Driver      string        `mapstructure:"driver"`
	Topic       string        `mapstructure:"topic"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
}

// GCSConfig holds configuration for the Google Cloud Storage connector
// variants (blob_store, blob_store_dynamic).
type GCSConfig struct {
	ProjectID          string `mapstructure:"project_id"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CIF_ and use underscores for
// nesting. Example: CIF_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cif")
		v.AddConfigPath("$HOME/.cif")
	}

	v.SetEnvPrefix("CIF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "cif.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.query_timeout", defaultQueryTimeout)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("ingestion.stage_batch_size", defaultStageBatchSize)
	v.SetDefault("ingestion.stage_buffer_threshold", int64(64*1024*1024))
	v.SetDefault("ingestion.retry_attempts", 3)
	v.SetDefault("ingestion.retry_delay", 5*time.Second)

	v.SetDefault("disaggregation.default_chunk_lines", defaultChunkLines)
	v.SetDefault("disaggregation.chunk_workers", defaultChunkWorkers)
	v.SetDefault("disaggregation.publish_batch_size", defaultPublishBatch)

	v.SetDefault("queue.driver", "memqueue")
	v.SetDefault("queue.topic", "cif.disaggregation")
	v.SetDefault("queue.poll_interval", 2*time.Second)
	v.SetDefault("queue.max_attempts", 5)

	v.SetDefault("gcs.request_timeout", 30*time.Second)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Ingestion.StageBatchSize < 1 {
		return fmt.Errorf("ingestion.stage_batch_size must be at least 1")
	}
	if c.Disaggregation.ChunkWorkers < 1 {
		return fmt.Errorf("disaggregation.chunk_workers must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	Model    ModelConfig    `mapstructure:"model"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Anomaly  AnomalyConfig  `mapstructure:"anomaly"`
	Export   ExportConfig   `mapstructure:"export"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DataConfig locates the enrollment dataset
type DataConfig struct {
	Path        string   `mapstructure:"path"`         // CSV with date, state, district, total_enrollment
	DateLayouts []string `mapstructure:"date_layouts"` // Go time layouts tried in order (empty = built-in list)
	Delimiter   string   `mapstructure:"delimiter"`    // Single-character field separator (default: ",")
}

// ModelConfig locates the exported model artifacts
type ModelConfig struct {
	ForestPath  string `mapstructure:"forest_path"`  // Random forest JSON
	EncoderPath string `mapstructure:"encoder_path"` // District label encoder JSON
}

// ForecastConfig holds the scenario heuristics
type ForecastConfig struct {
	ResidualMultiplier float64 `mapstructure:"residual_multiplier"` // Fraction of history stddev (default: 0.15)
	Z                  float64 `mapstructure:"z"`                   // Interval half-width multiplier (default: 1.96)
	OptimisticFactor   float64 `mapstructure:"optimistic_factor"`   // lag_1 scale for the optimistic case (default: 1.10)
	PessimisticFactor  float64 `mapstructure:"pessimistic_factor"`  // lag_1 scale for the pessimistic case (default: 0.90)
	HorizonMonths      int     `mapstructure:"horizon_months"`      // Months from the latest record to the forecast date (default: 1)
}

// AnomalyConfig holds IQR detection settings
type AnomalyConfig struct {
	Multiplier   float64 `mapstructure:"multiplier"`    // Fence width in IQRs (default: 1.5)
	DefaultScope string  `mapstructure:"default_scope"` // global or district
	DefaultLimit int     `mapstructure:"default_limit"` // Max anomalies returned when limit is unset
}

// ExportConfig holds forecast export settings
type ExportConfig struct {
	Dir           string `mapstructure:"dir"`            // Output directory for the CLI tool
	DefaultFormat string `mapstructure:"default_format"` // csv or xlsx
}

// EventsConfig represents event publishing configuration
type EventsConfig struct {
	Type          string        `mapstructure:"type"`           // none (default), memory, nats, redis, kafka
	URL           string        `mapstructure:"url"`            // Broker URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Password      string        `mapstructure:"password"`       // Optional authentication
	SubjectPrefix string        `mapstructure:"subject_prefix"` // Prepended to every subject (default: "enrollwatch")
	Timeout       time.Duration `mapstructure:"timeout"`        // Per-publish timeout

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`     // Redis database number (default: 0)
	RedisStream string `mapstructure:"redis_stream"` // Redis stream prefix (default: "enrollwatch")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}

	if err := c.Anomaly.Validate(); err != nil {
		return fmt.Errorf("anomaly config: %w", err)
	}

	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export config: %w", err)
	}

	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	return nil
}

// Validate validates data configuration
func (c *DataConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("data.path is required")
	}

	if c.Delimiter != "" && len([]rune(c.Delimiter)) != 1 {
		return fmt.Errorf("data.delimiter must be a single character, got %q", c.Delimiter)
	}

	return nil
}

// Validate validates model configuration
func (c *ModelConfig) Validate() error {
	if c.ForestPath == "" {
		return fmt.Errorf("model.forest_path is required")
	}

	if c.EncoderPath == "" {
		return fmt.Errorf("model.encoder_path is required")
	}

	return nil
}

// Validate validates forecast configuration
func (c *ForecastConfig) Validate() error {
	if c.ResidualMultiplier < 0 {
		return fmt.Errorf("forecast.residual_multiplier must not be negative")
	}

	if c.Z < 0 {
		return fmt.Errorf("forecast.z must not be negative")
	}

	if c.OptimisticFactor <= 0 || c.PessimisticFactor <= 0 {
		return fmt.Errorf("forecast scenario factors must be positive")
	}

	if c.PessimisticFactor > c.OptimisticFactor {
		return fmt.Errorf("forecast.pessimistic_factor cannot exceed forecast.optimistic_factor")
	}

	if c.HorizonMonths < 0 {
		return fmt.Errorf("forecast.horizon_months must not be negative")
	}

	return nil
}

// Validate validates anomaly configuration
func (c *AnomalyConfig) Validate() error {
	if c.Multiplier <= 0 {
		return fmt.Errorf("anomaly.multiplier must be positive")
	}

	if c.DefaultScope != "global" && c.DefaultScope != "district" {
		return fmt.Errorf("anomaly.default_scope must be 'global' or 'district'")
	}

	if c.DefaultLimit < 0 {
		return fmt.Errorf("anomaly.default_limit must not be negative")
	}

	return nil
}

// Validate validates export configuration
func (c *ExportConfig) Validate() error {
	if c.DefaultFormat != "csv" && c.DefaultFormat != "xlsx" {
		return fmt.Errorf("export.default_format must be 'csv' or 'xlsx'")
	}

	return nil
}

// Validate validates events configuration
func (c *EventsConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("events.timeout must not be negative")
	}

	switch strings.ToLower(c.Type) {
	case "", "none", "memory":
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("events.url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("events.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("events.type must be one of: none, memory, nats, redis, kafka")
	}

	return nil
}

// Validate validates metrics configuration
func (c *MetricsConfig) Validate() error {
	if c.Enabled && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/'")
	}

	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys is required when auth is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ENROLLWATCH_SERVER_HTTP_PORT.
const EnvPrefix = "ENROLLWATCH"

// LoadDotEnv loads KEY=VALUE files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")                // Current directory
		v.AddConfigPath("./configs")        // Project configs directory
		v.AddConfigPath("/etc/enrollwatch") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	// Data defaults
	v.SetDefault("data.path", d.Data.Path)
	v.SetDefault("data.date_layouts", d.Data.DateLayouts)
	v.SetDefault("data.delimiter", d.Data.Delimiter)

	// Model defaults
	v.SetDefault("model.forest_path", d.Model.ForestPath)
	v.SetDefault("model.encoder_path", d.Model.EncoderPath)

	// Forecast defaults
	v.SetDefault("forecast.residual_multiplier", d.Forecast.ResidualMultiplier)
	v.SetDefault("forecast.z", d.Forecast.Z)
	v.SetDefault("forecast.optimistic_factor", d.Forecast.OptimisticFactor)
	v.SetDefault("forecast.pessimistic_factor", d.Forecast.PessimisticFactor)
	v.SetDefault("forecast.horizon_months", d.Forecast.HorizonMonths)

	// Anomaly defaults
	v.SetDefault("anomaly.multiplier", d.Anomaly.Multiplier)
	v.SetDefault("anomaly.default_scope", d.Anomaly.DefaultScope)
	v.SetDefault("anomaly.default_limit", d.Anomaly.DefaultLimit)

	// Export defaults
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.default_format", d.Export.DefaultFormat)

	// Events defaults
	v.SetDefault("events.type", d.Events.Type)
	v.SetDefault("events.url", d.Events.URL)
	v.SetDefault("events.password", "")
	v.SetDefault("events.subject_prefix", d.Events.SubjectPrefix)
	v.SetDefault("events.timeout", d.Events.Timeout)
	v.SetDefault("events.redis_db", 0)
	v.SetDefault("events.redis_stream", d.Events.RedisStream)
	v.SetDefault("events.kafka_brokers", []string{})

	// Metrics defaults
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Data: DataConfig{
			Path:      "./data/enrollment.csv",
			Delimiter: ",",
		},
		Model: ModelConfig{
			ForestPath:  "./models/forest.json",
			EncoderPath: "./models/encoder.json",
		},
		Forecast: ForecastConfig{
			ResidualMultiplier: 0.15,
			Z:                  1.96,
			OptimisticFactor:   1.10,
			PessimisticFactor:  0.90,
			HorizonMonths:      1,
		},
		Anomaly: AnomalyConfig{
			Multiplier:   1.5,
			DefaultScope: "global",
			DefaultLimit: 100,
		},
		Export: ExportConfig{
			Dir:           "./exports",
			DefaultFormat: "csv",
		},
		Events: EventsConfig{
			Type:          "none",
			SubjectPrefix: "enrollwatch",
			Timeout:       2 * time.Second,
			RedisStream:   "enrollwatch",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: time.RFC3339,
		},
	}
}

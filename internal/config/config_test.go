package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			modify:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid http port",
			modify:  func(c *Config) { c.Server.HTTPPort = 0 },
			wantErr: true,
		},
		{
			name:    "missing data path",
			modify:  func(c *Config) { c.Data.Path = "" },
			wantErr: true,
		},
		{
			name:    "multi-character delimiter",
			modify:  func(c *Config) { c.Data.Delimiter = ";;" },
			wantErr: true,
		},
		{
			name:    "missing encoder path",
			modify:  func(c *Config) { c.Model.EncoderPath = "" },
			wantErr: true,
		},
		{
			name:    "swapped scenario factors",
			modify:  func(c *Config) { c.Forecast.OptimisticFactor, c.Forecast.PessimisticFactor = 0.9, 1.1 },
			wantErr: true,
		},
		{
			name:    "invalid anomaly scope",
			modify:  func(c *Config) { c.Anomaly.DefaultScope = "state" },
			wantErr: true,
		},
		{
			name:    "invalid export format",
			modify:  func(c *Config) { c.Export.DefaultFormat = "pdf" },
			wantErr: true,
		},
		{
			name:    "nats without url",
			modify:  func(c *Config) { c.Events.Type = "nats" },
			wantErr: true,
		},
		{
			name:    "kafka without brokers",
			modify:  func(c *Config) { c.Events.Type = "kafka" },
			wantErr: true,
		},
		{
			name:    "unknown events type",
			modify:  func(c *Config) { c.Events.Type = "sqs" },
			wantErr: true,
		},
		{
			name:    "auth without keys",
			modify:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: true,
		},
		{
			name:    "relative metrics path",
			modify:  func(c *Config) { c.Metrics.Path = "metrics" },
			wantErr: true,
		},
		{
			name: "invalid logging level",
			modify: func(c *Config) {
				c.Logging = LoggingConfig{Level: "invalid", Format: "json"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected HTTPPort 8080, got %d", cfg.Server.HTTPPort)
	}

	if cfg.Forecast.ResidualMultiplier != 0.15 || cfg.Forecast.Z != 1.96 {
		t.Errorf("unexpected forecast heuristics: %+v", cfg.Forecast)
	}

	if cfg.Anomaly.Multiplier != 1.5 {
		t.Errorf("expected anomaly multiplier 1.5, got %v", cfg.Anomaly.Multiplier)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsProduction() {
		t.Error("default config should be production mode")
	}

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"

	if !cfg.IsDevelopment() {
		t.Error("config with debug/console should be development mode")
	}

	exportPath := cfg.GetExportPath("forecast_A_20240101.csv")
	if exportPath != "exports/forecast_A_20240101.csv" {
		t.Errorf("expected 'exports/forecast_A_20240101.csv', got %s", exportPath)
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.Equal(t, "enrollwatch.forecast.generated", cfg.Events.Subject("forecast.generated"))

	cfg.Events.SubjectPrefix = ""
	assert.Equal(t, "anomaly.scan", cfg.Events.Subject("anomaly.scan"))
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Export.Dir = filepath.Join(t.TempDir(), "nested", "exports")

	require.NoError(t, cfg.EnsureDirectories())
	info, err := os.Stat(cfg.Export.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  http_port: 9000
data:
  path: /srv/enrollment.csv
  date_layouts: ["02-01-2006"]
forecast:
  horizon_months: 3
events:
  type: memory
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("ENROLLWATCH_SERVER_HTTP_PORT", "9100")
	t.Setenv("ENROLLWATCH_ANOMALY_DEFAULT_SCOPE", "district")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, "/srv/enrollment.csv", cfg.Data.Path)
	assert.Equal(t, []string{"02-01-2006"}, cfg.Data.DateLayouts)
	assert.Equal(t, 3, cfg.Forecast.HorizonMonths)
	assert.Equal(t, 0.15, cfg.Forecast.ResidualMultiplier)
	assert.Equal(t, "district", cfg.Anomaly.DefaultScope)
	assert.Equal(t, "memory", cfg.Events.Type)
	assert.Equal(t, 2*time.Second, cfg.Events.Timeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anomaly:\n  multiplier: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	cfg := LoadOrDefault(path)
	assert.Equal(t, 1.5, cfg.Anomaly.Multiplier)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENROLLWATCH_TEST_DOTENV=loaded\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("ENROLLWATCH_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("ENROLLWATCH_TEST_DOTENV"))
}

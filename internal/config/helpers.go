package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Export.Dir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// GetExportPath returns the full path for an export file
func (c *Config) GetExportPath(filename string) string {
	return filepath.Join(c.Export.Dir, filename)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// Subject prefixes an event name with the configured subject prefix
func (c *EventsConfig) Subject(name string) string {
	if c.SubjectPrefix == "" {
		return name
	}
	return c.SubjectPrefix + "." + name
}

// Package config loads the server configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the server configuration. The schema matches the
// /api/config endpoint so the same JSON shape serves both startup
// configuration and runtime inspection. Fields are pointers so partial
// configs are safe: omitted fields fall back to defaults.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr *string `json:"listen_addr,omitempty"`

	// DBPath is the sqlite database file path.
	DBPath *string `json:"db_path,omitempty"`

	// MigrationsDir holds the golang-migrate SQL files.
	MigrationsDir *string `json:"migrations_dir,omitempty"`

	// ConvertWorkers bounds the compute fan-out of batch conversions.
	ConvertWorkers *int `json:"convert_workers,omitempty"`

	// PlotDir receives mask renders saved to disk.
	PlotDir *string `json:"plot_dir,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json extension
// and stay under the max file size. Fields omitted from the JSON retain
// their defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.ConvertWorkers != nil && *c.ConvertWorkers < 1 {
		return fmt.Errorf("convert_workers must be at least 1, got %d", *c.ConvertWorkers)
	}
	if c.DBPath != nil && *c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty when set")
	}
	return nil
}

// GetListenAddr returns the listen_addr value or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// GetDBPath returns the db_path value or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return "cocoset.db"
	}
	return *c.DBPath
}

// GetMigrationsDir returns the migrations_dir value or the default.
func (c *Config) GetMigrationsDir() string {
	if c.MigrationsDir == nil || *c.MigrationsDir == "" {
		return "migrations"
	}
	return *c.MigrationsDir
}

// GetConvertWorkers returns the convert_workers value or the default.
func (c *Config) GetConvertWorkers() int {
	if c.ConvertWorkers == nil {
		return 4
	}
	return *c.ConvertWorkers
}

// GetPlotDir returns the plot_dir value or the default.
func (c *Config) GetPlotDir() string {
	if c.PlotDir == nil || *c.PlotDir == "" {
		return "plots"
	}
	return *c.PlotDir
}

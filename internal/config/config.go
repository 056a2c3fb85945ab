// Package config provides configuration for the querier and its tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Karekin/influxdb/internal/errors"
)

// Config holds the querier configuration.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Identifier cache configuration
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Querier configuration
	Querier QuerierConfig `json:"querier" yaml:"querier"`

	// Logging configuration
	Log LogConfig `json:"log" yaml:"log"`
}

// CatalogConfig holds catalog database configuration.
type CatalogConfig struct {
	// Path is the path to the SQLite catalog database
	Path string `json:"path" yaml:"path"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// CacheConfig holds the per-kind capacity of the identifier cache.
type CacheConfig struct {
	TableCapacity     int `json:"table_capacity" yaml:"table_capacity"`
	NamespaceCapacity int `json:"namespace_capacity" yaml:"namespace_capacity"`
	PartitionCapacity int `json:"partition_capacity" yaml:"partition_capacity"`
}

// QuerierConfig holds chunk loading configuration.
type QuerierConfig struct {
	// Concurrency is the number of chunks built in parallel when loading a table
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Format is json or console
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/iox",
		Storage: StorageConfig{
			Type: "local",
		},
		Cache: CacheConfig{
			TableCapacity:     10000,
			NamespaceCapacity: 1000,
			PartitionCapacity: 100000,
		},
		Querier: QuerierConfig{
			Concurrency: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/iox"
	}

	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(c.DataDir, "catalog.db")
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "objects")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return invalid("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return invalid(fmt.Sprintf("invalid storage type: %s (must be local or s3)", c.Storage.Type))
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return invalid("s3.bucket is required when storage type is s3")
	}

	if c.Cache.TableCapacity <= 0 || c.Cache.NamespaceCapacity <= 0 || c.Cache.PartitionCapacity <= 0 {
		return invalid("cache capacities must be positive")
	}

	if c.Querier.Concurrency <= 0 {
		return invalid(fmt.Sprintf("querier.concurrency must be positive, got %d", c.Querier.Concurrency))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("invalid log level: %s", c.Log.Level))
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return invalid(fmt.Sprintf("invalid log format: %s (must be json or console)", c.Log.Format))
	}

	return nil
}

func invalid(msg string) error {
	return apperrors.NewValidationError(apperrors.CodeInvalidConfig, msg)
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the IOX_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("IOX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("IOX_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// Storage configuration
	if v := os.Getenv("IOX_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("IOX_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("IOX_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("IOX_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("IOX_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("IOX_S3_USE_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = v == "true" || v == "1"
	}

	if v := os.Getenv("IOX_QUERIER_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Querier.Concurrency)
	}

	if v := os.Getenv("IOX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("IOX_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.Catalog.Path),
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

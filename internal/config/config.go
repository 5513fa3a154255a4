// Package config loads the YAML configuration file the resolver process
// starts from.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	apperrors "github.com/eureka-network/eureka-sink/internal/errors"
)

// DatabaseConfig is the store's connection section.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// ServerConfig is the status/metrics HTTP surface section.
type ServerConfig struct {
	StatusPort  int `yaml:"status_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// ResolverConfig is the worker-loop behavior section.
type ResolverConfig struct {
	ExitOnCompletion bool         `yaml:"exit_on_completion"`
	Gateway          GatewayConfig `yaml:"gateway"`
}

// GatewayConfig configures the built-in LinkResolvers.
type GatewayConfig struct {
	IPFSGatewayURL string `yaml:"ipfs_gateway_url"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DedupeConfig is the optional in-flight guard section.
type DedupeConfig struct {
	RedisAddr string `yaml:"redis_addr"`
}

// Config is the full resolver process configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Resolver ResolverConfig `yaml:"resolver"`
	Logging  LoggingConfig  `yaml:"logging"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
}

// Default returns a Config populated with the values a fresh install runs
// with before any file or environment overrides are applied.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:          "host=localhost port=5432 user=eureka_resolver dbname=eureka_offchain sslmode=disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Server: ServerConfig{
			StatusPort:  8080,
			MetricsPort: 9090,
		},
		Resolver: ResolverConfig{
			ExitOnCompletion: false,
			Gateway: GatewayConfig{
				IPFSGatewayURL: "https://ipfs.io/ipfs",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML file at path, applies it on top of Default(), then
// overlays any environment variable overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeValidation, "failed to read config file: %s", path)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeValidation, "failed to parse config file: %s", path)
	}

	loadFromEnv(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadFromEnv overlays a small set of deployment-time overrides that are
// awkward to express in a committed YAML file: the database DSN (often
// holds a credential), the optional dedupe Redis address, and the status
// port (ignored if not numeric).
func loadFromEnv(config *Config) {
	if v := os.Getenv("EUREKA_DATABASE_DSN"); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv("EUREKA_DEDUPE_REDIS_ADDR"); v != "" {
		config.Dedupe.RedisAddr = v
	}
	if v := os.Getenv("EUREKA_SERVER_STATUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.StatusPort = port
		}
	}
}

// validate checks the fields every component needs non-empty or
// in-range, independent of whether they came from the file, the
// environment, or the defaults.
func validate(config *Config) error {
	if config.Database.DSN == "" {
		return apperrors.NewValidationError("database.dsn is required")
	}
	if config.Database.MaxOpenConns <= 0 {
		return apperrors.NewValidationError("database.max_open_conns must be greater than 0")
	}
	if config.Database.MaxIdleConns < 0 {
		return apperrors.NewValidationError("database.max_idle_conns must be non-negative")
	}
	if config.Server.StatusPort <= 0 || config.Server.StatusPort > 65535 {
		return apperrors.NewValidationError("server.status_port must be between 1 and 65535")
	}
	if config.Server.MetricsPort <= 0 || config.Server.MetricsPort > 65535 {
		return apperrors.NewValidationError("server.metrics_port must be between 1 and 65535")
	}
	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.NewValidationError(fmt.Sprintf("logging.level must be one of debug, info, warn, error, got %q", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "json", "console":
	default:
		return apperrors.NewValidationError(fmt.Sprintf("logging.format must be one of json, console, got %q", config.Logging.Format))
	}
	return nil
}

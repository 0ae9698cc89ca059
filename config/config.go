// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"kennel.yaml",
	"kennel.yml",
	"/etc/kennel/config.yaml",
	"/etc/kennel/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "KENNEL_CONFIG_PATH"

// envPrefix is the prefix of configuration environment variables:
// KENNEL_LOGGING_LEVEL -> logging.level.
const envPrefix = "KENNEL_"

// Config is the host-facing configuration of a watchdog.
type Config struct {
	Logging  LoggingConfig  `koanf:"logging"`
	Pools    PoolsConfig    `koanf:"pools"`
	Intercom IntercomConfig `koanf:"intercom"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`
}

// PoolsConfig caps the worker counts of the built-in pools. Zero means
// unbounded.
type PoolsConfig struct {
	WatchdogWorkers int `koanf:"watchdog_workers" validate:"gte=0"`
	SharedWorkers   int `koanf:"shared_workers" validate:"gte=0"`

	// DrainTimeout bounds how long WaitFinished waits for tasks to
	// return after the supervisor exits.
	DrainTimeout time.Duration `koanf:"drain_timeout" validate:"gte=0"`
}

// IntercomConfig tunes the intercom channels.
type IntercomConfig struct {
	// Capacity is the bounded queue size of each intercom channel.
	Capacity int `koanf:"capacity" validate:"gte=1"`
}

// Default returns a Config with production defaults. These are applied
// first, then overridden by the config file and environment variables.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Pools: PoolsConfig{
			WatchdogWorkers: 0,
			SharedWorkers:   0,
			DrainTimeout:    5 * time.Second,
		},
		Intercom: IntercomConfig{
			Capacity: 10,
		},
	}
}

// Load builds the configuration in three layers: struct defaults, then an
// optional YAML file, then KENNEL_-prefixed environment variables, and
// validates the result.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path; path may be empty.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// KENNEL_LOGGING_LEVEL -> logging.level
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration's struct constraints.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// findConfigFile returns the first existing config file, honoring the
// KENNEL_CONFIG_PATH override.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

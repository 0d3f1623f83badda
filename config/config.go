// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"time"
)

// Config is the on-disk shape of a DPS server config file: which backend
// to dial, where, with what credentials, plus the ambient logging/metrics
// sections every DPS process carries regardless of backend.
type Config struct {
	Backend  BackendConfig
	Lock     LockConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Health   HealthConfig
}

// BackendConfig names one of the closed set of backends and how to reach it.
type BackendConfig struct {
	// Name must be one of the driver.BackendName values: "redis",
	// "redis-cluster", "redis-cluster-plus-plus", "memcached", "cassandra",
	// "cloudant", "hbase", "mongo", "couchbase".
	Name string `mapstructure:"name" yaml:"name" json:"name"`

	// Servers lists every host:port endpoint; adapters that accept a REST
	// base list (HBase/Cloudant/Couchbase) round-robin across Servers.
	Servers []string `mapstructure:"servers" yaml:"servers" json:"servers"`

	Username string `mapstructure:"username" yaml:"username" json:"username"`
	Password string `mapstructure:"password" yaml:"password" json:"password"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`

	// ConnectTimeout bounds the initial Connect call.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`

	Resilience ResilienceConfig `mapstructure:"resilience" yaml:"resilience" json:"resilience"`
}

// ResilienceConfig controls the driver.Guard wrapped around the selected
// backend's data-plane calls. Any *Enabled flag left false leaves that
// primitive out of the wrap entirely.
type ResilienceConfig struct {
	CircuitBreakerEnabled bool          `mapstructure:"circuit_breaker_enabled" yaml:"circuit_breaker_enabled" json:"circuit_breaker_enabled"`
	MaxFailures           int           `mapstructure:"max_failures" yaml:"max_failures" json:"max_failures"`
	OpenTimeout           time.Duration `mapstructure:"open_timeout" yaml:"open_timeout" json:"open_timeout"`

	BulkheadEnabled bool `mapstructure:"bulkhead_enabled" yaml:"bulkhead_enabled" json:"bulkhead_enabled"`
	MaxConcurrent   int  `mapstructure:"max_concurrent" yaml:"max_concurrent" json:"max_concurrent"`

	CallTimeoutEnabled bool          `mapstructure:"call_timeout_enabled" yaml:"call_timeout_enabled" json:"call_timeout_enabled"`
	CallTimeout        time.Duration `mapstructure:"call_timeout" yaml:"call_timeout" json:"call_timeout"`
}

// LockConfig tunes LockManager's default acquisition behavior, overridable
// per-call by a caller that passes explicit lease/wait values.
type LockConfig struct {
	DefaultLease   time.Duration `mapstructure:"default_lease" yaml:"default_lease" json:"default_lease"`
	DefaultMaxWait time.Duration `mapstructure:"default_max_wait" yaml:"default_max_wait" json:"default_max_wait"`
}

// LoggingConfig controls the zap-backed logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level" json:"level"`             // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format" yaml:"format" json:"format"`           // "json", "console"
	OutputPath string `mapstructure:"output_path" yaml:"output_path" json:"output_path"`
}

// MetricsConfig controls the Prometheus collector's exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
}

// HealthConfig controls periodic backend connectivity probing.
type HealthConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval" json:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// DefaultConfigPath is used when no path is given to Load/SetConfigFile.
const DefaultConfigPath = "etc/no-sql-kv-store-servers.cfg"

// DefaultConfig returns a configuration with default values: a single-node
// Redis backend on localhost, structured JSON logging to stdout, metrics
// disabled, and health checks enabled.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Name:           "redis",
			Servers:        []string{"localhost:6379"},
			ConnectTimeout: 5 * time.Second,
			Resilience: ResilienceConfig{
				CircuitBreakerEnabled: true,
				MaxFailures:           5,
				OpenTimeout:           60 * time.Second,
				BulkheadEnabled:       false,
				MaxConcurrent:         64,
				CallTimeoutEnabled:    true,
				CallTimeout:           3 * time.Second,
			},
		},
		Lock: LockConfig{
			DefaultLease:   5 * time.Second,
			DefaultMaxWait: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Health: HealthConfig{
			Enabled:       true,
			CheckInterval: 30 * time.Second,
			Timeout:       3 * time.Second,
		},
	}
}

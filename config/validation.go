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
	"fmt"
)

// validBackends is the closed set of backend names a config file may select,
// mirroring driver.BackendName without importing pkg/driver (config has no
// business depending on the adapter layer it merely names).
var validBackends = map[string]bool{
	"redis":                   true,
	"redis-cluster":           true,
	"redis-cluster-plus-plus": true,
	"memcached":               true,
	"cassandra":               true,
	"cloudant":                true,
	"hbase":                   true,
	"mongo":                   true,
	"couchbase":               true,
}

// Validate validates the entire configuration.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateLock(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	if !validBackends[c.Backend.Name] {
		return fmt.Errorf("backend name must be one of the supported backends, got %q", c.Backend.Name)
	}
	if len(c.Backend.Servers) == 0 {
		return fmt.Errorf("backend.servers must list at least one endpoint")
	}
	if c.Backend.ConnectTimeout <= 0 {
		return fmt.Errorf("backend.connect_timeout must be positive")
	}
	return c.Backend.Resilience.validate()
}

func (rc ResilienceConfig) validate() error {
	if rc.CircuitBreakerEnabled {
		if rc.MaxFailures <= 0 {
			return fmt.Errorf("backend.resilience.max_failures must be positive when circuit_breaker_enabled")
		}
		if rc.OpenTimeout <= 0 {
			return fmt.Errorf("backend.resilience.open_timeout must be positive when circuit_breaker_enabled")
		}
	}
	if rc.BulkheadEnabled && rc.MaxConcurrent <= 0 {
		return fmt.Errorf("backend.resilience.max_concurrent must be positive when bulkhead_enabled")
	}
	if rc.CallTimeoutEnabled && rc.CallTimeout <= 0 {
		return fmt.Errorf("backend.resilience.call_timeout must be positive when call_timeout_enabled")
	}
	return nil
}

func (c *Config) validateLock() error {
	if c.Lock.DefaultLease <= 0 {
		return fmt.Errorf("lock.default_lease must be positive")
	}
	if c.Lock.DefaultMaxWait <= 0 {
		return fmt.Errorf("lock.default_max_wait must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}
	return nil
}

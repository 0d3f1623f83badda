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
	"strings"

	"github.com/spf13/viper"
)

// Load reads the config file at path (YAML, JSON, TOML, or ini — anything
// viper's codec registry supports) layered over DefaultConfig's values,
// applies DPS_-prefixed environment overrides, and validates the result. An
// empty path falls back to DefaultConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(path)
	v.SetEnvPrefix("dps")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults seeds viper with DefaultConfig's values so that a config file
// supplying only a handful of keys still yields a complete Config.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("backend.name", def.Backend.Name)
	v.SetDefault("backend.servers", def.Backend.Servers)
	v.SetDefault("backend.connect_timeout", def.Backend.ConnectTimeout)
	v.SetDefault("lock.default_lease", def.Lock.DefaultLease)
	v.SetDefault("lock.default_max_wait", def.Lock.DefaultMaxWait)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output_path", def.Logging.OutputPath)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("metrics.path", def.Metrics.Path)
	v.SetDefault("health.enabled", def.Health.Enabled)
	v.SetDefault("health.check_interval", def.Health.CheckInterval)
	v.SetDefault("health.timeout", def.Health.Timeout)
}

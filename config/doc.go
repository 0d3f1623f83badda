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

// Package config provides configuration management for a DPS process.
//
// # Configuration Structure
//
// The configuration is organized into sections:
//   - Backend: which NoSQL backend to dial, its servers and credentials
//   - Lock: default lease/wait tuning for LockManager
//   - Logging: structured logging
//   - Metrics: Prometheus exposition
//   - Health: periodic backend connectivity probing
//
// # Usage
//
//	cfg, err := config.Load("etc/no-sql-kv-store-servers.cfg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Environment variable override (DPS_ prefixed, "." replaced with "_"):
//
//	export DPS_BACKEND_NAME="redis-cluster"
//	export DPS_METRICS_ENABLED=true
//
// # Validation
//
// All configuration is validated before use — see Config.Validate() for the
// complete rule set (closed backend-name enum, positive timeouts, valid
// logging level/format).
package config

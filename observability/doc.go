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

// Package observability provides monitoring, logging, and health-check
// capabilities for a dps process.
//
// # Overview
//
// This package bundles the cross-cutting concerns a dpsctl serve process
// exposes alongside the dps.Process facade it hosts:
//   - Metrics collection (Prometheus)
//   - Structured logging
//   - Health checks (liveness, readiness, startup)
//
// # Metrics
//
// Collect and expose metrics for monitoring:
//
//	collector := metrics.NewPrometheusCollector()
//	collector.IncrementCounter("dps_store_ops_total", map[string]string{"op": "put"})
//
//	http.Handle("/metrics", collector.Handler())
//
// # Logging
//
// Structured logging with context propagation:
//
//	logger := logging.NewStructuredLogger(logging.LevelInfo)
//
//	ctx := logging.WithRequestID(ctx, "req-123")
//	logger.Info(ctx, "store created",
//	    logging.String("name", "widgets"),
//	    logging.Int64("store_id", 7),
//	)
//
// # Health Checks
//
// Liveness, readiness, and startup probes, plus a backend connectivity
// check built over a dps.Process's driver:
//
//	liveness := health.NewLivenessChecker()
//	readiness := health.NewReadinessChecker(
//	    health.NewBackendChecker("redis", drv),
//	)
//
//	http.Handle("/health/live", health.Handler(liveness))
//	http.Handle("/health/ready", health.Handler(readiness))
//
// # Bundled Manager
//
//	manager, err := observability.NewManager(&observability.ManagerConfig{
//	    Component: "dps-node-1",
//	    Config:    observability.DefaultConfig(),
//	})
//	defer manager.Shutdown(context.Background())
//
//	http.ListenAndServe(":9100", manager.HTTPHandler())
package observability

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

// Package metrics provides metrics collection and export for a dps process.
//
// # Overview
//
// This package provides a Prometheus-based metrics collector with support for:
//   - Counters (monotonic increasing values)
//   - Gauges (arbitrary values)
//   - Histograms (distribution of values)
//   - Summaries (quantiles)
//
// # Basic Usage
//
//	collector := metrics.NewPrometheusCollector()
//
//	// Increment counter
//	collector.IncrementCounter("dps_store_ops_total", map[string]string{
//	    "op":      "put",
//	    "outcome": "ok",
//	})
//
//	// Observe histogram
//	collector.ObserveHistogram("dps_store_op_duration_seconds", 0.003, map[string]string{
//	    "op": "put",
//	})
//
//	// Expose metrics
//	http.Handle("/metrics", collector.Handler())
//
// # No-op Collector
//
// When metrics are disabled, NewNoopCollector satisfies the same interface
// without touching the default Prometheus registry:
//
//	collector := metrics.NewNoopCollector()
//
// # Custom Metrics
//
// Wrap a Collector to expose typed, named recording methods:
//
//	type StoreMetrics struct {
//	    collector metrics.Collector
//	}
//
//	func (m *StoreMetrics) RecordOp(op string, seconds float64) {
//	    m.collector.ObserveHistogram("dps_store_op_duration_seconds", seconds, map[string]string{
//	        "op": op,
//	    })
//	}
package metrics

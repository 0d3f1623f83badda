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

package metrics

import "net/http"

// NoopCollector discards every observation. It is the default Collector for
// a Process built with metrics disabled, so instrumented call sites never
// need a nil check.
type NoopCollector struct{}

// NewNoopCollector returns a Collector that does nothing.
func NewNoopCollector() *NoopCollector { return &NoopCollector{} }

func (NoopCollector) IncrementCounter(name string, labels map[string]string)             {}
func (NoopCollector) AddCounter(name string, value float64, labels map[string]string)     {}
func (NoopCollector) SetGauge(name string, value float64, labels map[string]string)       {}
func (NoopCollector) ObserveHistogram(name string, value float64, labels map[string]string) {}
func (NoopCollector) ObserveSummary(name string, value float64, labels map[string]string)   {}

func (NoopCollector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

var _ Collector = (*NoopCollector)(nil)

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

package health

import (
	"context"

	"github.com/streamdps/dps/pkg/driver"
)

// BackendChecker reports whether a dps process's backend driver is
// connected. It does not itself attempt reconnection.
type BackendChecker struct {
	name string
	drv  driver.KVDriver
}

// NewBackendChecker wraps drv as a readiness Checker named name, e.g. the
// configured backend's name ("redis", "cassandra", ...).
func NewBackendChecker(name string, drv driver.KVDriver) *BackendChecker {
	return &BackendChecker{name: name, drv: drv}
}

// Name returns the name of this health check.
func (c *BackendChecker) Name() string {
	return "backend:" + c.name
}

// Check reports the backend as healthy when its driver is connected.
func (c *BackendChecker) Check(ctx context.Context) CheckResult {
	if c.drv.IsConnected() {
		return CheckResult{Name: c.Name(), Status: StatusHealthy}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusUnhealthy,
		Message: "backend driver reports not connected",
	}
}

var _ Checker = (*BackendChecker)(nil)

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

// Package integration runs scenario tests across two cooperating
// dps.Process instances sharing one in-memory driver.KVDriver, standing in
// for two host processes attached to the same NoSQL backend without
// requiring a live network service in CI.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/config"
	"github.com/streamdps/dps/dps"
	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/memdriver"
)

// newPair returns two independent, fully initialized Process instances
// wired over one shared, connected memdriver.Driver.
func newPair(t *testing.T) (a, b *dps.Process) {
	t.Helper()

	drv := memdriver.New()
	require.NoError(t, drv.Connect(context.Background(), nil, driver.Credentials{}))

	cfgA := config.DefaultConfig()
	cfgA.Lock.DefaultLease = 50 * time.Millisecond
	cfgA.Lock.DefaultMaxWait = 200 * time.Millisecond

	cfgB := config.DefaultConfig()
	cfgB.Lock.DefaultLease = 50 * time.Millisecond
	cfgB.Lock.DefaultMaxWait = 500 * time.Millisecond

	a = dps.New()
	require.NoError(t, a.InitializeWithDriver(cfgA, drv))

	b = dps.New()
	require.NoError(t, b.InitializeWithDriver(cfgB, drv))

	return a, b
}

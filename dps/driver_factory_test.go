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

package dps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/config"
	"github.com/streamdps/dps/pkg/driver"
)

func TestNewDriver_UnsupportedBackend(t *testing.T) {
	_, err := newDriver(driver.BackendName("oracle"), config.BackendConfig{})
	assert.Error(t, err)
}

func TestNewDriver_EveryKnownBackend(t *testing.T) {
	names := []driver.BackendName{
		driver.BackendRedis,
		driver.BackendRedisCluster,
		driver.BackendRedisClusterPlusPlus,
		driver.BackendMemcached,
		driver.BackendCassandra,
		driver.BackendMongo,
		driver.BackendHBase,
		driver.BackendCloudant,
		driver.BackendCouchbase,
	}
	for _, name := range names {
		t.Run(string(name), func(t *testing.T) {
			drv, err := newDriver(name, config.BackendConfig{})
			require.NoError(t, err)
			require.NotNil(t, drv)
		})
	}
}

func TestNewDriver_WrapsGuardWhenResilienceEnabled(t *testing.T) {
	cfg := config.BackendConfig{
		Resilience: config.ResilienceConfig{
			CircuitBreakerEnabled: true,
			MaxFailures:           5,
			OpenTimeout:           time.Minute,
		},
	}
	drv, err := newDriver(driver.BackendRedis, cfg)
	require.NoError(t, err)
	_, ok := drv.(*driver.Guard)
	assert.True(t, ok, "expected newDriver to wrap the driver in a Guard")
}

func TestNewDriver_NoGuardWhenResilienceDisabled(t *testing.T) {
	drv, err := newDriver(driver.BackendRedis, config.BackendConfig{})
	require.NoError(t, err)
	_, ok := drv.(*driver.Guard)
	assert.False(t, ok, "expected newDriver not to wrap the driver when resilience is disabled")
}

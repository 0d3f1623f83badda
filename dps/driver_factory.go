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
	"fmt"
	"strconv"

	"github.com/streamdps/dps/config"
	"github.com/streamdps/dps/core/resilience"
	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/cassandra"
	"github.com/streamdps/dps/pkg/driver/cloudant"
	"github.com/streamdps/dps/pkg/driver/couchbase"
	"github.com/streamdps/dps/pkg/driver/hbase"
	"github.com/streamdps/dps/pkg/driver/memcached"
	"github.com/streamdps/dps/pkg/driver/mongo"
	"github.com/streamdps/dps/pkg/driver/redis"
)

// newDriver builds the concrete KVDriver implementation for the closed set
// of backend names a config file may select, wrapped in a driver.Guard per
// cfg.Resilience. Connect is left to the caller since only it knows the
// servers/credentials to dial with.
func newDriver(name driver.BackendName, cfg config.BackendConfig) (driver.KVDriver, error) {
	var drv driver.KVDriver
	var err error
	switch name {
	case driver.BackendRedis, driver.BackendRedisCluster, driver.BackendRedisClusterPlusPlus:
		drv = redis.New(name, redis.DefaultOptions())
	case driver.BackendMemcached:
		drv = memcached.New(memcached.DefaultOptions())
	case driver.BackendCassandra:
		drv = cassandra.New(cassandra.DefaultOptions())
	case driver.BackendMongo:
		drv = mongo.New(mongo.DefaultOptions())
	case driver.BackendHBase:
		drv = hbase.New(hbase.DefaultOptions())
	case driver.BackendCloudant:
		drv = cloudant.New(cloudant.DefaultOptions())
	case driver.BackendCouchbase:
		drv = couchbase.New(couchbase.DefaultOptions())
	default:
		err = fmt.Errorf("unsupported backend %q", name)
	}
	if err != nil {
		return nil, err
	}
	return wrapGuard(drv, cfg.Resilience), nil
}

// wrapGuard wraps drv in a driver.Guard per rc, leaving drv unwrapped if
// every primitive is disabled.
func wrapGuard(drv driver.KVDriver, rc config.ResilienceConfig) driver.KVDriver {
	var gc driver.GuardConfig
	if rc.CircuitBreakerEnabled {
		gc.CircuitBreaker = &resilience.CircuitBreakerConfig{
			MaxFailures:         rc.MaxFailures,
			Timeout:             rc.OpenTimeout,
			MaxHalfOpenRequests: 1,
		}
	}
	if rc.BulkheadEnabled {
		gc.Bulkhead = &resilience.BulkheadConfig{
			MaxConcurrent: rc.MaxConcurrent,
		}
	}
	if rc.CallTimeoutEnabled {
		gc.Timeout = &resilience.TimeoutConfig{Duration: rc.CallTimeout}
	}
	if gc.CircuitBreaker == nil && gc.Bulkhead == nil && gc.Timeout == nil {
		return drv
	}
	return driver.NewGuard(drv, gc)
}

// redisClusterHashTag returns the Redis Cluster hash tag for storeID so that
// every data key, the store's header fields, and its mutex key land on the
// same hash slot — required for CompareAndSwap/WATCH and for the per-store
// mutex to ever succeed against a clustered backend.
func redisClusterHashTag(storeID int64) string {
	return strconv.FormatInt(storeID, 10)
}

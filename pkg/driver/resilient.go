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

package driver

import (
	"context"
	"time"

	"github.com/streamdps/dps/core/resilience"
	"github.com/streamdps/dps/pkg/errors"
)

// GuardConfig configures the resilience wrapping Guard applies to a
// KVDriver's data-plane calls. A nil field disables that primitive.
type GuardConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig
	Bulkhead       *resilience.BulkheadConfig
	Timeout        *resilience.TimeoutConfig
}

// Guard wraps a KVDriver with a circuit breaker, a bulkhead, and a
// per-call timeout, in that order: the bulkhead caps concurrency into the
// backend, the circuit breaker fails fast once the backend is clearly
// down, and the timeout bounds any single call that's let through.
//
// Connect, IsConnected, and Reconnect bypass all three — connection
// lifecycle is managed by the caller directly and must not be short
// circuited or rate limited the same way a data-plane call is.
type Guard struct {
	KVDriver
	breaker  *resilience.CircuitBreaker
	bulkhead *resilience.Bulkhead
	timeout  *resilience.TimeoutConfig
}

// NewGuard wraps drv per cfg. Any nil field in cfg leaves that primitive
// disabled, so a caller can opt into just a timeout, just a circuit
// breaker, or any combination.
func NewGuard(drv KVDriver, cfg GuardConfig) *Guard {
	g := &Guard{KVDriver: drv, timeout: cfg.Timeout}
	if cfg.CircuitBreaker != nil {
		g.breaker = resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	}
	if cfg.Bulkhead != nil {
		g.bulkhead = resilience.NewBulkhead(cfg.Bulkhead)
	}
	return g
}

// run executes fn through whichever primitives are enabled, translating
// resilience's sentinel errors into the network error category so callers
// see the same error shape they would from a real transport failure.
func (g *Guard) run(ctx context.Context, fn resilience.Executor) error {
	wrapped := fn
	if g.timeout != nil {
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			err := resilience.WithTimeout(ctx, g.timeout, inner)
			if err == resilience.ErrTimeout {
				return errors.ErrNetworkTimeout
			}
			return err
		}
	}
	if g.bulkhead != nil {
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			err := g.bulkhead.Execute(ctx, inner)
			if err == resilience.ErrBulkheadFull {
				return errors.ErrNetworkUnavailable
			}
			return err
		}
	}
	if g.breaker != nil {
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			err := g.breaker.Execute(ctx, inner)
			if err == resilience.ErrCircuitBreakerOpen {
				return errors.ErrNetworkUnavailable
			}
			return err
		}
	}
	return wrapped(ctx)
}

func (g *Guard) Put(ctx context.Context, key, value []byte) error {
	return g.run(ctx, func(ctx context.Context) error {
		return g.KVDriver.Put(ctx, key, value)
	})
}

func (g *Guard) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		value, found, innerErr = g.KVDriver.Get(ctx, key)
		return innerErr
	})
	return value, found, err
}

func (g *Guard) Delete(ctx context.Context, key []byte) (bool, error) {
	var existed bool
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		existed, innerErr = g.KVDriver.Delete(ctx, key)
		return innerErr
	})
	return existed, err
}

func (g *Guard) Exists(ctx context.Context, key []byte) (bool, error) {
	var ok bool
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		ok, innerErr = g.KVDriver.Exists(ctx, key)
		return innerErr
	})
	return ok, err
}

func (g *Guard) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	var ok bool
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		ok, innerErr = g.KVDriver.SetNX(ctx, key, value, ttl)
		return innerErr
	})
	return ok, err
}

func (g *Guard) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	var ok bool
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		ok, innerErr = g.KVDriver.CompareAndSwap(ctx, key, oldValue, newValue)
		return innerErr
	})
	return ok, err
}

func (g *Guard) Incr(ctx context.Context, key []byte) (int64, error) {
	var n int64
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		n, innerErr = g.KVDriver.Incr(ctx, key)
		return innerErr
	})
	return n, err
}

func (g *Guard) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	return g.run(ctx, func(ctx context.Context) error {
		return g.KVDriver.Expire(ctx, key, ttl)
	})
}

func (g *Guard) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	var ttl time.Duration
	var found bool
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		ttl, found, innerErr = g.KVDriver.RemainingTTL(ctx, key)
		return innerErr
	})
	return ttl, found, err
}

func (g *Guard) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := g.run(ctx, func(ctx context.Context) error {
		var innerErr error
		keys, innerErr = g.KVDriver.ScanPrefix(ctx, prefix)
		return innerErr
	})
	return keys, err
}

var _ KVDriver = (*Guard)(nil)

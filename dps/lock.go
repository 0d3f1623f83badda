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
	"context"
	"time"

	"github.com/streamdps/dps/observability/logging"
	"github.com/streamdps/dps/observability/metrics"
	"github.com/streamdps/dps/pkg/errors"
)

// CreateOrGetLock reserves a fresh lock id for name, or returns the existing
// one.
func (p *Process) CreateOrGetLock(ctx context.Context, name string) (int64, error) {
	p.storeErr.Begin()
	id, err := p.lock.CreateOrGetLock(ctx, name)
	p.storeErr.Record(err)
	return id, err
}

// AcquireLock attempts to acquire lock id, waiting up to maxWait (or the
// config's default if maxWait <= 0) before giving up. lease determines how
// long the caller may hold it before another process may steal it (or the
// config's default lease if lease <= 0). When maxWait elapses first it
// returns false, nil and records ErrLockTimeout as the store error.
func (p *Process) AcquireLock(ctx context.Context, id int64, lease, maxWait time.Duration) (bool, error) {
	start := time.Now()
	p.storeErr.Begin()
	defLease, defWait := p.lockDefaults()
	if lease <= 0 {
		lease = defLease
	}
	if maxWait <= 0 {
		maxWait = defWait
	}
	ok, err := p.lock.AcquireLock(ctx, id, lease, maxWait)
	p.storeErr.Record(err)
	if err == nil && !ok {
		p.storeErr.Record(errors.ErrLockTimeout)
	}

	outcome := "acquired"
	if err != nil {
		outcome = "error"
	} else if !ok {
		outcome = "timeout"
	}
	p.metrics.IncrementCounter("dps_lock_acquire_total", metrics.NewLabels("outcome", outcome))
	p.metrics.ObserveHistogram("dps_lock_acquire_wait_seconds", time.Since(start).Seconds(), metrics.NoLabels())

	if ok {
		p.log.Debug(ctx, "lock acquired", logging.Int64("lock_id", id))
	}
	return ok, err
}

// ReleaseLock releases lock id unconditionally: a caller racing a
// lease-steal may delete whoever now holds it. This is documented
// behavior, not a bug.
func (p *Process) ReleaseLock(ctx context.Context, id int64) error {
	p.storeErr.Begin()
	err := p.lock.ReleaseLock(ctx, id)
	p.storeErr.Record(err)
	if err == nil {
		p.log.Debug(ctx, "lock released", logging.Int64("lock_id", id))
	}
	return err
}

// RemoveLock deletes lock id and its name index entirely.
func (p *Process) RemoveLock(ctx context.Context, name string, id int64) (bool, error) {
	p.storeErr.Begin()
	existed, err := p.lock.RemoveLock(ctx, name, id)
	p.storeErr.Record(err)
	return existed, err
}

// GetPidForLock returns the PID currently holding lock id, if any.
func (p *Process) GetPidForLock(ctx context.Context, id int64) (int, bool, error) {
	p.storeErr.Begin()
	pid, found, err := p.lock.GetPidForLock(ctx, id)
	p.storeErr.Record(err)
	return pid, found, err
}

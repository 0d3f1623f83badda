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

// Package lockmgr implements named distributed locks on top of a
// driver.KVDriver, generically for every backend: a lock is one backend key
// whose atomic create-if-absent succeeds for exactly one process, holding
// the current holder pid, lease deadline, and a usage counter.
package lockmgr

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"time"

	"github.com/streamdps/dps/core/resilience"
	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/skeleton"
	"github.com/streamdps/dps/pkg/errors"
)

const (
	retryBaseline  = 200 * time.Microsecond
	defaultMaxWait = 10000 * retryBaseline // 2s, the ceiling absent a caller override
	maxAttemptsCap = 10000
)

// leaseRecord is the value stored at a lock key.
type leaseRecord struct {
	HolderPID int    `json:"holder_pid"`
	LeaseAt   int64  `json:"lease_deadline_unix_nano"`
	Usage     uint64 `json:"usage_count"`
}

// Manager implements CreateOrGetLock/AcquireLock/ReleaseLock/RemoveLock/
// GetPidForLock against a driver.KVDriver.
type Manager struct {
	drv driver.KVDriver
	pid int
}

// New builds a Manager over drv, tagging every acquired lease with this
// process's PID.
func New(drv driver.KVDriver) *Manager {
	return &Manager{drv: drv, pid: os.Getpid()}
}

// CreateOrGetLock reserves a fresh lock id for name (or returns the existing
// one), registering the name→id index with an atomic create-if-absent.
func (m *Manager) CreateOrGetLock(ctx context.Context, name string) (int64, error) {
	idxKey := skeleton.LockNameIndexKey(name)

	if raw, found, err := m.drv.Get(ctx, idxKey); err != nil {
		return 0, err
	} else if found {
		return bytesToInt64(raw), nil
	}

	id, err := m.drv.Incr(ctx, []byte(skeleton.GUIDCounterKey))
	if err != nil {
		return 0, errors.ErrGUIDAllocation.Wrap(err)
	}

	ok, err := m.drv.SetNX(ctx, idxKey, int64ToBytes(id), 0)
	if err != nil {
		return 0, err
	}
	if !ok {
		// lost the race: someone else registered this name concurrently.
		raw, found, err := m.drv.Get(ctx, idxKey)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, errors.ErrLockNotFound
		}
		return bytesToInt64(raw), nil
	}
	return id, nil
}

// AcquireLock runs a bounded, randomized-backoff retry of an atomic
// create-if-absent, falling back to a compare-and-swap steal once the
// current holder's lease has passed. It returns (true, nil) once acquired,
// (false, nil) when maxWait elapses first, and (false, err) when the last
// attempt failed with a backend error.
func (m *Manager) AcquireLock(ctx context.Context, id int64, lease, maxWait time.Duration) (bool, error) {
	if id == 0 {
		return false, errors.ErrInvalidID
	}

	wait := maxWait
	if wait <= 0 {
		wait = defaultMaxWait
	}

	deadline := time.Now().Add(wait)
	deadlineCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	attempts := int(wait / retryBaseline)
	if attempts < 1 {
		attempts = 1
	}
	if attempts > maxAttemptsCap {
		attempts = maxAttemptsCap
	}

	key := skeleton.LockKey(string(int64ToBytes(id)))
	acquired := false
	var backendErr error

	cfg := &resilience.RetryConfig{
		MaxAttempts: attempts,
		Backoff: func(attempt int) time.Duration {
			jitter := time.Duration(rand.Intn(100)) * retryBaseline / 100
			remaining := time.Until(deadline)
			if jitter > remaining {
				jitter = remaining
			}
			if jitter < 0 {
				jitter = 0
			}
			return jitter
		},
		ShouldRetry: resilience.DefaultShouldRetry,
	}

	// Retry's returned error only distinguishes non-retryable failures from
	// attempts-exhausted/deadline-exceeded; both the latter are the same
	// timeout outcome, so only `acquired` and the last backend error are
	// inspected below.
	_ = resilience.Retry(deadlineCtx, cfg, func(ctx context.Context) error {
		ok, err := m.tryAcquire(ctx, key, lease)
		backendErr = err
		if err != nil {
			return err
		}
		if ok {
			acquired = true
			return nil
		}
		return errLockHeld
	})

	if acquired {
		return true, nil
	}
	if backendErr != nil {
		return false, backendErr
	}
	return false, nil
}

var errLockHeld = errors.New(errors.CategoryConcurrency, "LOCK_HELD", "lock currently held by another process")

// tryAcquire attempts the create-if-absent path, falling back to a
// lease-expiry steal via compare-and-swap.
func (m *Manager) tryAcquire(ctx context.Context, key []byte, lease time.Duration) (bool, error) {
	rec := leaseRecord{HolderPID: m.pid, LeaseAt: time.Now().Add(lease).UnixNano(), Usage: 1}
	value, err := json.Marshal(rec)
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}

	ok, err := m.drv.SetNX(ctx, key, value, lease)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	cur, found, err := m.drv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		// the holder released between our failed SetNX and this read; retry.
		return false, nil
	}

	var curRec leaseRecord
	if err := json.Unmarshal(cur, &curRec); err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	if time.Now().UnixNano() < curRec.LeaseAt {
		return false, nil // lease still valid, not our turn
	}

	stolen := leaseRecord{HolderPID: m.pid, LeaseAt: time.Now().Add(lease).UnixNano(), Usage: curRec.Usage + 1}
	newValue, err := json.Marshal(stolen)
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	swapped, err := m.drv.CompareAndSwap(ctx, key, cur, newValue)
	if err != nil {
		return false, err
	}
	return swapped, nil
}

// ReleaseLock deletes the lock key unconditionally: a lease-expired holder
// releasing after being stolen from will delete whoever now holds it. This
// is documented behavior, not a bug — callers are expected to release only
// locks they still hold.
func (m *Manager) ReleaseLock(ctx context.Context, id int64) error {
	if id == 0 {
		return errors.ErrInvalidID
	}
	key := skeleton.LockKey(string(int64ToBytes(id)))
	_, err := m.drv.Delete(ctx, key)
	return err
}

// RemoveLock deletes both the lock key and its name-index entry.
func (m *Manager) RemoveLock(ctx context.Context, name string, id int64) (bool, error) {
	idxKey := skeleton.LockNameIndexKey(name)
	existed, err := m.drv.Delete(ctx, idxKey)
	if err != nil {
		return false, err
	}
	key := skeleton.LockKey(string(int64ToBytes(id)))
	if _, err := m.drv.Delete(ctx, key); err != nil {
		return existed, err
	}
	return existed, nil
}

// GetPidForLock returns the current holder's PID, or (0, false) if the lock
// is unowned or its lease has already passed.
func (m *Manager) GetPidForLock(ctx context.Context, id int64) (int, bool, error) {
	key := skeleton.LockKey(string(int64ToBytes(id)))
	raw, found, err := m.drv.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	var rec leaseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if time.Now().UnixNano() >= rec.LeaseAt {
		return 0, false, nil
	}
	return rec.HolderPID, true, nil
}

func int64ToBytes(n int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}

func bytesToInt64(b []byte) int64 {
	var n int64
	for _, c := range b {
		n = n<<8 | int64(c)
	}
	return n
}

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

// Package memdriver implements driver.KVDriver entirely in process memory.
// It carries no network dependency at all, so it serves two roles: a
// zero-setup backend for local development against etc/no-sql-kv-store-servers.cfg,
// and the fake every internal package's tests dial instead of a live
// Redis/Cassandra/Mongo instance.
package memdriver

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/errors"
)

type entry struct {
	value    []byte
	expireAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// Driver is a thread-safe, in-memory KVDriver. Data does not survive process
// exit and is never shared across Driver instances.
type Driver struct {
	mu        sync.Mutex
	data      map[string]*entry
	connected atomic.Bool
}

// New returns an unconnected Driver.
func New() *Driver {
	return &Driver{data: make(map[string]*entry)}
}

// Connect has nothing to dial; it only flips the connected flag so
// IsConnected behaves the way the Facade expects of every adapter.
func (d *Driver) Connect(ctx context.Context, servers []string, creds driver.Credentials) error {
	d.connected.Store(true)
	return nil
}

func (d *Driver) IsConnected() bool {
	return d.connected.Load()
}

func (d *Driver) Reconnect(ctx context.Context) error {
	d.connected.Store(true)
	return nil
}

// Persist is a no-op; there is nothing durable to flush to.
func (d *Driver) Persist(ctx context.Context) error {
	return nil
}

func (d *Driver) requireConnected() error {
	if !d.connected.Load() {
		return errors.ErrConnectionFailed.WithMessage("memdriver: not connected")
	}
	return nil
}

func (d *Driver) Put(ctx context.Context, key, value []byte) error {
	if err := d.requireConnected(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	existing := d.data[string(key)]
	var expireAt time.Time
	if existing != nil {
		expireAt = existing.expireAt
	}
	d.data[string(key)] = &entry{value: append([]byte(nil), value...), expireAt: expireAt}
	return nil
}

func (d *Driver) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if err := d.requireConnected(); err != nil {
		return nil, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.lockedLookup(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (d *Driver) Delete(ctx context.Context, key []byte) (bool, error) {
	if err := d.requireConnected(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.lockedLookup(key)
	if !ok {
		return false, nil
	}
	delete(d.data, string(key))
	return true, nil
}

func (d *Driver) Exists(ctx context.Context, key []byte) (bool, error) {
	if err := d.requireConnected(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.lockedLookup(key)
	return ok, nil
}

func (d *Driver) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	if err := d.requireConnected(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.lockedLookup(key); ok {
		return false, nil
	}
	d.data[string(key)] = newEntry(value, ttl)
	return true, nil
}

func (d *Driver) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	if err := d.requireConnected(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.lockedLookup(key)
	if !ok || string(e.value) != string(oldValue) {
		return false, nil
	}
	d.data[string(key)] = &entry{value: append([]byte(nil), newValue...), expireAt: e.expireAt}
	return true, nil
}

func (d *Driver) Incr(ctx context.Context, key []byte) (int64, error) {
	if err := d.requireConnected(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	if e, ok := d.lockedLookup(key); ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, errors.ErrBackendDriverError.Wrap(err).WithMessage("memdriver: value at key is not an integer")
		}
		n = parsed
	}
	n++
	var expireAt time.Time
	if e, ok := d.data[string(key)]; ok {
		expireAt = e.expireAt
	}
	d.data[string(key)] = &entry{value: []byte(strconv.FormatInt(n, 10)), expireAt: expireAt}
	return n, nil
}

func (d *Driver) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	if err := d.requireConnected(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.lockedLookup(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		e.expireAt = time.Time{}
		return nil
	}
	e.expireAt = time.Now().Add(ttl)
	return nil
}

func (d *Driver) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	if err := d.requireConnected(); err != nil {
		return 0, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.lockedLookup(key)
	if !ok {
		return 0, false, nil
	}
	if e.expireAt.IsZero() {
		return 0, true, nil
	}
	remaining := time.Until(e.expireAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

func (d *Driver) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	if err := d.requireConnected(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	var keys []string
	for k, e := range d.data {
		if e.expired(now) {
			continue
		}
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out, nil
}

// RunCommandFireAndForget, RunCommandHTTP and RunCommandTokens have no
// native backend to reach through to.
func (d *Driver) RunCommandFireAndForget(ctx context.Context, cmd string) error {
	return errors.ErrRawModeUnsupported.WithMessage("memdriver: no native command channel")
}

func (d *Driver) RunCommandHTTP(ctx context.Context, verb, url, path, query, body string) (string, int, error) {
	return "", 0, errors.ErrRawModeUnsupported.WithMessage("memdriver: no native command channel")
}

func (d *Driver) RunCommandTokens(ctx context.Context, tokens []string) (string, error) {
	return "", errors.ErrRawModeUnsupported.WithMessage("memdriver: no native command channel")
}

// lockedLookup returns key's entry, evicting it first if its TTL has lapsed.
// Callers must hold d.mu.
func (d *Driver) lockedLookup(key []byte) (*entry, bool) {
	e, ok := d.data[string(key)]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(d.data, string(key))
		return nil, false
	}
	return e, true
}

func newEntry(value []byte, ttl time.Duration) *entry {
	e := &entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	return e
}

var _ driver.KVDriver = (*Driver)(nil)

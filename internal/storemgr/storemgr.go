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

// Package storemgr implements the named, typed store abstraction on top of
// a driver.KVDriver: store creation/find/remove, per-store metadata, and
// snapshot iteration. RemoveStore, Clear, and BeginIteration are serialized
// across every cooperating process by the per-store mutex in
// internal/lockmgr. CreateStore takes no lock; name uniqueness rests on the
// name index's atomic create-if-absent. Point operations on a single key,
// PutSafe included, are not serialized.
//
// Iterator snapshot visibility of concurrent inserts is "never visible":
// BeginIteration captures the key list once, under the per-store mutex, and
// entries inserted afterward are not observed by that iterator.
package storemgr

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/streamdps/dps/internal/lockmgr"
	"github.com/streamdps/dps/pkg/codec"
	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/skeleton"
	"github.com/streamdps/dps/pkg/errors"
)

const storeMutexLease = 5 * 1000 // milliseconds, see lockAndRun

// Manager implements named-store creation, lookup, and entry access
// generically over any driver.KVDriver.
type Manager struct {
	drv    driver.KVDriver
	hashTag func(storeID int64) string // "" when the backend needs no cluster hash-tag

	itersMu sync.Mutex
	iters   map[string]*Iterator
}

// New builds a Manager. hashTagFn, if non-nil, supplies the Redis Cluster
// hash tag for a given store id; pass nil for backends with no slot concept.
func New(drv driver.KVDriver, hashTagFn func(int64) string) *Manager {
	if hashTagFn == nil {
		hashTagFn = func(int64) string { return "" }
	}
	return &Manager{drv: drv, hashTag: hashTagFn, iters: make(map[string]*Iterator)}
}

// Iterator is a snapshot cursor over one store's key set at BeginIteration
// time.
type Iterator struct {
	StoreID int64
	keys    [][]byte
	index   int
}

// lockAndRun acquires the per-store structural mutex via lockmgr, runs fn,
// then releases it — the pattern RemoveStore, Clear, and BeginIteration
// follow.
func (m *Manager) lockAndRun(ctx context.Context, lm *lockmgr.Manager, storeID int64, fn func() error) error {
	key := skeleton.StoreMutexKey(storeID)
	lockID, err := lm.CreateOrGetLock(ctx, string(key))
	if err != nil {
		return errors.ErrStoreLockFailed.Wrap(err)
	}
	ok, err := lm.AcquireLock(ctx, lockID, 5_000_000_000, 2_000_000_000) // 5s lease, 2s wait, ns units
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrStoreLockFailed
	}
	defer lm.ReleaseLock(ctx, lockID)

	return fn()
}

// CreateStore atomically reserves an id, writes the store header, and
// registers the name. Fails with ErrStoreExists if name is already taken.
func (m *Manager) CreateStore(ctx context.Context, lm *lockmgr.Manager, name, keyTag, valueTag string) (int64, error) {
	if name == "" {
		return 0, errors.ErrInvalidID.WithMessage("store name must not be empty")
	}
	if err := codec.Validate(keyTag); err != nil {
		return 0, errors.ErrTypeMismatch.Wrap(err)
	}
	if err := codec.Validate(valueTag); err != nil {
		return 0, errors.ErrTypeMismatch.Wrap(err)
	}

	nameKey := skeleton.NameIndexKey(name)
	if _, found, err := m.drv.Get(ctx, nameKey); err != nil {
		return 0, err
	} else if found {
		return 0, errors.ErrStoreExists
	}

	id, err := m.drv.Incr(ctx, []byte(skeleton.GUIDCounterKey))
	if err != nil {
		return 0, errors.ErrGUIDAllocation.Wrap(err)
	}

	if err := m.writeHeader(ctx, id, name, keyTag, valueTag); err != nil {
		return 0, err
	}

	ok, err := m.drv.SetNX(ctx, nameKey, int64ToBytes(id), 0)
	if err != nil {
		return 0, err
	}
	if !ok {
		// lost a race against a concurrent createStore of the same name;
		// tear down the header we just wrote and report the winner's id.
		m.deleteHeader(ctx, id)
		raw, found, err := m.drv.Get(ctx, nameKey)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, errors.ErrStoreExists
		}
		return 0, errors.ErrStoreExists.WithDetail("existing_id", bytesToInt64(raw))
	}

	return id, nil
}

// CreateOrGetStore returns the existing store id if name is already taken
// and its declared type tags match, or creates a fresh store otherwise.
func (m *Manager) CreateOrGetStore(ctx context.Context, lm *lockmgr.Manager, name, keyTag, valueTag string) (int64, error) {
	id, err := m.FindStore(ctx, name)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return m.CreateStore(ctx, lm, name, keyTag, valueTag)
	}

	gotKeyTag, err := m.GetKeyType(ctx, id)
	if err != nil {
		return 0, err
	}
	gotValueTag, err := m.GetValueType(ctx, id)
	if err != nil {
		return 0, err
	}
	if gotKeyTag != keyTag || gotValueTag != valueTag {
		return 0, errors.ErrStoreExistsWithDifferentTypes
	}
	return id, nil
}

// FindStore returns the store id for name, or 0 if absent.
func (m *Manager) FindStore(ctx context.Context, name string) (int64, error) {
	raw, found, err := m.drv.Get(ctx, skeleton.NameIndexKey(name))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return bytesToInt64(raw), nil
}

// RemoveStore deletes every entry, the header, the name index, and the
// per-store mutex key. Idempotent with respect to a missing id.
func (m *Manager) RemoveStore(ctx context.Context, lm *lockmgr.Manager, id int64) error {
	if id == 0 {
		return errors.ErrInvalidID
	}
	name, err := m.GetStoreName(ctx, id)
	if err != nil {
		return err
	}
	if name == "" {
		return nil // already absent
	}

	return m.lockAndRun(ctx, lm, id, func() error {
		prefix := skeleton.DataKeyPrefix(id, m.hashTag(id))
		keys, err := m.drv.ScanPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := m.drv.Delete(ctx, k); err != nil {
				return err
			}
		}

		m.deleteHeader(ctx, id)
		_, err = m.drv.Delete(ctx, skeleton.NameIndexKey(name))
		return err
	})
}

// Clear removes every entry in store id without destroying its header.
func (m *Manager) Clear(ctx context.Context, lm *lockmgr.Manager, id int64) error {
	return m.lockAndRun(ctx, lm, id, func() error {
		prefix := skeleton.DataKeyPrefix(id, m.hashTag(id))
		keys, err := m.drv.ScanPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := m.drv.Delete(ctx, k); err != nil {
				return err
			}
		}
		return m.drv.Put(ctx, skeleton.HeaderField(id, skeleton.TokenSize), []byte("0"))
	})
}

// Put is an unconditional write into store id at encodedKey.
func (m *Manager) Put(ctx context.Context, id int64, encodedKey, encodedValue []byte) error {
	dataKey := skeleton.DataKey(id, encodedKey, true, m.hashTag(id))
	existed, err := m.drv.Exists(ctx, dataKey)
	if err != nil {
		return err
	}
	if err := m.drv.Put(ctx, dataKey, encodedValue); err != nil {
		return err
	}
	if !existed {
		return m.bumpSize(ctx, id, 1)
	}
	return nil
}

// PutSafe rejects the write with ErrTypeMismatch (ok=false) if valueTag
// differs from store id's declared value type, whether or not encodedKey is
// present. The type check and the write are separate backend calls, not one
// atomic step.
func (m *Manager) PutSafe(ctx context.Context, id int64, encodedKey, encodedValue []byte, valueTag string) (bool, error) {
	typeKey := skeleton.ValueTypeField(id)
	storedTag, found, err := m.drv.Get(ctx, typeKey)
	if err != nil {
		return false, err
	}
	if found && string(storedTag) != valueTag {
		return false, errors.ErrTypeMismatch.WithDetail("stored", string(storedTag)).WithDetail("want", valueTag)
	}
	return true, m.Put(ctx, id, encodedKey, encodedValue)
}

// Get returns the raw encoded value at encodedKey, or found=false if absent.
func (m *Manager) Get(ctx context.Context, id int64, encodedKey []byte) ([]byte, bool, error) {
	return m.drv.Get(ctx, skeleton.DataKey(id, encodedKey, true, m.hashTag(id)))
}

// Remove deletes encodedKey from store id, idempotently, reporting whether
// it existed beforehand.
func (m *Manager) Remove(ctx context.Context, id int64, encodedKey []byte) (bool, error) {
	dataKey := skeleton.DataKey(id, encodedKey, true, m.hashTag(id))
	existed, err := m.drv.Delete(ctx, dataKey)
	if err != nil {
		return false, err
	}
	if existed {
		if err := m.bumpSize(ctx, id, -1); err != nil {
			return true, err
		}
	}
	return existed, nil
}

// Has reports whether encodedKey is present in store id.
func (m *Manager) Has(ctx context.Context, id int64, encodedKey []byte) (bool, error) {
	return m.drv.Exists(ctx, skeleton.DataKey(id, encodedKey, true, m.hashTag(id)))
}

// Size returns the element count tracked in the store header.
func (m *Manager) Size(ctx context.Context, id int64) (int64, error) {
	raw, found, err := m.drv.Get(ctx, skeleton.HeaderField(id, skeleton.TokenSize))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.ErrStoreNotFound
	}
	return decimalToInt64(raw), nil
}

// GetStoreName returns the registered name for store id, or "" if absent.
func (m *Manager) GetStoreName(ctx context.Context, id int64) (string, error) {
	raw, found, err := m.drv.Get(ctx, skeleton.HeaderField(id, skeleton.TokenName))
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return string(raw), nil
}

// GetKeyType returns the declared key type tag for store id.
func (m *Manager) GetKeyType(ctx context.Context, id int64) (string, error) {
	raw, found, err := m.drv.Get(ctx, skeleton.KeyTypeField(id))
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.ErrStoreNotFound
	}
	return string(raw), nil
}

// GetValueType returns the declared value type tag for store id.
func (m *Manager) GetValueType(ctx context.Context, id int64) (string, error) {
	raw, found, err := m.drv.Get(ctx, skeleton.ValueTypeField(id))
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.ErrStoreNotFound
	}
	return string(raw), nil
}

// BeginIteration snapshots store id's current key set under the per-store
// mutex and returns an iterator handle; iteration is thereafter lock-free.
func (m *Manager) BeginIteration(ctx context.Context, lm *lockmgr.Manager, id int64) (string, error) {
	var keys [][]byte
	err := m.lockAndRun(ctx, lm, id, func() error {
		var err error
		keys, err = m.drv.ScanPrefix(ctx, skeleton.DataKeyPrefix(id, m.hashTag(id)))
		return err
	})
	if err != nil {
		return "", err
	}

	handle := uuid.NewString()
	m.itersMu.Lock()
	m.iters[handle] = &Iterator{StoreID: id, keys: keys}
	m.itersMu.Unlock()
	return handle, nil
}

// GetNext advances iterator handle, returning the next (encodedKey,
// encodedValue) pair. Keys whose entry vanished mid-iteration are silently
// skipped; more=false once the snapshot is exhausted.
func (m *Manager) GetNext(ctx context.Context, handle string) (encodedKey, encodedValue []byte, more bool, err error) {
	m.itersMu.Lock()
	it, ok := m.iters[handle]
	m.itersMu.Unlock()
	if !ok {
		return nil, nil, false, errors.ErrIteratorAllocation.WithMessage("unknown iterator handle")
	}

	prefix := skeleton.DataKeyPrefix(it.StoreID, m.hashTag(it.StoreID))
	for it.index < len(it.keys) {
		dataKey := it.keys[it.index]
		it.index++

		val, found, err := m.drv.Get(ctx, dataKey)
		if err != nil {
			return nil, nil, false, err
		}
		if !found {
			continue
		}
		if len(dataKey) < len(prefix) {
			return nil, nil, false, errors.ErrCodecMalformed.WithMessage("data key shorter than its own prefix")
		}
		userKey, err := skeleton.DecodeUserKey(dataKey[len(prefix):])
		if err != nil {
			return nil, nil, false, errors.ErrCodecMalformed.Wrap(err)
		}
		return userKey, val, true, nil
	}
	return nil, nil, false, nil
}

// EndIteration releases an iterator's resources.
func (m *Manager) EndIteration(handle string) {
	m.itersMu.Lock()
	delete(m.iters, handle)
	m.itersMu.Unlock()
}

// Serialize concatenates every (encodedKey, encodedValue) pair in store id
// into one stream, using the codec's own chunk framing so Deserialize can
// walk it back apart without a side channel for the pair count.
func (m *Manager) Serialize(ctx context.Context, lm *lockmgr.Manager, id int64) ([]byte, error) {
	handle, err := m.BeginIteration(ctx, lm, id)
	if err != nil {
		return nil, err
	}
	defer m.EndIteration(handle)

	var out []byte
	for {
		k, v, more, err := m.GetNext(ctx, handle)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		out = append(out, wrapRaw(k)...)
		out = append(out, wrapRaw(v)...)
	}
	return out, nil
}

// Deserialize reads blob as a stream of (key, value) blob chunks produced
// by Serialize and issues Put for each pair.
func (m *Manager) Deserialize(ctx context.Context, id int64, blob []byte) error {
	pairs, err := codec.DecodeAll(blob)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		if err := m.Put(ctx, id, pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) writeHeader(ctx context.Context, id int64, name, keyTag, valueTag string) error {
	if err := m.drv.Put(ctx, skeleton.HeaderField(id, skeleton.TokenName), []byte(name)); err != nil {
		return err
	}
	if err := m.drv.Put(ctx, skeleton.HeaderField(id, skeleton.TokenSize), []byte("0")); err != nil {
		return err
	}
	if err := m.drv.Put(ctx, skeleton.KeyTypeField(id), []byte(keyTag)); err != nil {
		return err
	}
	return m.drv.Put(ctx, skeleton.ValueTypeField(id), []byte(valueTag))
}

func (m *Manager) deleteHeader(ctx context.Context, id int64) {
	m.drv.Delete(ctx, skeleton.HeaderField(id, skeleton.TokenName))
	m.drv.Delete(ctx, skeleton.HeaderField(id, skeleton.TokenSize))
	m.drv.Delete(ctx, skeleton.KeyTypeField(id))
	m.drv.Delete(ctx, skeleton.ValueTypeField(id))
}

func (m *Manager) bumpSize(ctx context.Context, id int64, delta int64) error {
	key := skeleton.HeaderField(id, skeleton.TokenSize)
	raw, found, err := m.drv.Get(ctx, key)
	if err != nil {
		return err
	}
	var n int64
	if found {
		n = decimalToInt64(raw)
	}
	n += delta
	if n < 0 {
		n = 0
	}
	return m.drv.Put(ctx, key, []byte(int64ToDecimal(n)))
}

func wrapRaw(b []byte) []byte {
	if len(b) <= 0xFE {
		out := make([]byte, 0, 1+len(b))
		out = append(out, byte(len(b)))
		return append(out, b...)
	}
	out := make([]byte, 0, 5+len(b))
	out = append(out, 0xFF)
	n := len(b)
	out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(out, b...)
}

func int64ToBytes(n int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}

// bytesToInt64 decodes the 8-byte big-endian encoding int64ToBytes produces,
// used for the GUID/name-index values.
func bytesToInt64(b []byte) int64 {
	var n int64
	for _, c := range b {
		n = n<<8 | int64(c)
	}
	return n
}

// decimalToInt64 decodes the ASCII-decimal encoding int64ToDecimal produces,
// used for the store header's size field.
func decimalToInt64(b []byte) int64 {
	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

func int64ToDecimal(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

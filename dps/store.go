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
	"github.com/streamdps/dps/pkg/codec"
	"github.com/streamdps/dps/pkg/errors"
)

// storeOpLabels tags a store-operation metric with the operation name and
// its outcome.
func storeOpLabels(op string, err error) metrics.Labels {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	return metrics.NewLabels("op", op, "outcome", outcome)
}

func (p *Process) observeStoreOp(op string, start time.Time, err error) {
	p.metrics.IncrementCounter("dps_store_ops_total", storeOpLabels(op, err))
	p.metrics.ObserveHistogram("dps_store_op_duration_seconds", time.Since(start).Seconds(), metrics.NewLabels("op", op))
	if err != nil {
		p.metrics.IncrementCounter("dps_backend_errors_total", metrics.NewLabels("op", op))
	}
}

// CreateStore reserves a fresh store named name with the given key/value
// type tags, failing with ErrStoreExists if the name is already taken.
func (p *Process) CreateStore(ctx context.Context, name, keyTag, valueTag string) (int64, error) {
	start := time.Now()
	p.storeErr.Begin()
	id, err := p.store.CreateStore(ctx, p.lock, name, keyTag, valueTag)
	p.storeErr.Record(err)
	p.observeStoreOp("create_store", start, err)
	if err == nil {
		p.log.Info(ctx, "store created", logging.String("name", name), logging.Int64("store_id", id))
	}
	return id, err
}

// CreateOrGetStore returns name's existing store id if its type tags match,
// or creates a fresh store otherwise.
func (p *Process) CreateOrGetStore(ctx context.Context, name, keyTag, valueTag string) (int64, error) {
	p.storeErr.Begin()
	id, err := p.store.CreateOrGetStore(ctx, p.lock, name, keyTag, valueTag)
	p.storeErr.Record(err)
	return id, err
}

// FindStore returns name's store id, or 0 if no such store exists.
func (p *Process) FindStore(ctx context.Context, name string) (int64, error) {
	p.storeErr.Begin()
	id, err := p.store.FindStore(ctx, name)
	p.storeErr.Record(err)
	return id, err
}

// RemoveStore deletes every entry, the header, and the name index for id.
func (p *Process) RemoveStore(ctx context.Context, id int64) error {
	start := time.Now()
	p.storeErr.Begin()
	err := p.store.RemoveStore(ctx, p.lock, id)
	p.storeErr.Record(err)
	p.observeStoreOp("remove_store", start, err)
	if err == nil {
		p.log.Info(ctx, "store removed", logging.Int64("store_id", id))
	}
	return err
}

// Clear removes every entry in store id, preserving its header and name.
func (p *Process) Clear(ctx context.Context, id int64) error {
	p.storeErr.Begin()
	err := p.store.Clear(ctx, p.lock, id)
	p.storeErr.Record(err)
	return err
}

// Put encodes key/value per store id's declared type tags and writes them
// unconditionally.
func (p *Process) Put(ctx context.Context, id int64, key, value interface{}, keyTag, valueTag string) error {
	start := time.Now()
	p.storeErr.Begin()
	encKey, encVal, err := p.encodePair(key, value, keyTag, valueTag)
	if err != nil {
		p.storeErr.Record(err)
		p.observeStoreOp("put", start, err)
		return err
	}
	err = p.store.Put(ctx, id, encKey, encVal)
	p.storeErr.Record(err)
	p.observeStoreOp("put", start, err)
	return err
}

// PutSafe rejects the write if valueTag differs from store id's declared
// value type, returning ok=false and ErrTypeMismatch in that case.
func (p *Process) PutSafe(ctx context.Context, id int64, key, value interface{}, keyTag, valueTag string) (bool, error) {
	p.storeErr.Begin()
	encKey, encVal, err := p.encodePair(key, value, keyTag, valueTag)
	if err != nil {
		p.storeErr.Record(err)
		return false, err
	}
	ok, err := p.store.PutSafe(ctx, id, encKey, encVal, valueTag)
	p.storeErr.Record(err)
	return ok, err
}

// Get decodes and returns the value at key in store id.
func (p *Process) Get(ctx context.Context, id int64, key interface{}, keyTag, valueTag string) (interface{}, bool, error) {
	start := time.Now()
	p.storeErr.Begin()
	var err error
	defer func() { p.observeStoreOp("get", start, err) }()

	encKey, err := codec.Encode(key, keyTag)
	if err != nil {
		err = errors.ErrCodecMalformed.Wrap(err)
		p.storeErr.Record(err)
		return nil, false, err
	}
	raw, found, err := p.store.Get(ctx, id, encKey)
	if err != nil {
		p.storeErr.Record(err)
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	val, err := codec.Decode(raw, valueTag)
	if err != nil {
		err = errors.ErrCodecMalformed.Wrap(err)
		p.storeErr.Record(err)
		return nil, false, err
	}
	return val, true, nil
}

// Remove deletes key from store id, reporting whether it was present.
func (p *Process) Remove(ctx context.Context, id int64, key interface{}, keyTag string) (bool, error) {
	p.storeErr.Begin()
	encKey, err := codec.Encode(key, keyTag)
	if err != nil {
		err = errors.ErrCodecMalformed.Wrap(err)
		p.storeErr.Record(err)
		return false, err
	}
	existed, err := p.store.Remove(ctx, id, encKey)
	p.storeErr.Record(err)
	return existed, err
}

// Has reports whether key is present in store id.
func (p *Process) Has(ctx context.Context, id int64, key interface{}, keyTag string) (bool, error) {
	p.storeErr.Begin()
	encKey, err := codec.Encode(key, keyTag)
	if err != nil {
		err = errors.ErrCodecMalformed.Wrap(err)
		p.storeErr.Record(err)
		return false, err
	}
	found, err := p.store.Has(ctx, id, encKey)
	p.storeErr.Record(err)
	return found, err
}

// Size returns store id's element count.
func (p *Process) Size(ctx context.Context, id int64) (int64, error) {
	p.storeErr.Begin()
	n, err := p.store.Size(ctx, id)
	p.storeErr.Record(err)
	return n, err
}

// GetStoreName, GetKeyType, GetValueType return store id's registered
// metadata.
func (p *Process) GetStoreName(ctx context.Context, id int64) (string, error) {
	p.storeErr.Begin()
	v, err := p.store.GetStoreName(ctx, id)
	p.storeErr.Record(err)
	return v, err
}

func (p *Process) GetKeyType(ctx context.Context, id int64) (string, error) {
	p.storeErr.Begin()
	v, err := p.store.GetKeyType(ctx, id)
	p.storeErr.Record(err)
	return v, err
}

func (p *Process) GetValueType(ctx context.Context, id int64) (string, error) {
	p.storeErr.Begin()
	v, err := p.store.GetValueType(ctx, id)
	p.storeErr.Record(err)
	return v, err
}

// BeginIteration snapshots store id's current entries and returns a handle
// for GetNext/EndIteration.
func (p *Process) BeginIteration(ctx context.Context, id int64) (string, error) {
	p.storeErr.Begin()
	h, err := p.store.BeginIteration(ctx, p.lock, id)
	p.storeErr.Record(err)
	return h, err
}

// GetNext decodes and returns the next (key, value) pair from handle's
// snapshot; more is false once the snapshot is exhausted.
func (p *Process) GetNext(ctx context.Context, handle, keyTag, valueTag string) (key, value interface{}, more bool, err error) {
	p.storeErr.Begin()
	encKey, encVal, has, err := p.store.GetNext(ctx, handle)
	if err != nil {
		p.storeErr.Record(err)
		return nil, nil, false, err
	}
	if !has {
		return nil, nil, false, nil
	}
	k, err := codec.Decode(encKey, keyTag)
	if err != nil {
		err = errors.ErrCodecMalformed.Wrap(err)
		p.storeErr.Record(err)
		return nil, nil, false, err
	}
	v, err := codec.Decode(encVal, valueTag)
	if err != nil {
		err = errors.ErrCodecMalformed.Wrap(err)
		p.storeErr.Record(err)
		return nil, nil, false, err
	}
	return k, v, true, nil
}

// EndIteration releases handle's snapshot.
func (p *Process) EndIteration(handle string) {
	p.store.EndIteration(handle)
}

// Serialize captures store id's entire contents as an opaque blob.
func (p *Process) Serialize(ctx context.Context, id int64) ([]byte, error) {
	p.storeErr.Begin()
	blob, err := p.store.Serialize(ctx, p.lock, id)
	p.storeErr.Record(err)
	return blob, err
}

// Deserialize restores a blob produced by Serialize into store id.
func (p *Process) Deserialize(ctx context.Context, id int64, blob []byte) error {
	p.storeErr.Begin()
	err := p.store.Deserialize(ctx, id, blob)
	p.storeErr.Record(err)
	return err
}

// StoreError returns the code/message of the most recent store operation's
// failure, ("", "") if it succeeded.
func (p *Process) StoreError() (code, message string) {
	return p.storeErr.Last()
}

func (p *Process) encodePair(key, value interface{}, keyTag, valueTag string) (encKey, encVal []byte, err error) {
	encKey, err = codec.Encode(key, keyTag)
	if err != nil {
		return nil, nil, errors.ErrCodecMalformed.Wrap(err)
	}
	encVal, err = codec.Encode(value, valueTag)
	if err != nil {
		return nil, nil, errors.ErrCodecMalformed.Wrap(err)
	}
	return encKey, encVal, nil
}

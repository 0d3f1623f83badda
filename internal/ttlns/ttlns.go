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

// Package ttlns implements the global auto-expiring key/value namespace:
// entries live under the single reserved prefix skeleton.TTLNamespace,
// keyed solely by the encoded user key, disjoint from any named store.
package ttlns

import (
	"context"
	"time"

	"github.com/streamdps/dps/pkg/codec"
	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/skeleton"
	"github.com/streamdps/dps/pkg/errors"
)

// Namespace implements PutTTL/GetTTL/RemoveTTL/HasTTL over a driver.KVDriver.
type Namespace struct {
	drv driver.KVDriver
}

// New builds a Namespace over drv.
func New(drv driver.KVDriver) *Namespace {
	return &Namespace{drv: drv}
}

// PutTTL stores value at key with the given ttl; ttl of 0 means no expiry.
// rawKey/rawValue, when true, bypass the codec's length-prefix envelope for
// string-shaped values so native backend tools can inspect them.
func (n *Namespace) PutTTL(ctx context.Context, key, value string, ttl time.Duration, rawKey, rawValue bool) error {
	var keyBytes, valueBytes []byte
	var err error

	if rawKey {
		keyBytes, err = codec.EncodeRaw(key, codec.TypeString)
	} else {
		keyBytes, err = codec.Encode(key, codec.TypeString)
	}
	if err != nil {
		return err
	}

	if rawValue {
		valueBytes, err = codec.EncodeRaw(value, codec.TypeString)
	} else {
		valueBytes, err = codec.Encode(value, codec.TypeString)
	}
	if err != nil {
		return err
	}

	ttlKey := skeleton.TTLKey(keyBytes)
	if err := n.drv.Put(ctx, ttlKey, valueBytes); err != nil {
		return err
	}
	return n.drv.Expire(ctx, ttlKey, ttl)
}

// GetTTL returns the value stored at key, or found=false if absent or
// expired.
func (n *Namespace) GetTTL(ctx context.Context, key string, rawKey, rawValue bool) (string, bool, error) {
	var keyBytes []byte
	var err error
	if rawKey {
		keyBytes, err = codec.EncodeRaw(key, codec.TypeString)
	} else {
		keyBytes, err = codec.Encode(key, codec.TypeString)
	}
	if err != nil {
		return "", false, err
	}

	raw, found, err := n.drv.Get(ctx, skeleton.TTLKey(keyBytes))
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	var value interface{}
	if rawValue {
		value, err = codec.DecodeRaw(raw, codec.TypeString)
	} else {
		value, err = codec.Decode(raw, codec.TypeString)
	}
	if err != nil {
		return "", false, errors.ErrCodecMalformed.Wrap(err)
	}
	return value.(string), true, nil
}

// RemoveTTL deletes key from the TTL namespace, idempotently.
func (n *Namespace) RemoveTTL(ctx context.Context, key string, rawKey bool) (bool, error) {
	keyBytes, err := n.encodeKeyArg(key, rawKey)
	if err != nil {
		return false, err
	}
	return n.drv.Delete(ctx, skeleton.TTLKey(keyBytes))
}

// HasTTL reports whether key is present (and not yet expired) in the TTL
// namespace, without fetching its value.
func (n *Namespace) HasTTL(ctx context.Context, key string, rawKey bool) (bool, error) {
	keyBytes, err := n.encodeKeyArg(key, rawKey)
	if err != nil {
		return false, err
	}
	return n.drv.Exists(ctx, skeleton.TTLKey(keyBytes))
}

func (n *Namespace) encodeKeyArg(key string, raw bool) ([]byte, error) {
	if raw {
		return codec.EncodeRaw(key, codec.TypeString)
	}
	return codec.Encode(key, codec.TypeString)
}

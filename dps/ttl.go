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
)

// PutTTL stores value at key in the global TTL namespace, expiring after
// ttl (0 = no expiry). This namespace has its own error channel (TTLError)
// independent from the store/lock channel, since a TTL failure must not
// clobber a caller's still-unread store error.
func (p *Process) PutTTL(ctx context.Context, key, value string, ttl time.Duration, rawKey, rawValue bool) error {
	p.ttlErr.Begin()
	err := p.ttl.PutTTL(ctx, key, value, ttl, rawKey, rawValue)
	p.ttlErr.Record(err)
	return err
}

// GetTTL returns the value stored at key in the global TTL namespace.
func (p *Process) GetTTL(ctx context.Context, key string, rawKey, rawValue bool) (string, bool, error) {
	p.ttlErr.Begin()
	v, found, err := p.ttl.GetTTL(ctx, key, rawKey, rawValue)
	p.ttlErr.Record(err)
	return v, found, err
}

// RemoveTTL deletes key from the global TTL namespace.
func (p *Process) RemoveTTL(ctx context.Context, key string, rawKey bool) (bool, error) {
	p.ttlErr.Begin()
	existed, err := p.ttl.RemoveTTL(ctx, key, rawKey)
	p.ttlErr.Record(err)
	return existed, err
}

// HasTTL reports key's presence in the global TTL namespace.
func (p *Process) HasTTL(ctx context.Context, key string, rawKey bool) (bool, error) {
	p.ttlErr.Begin()
	found, err := p.ttl.HasTTL(ctx, key, rawKey)
	p.ttlErr.Record(err)
	return found, err
}

// TTLError returns the code/message of the most recent TTL operation's
// failure, ("", "") if it succeeded.
func (p *Process) TTLError() (code, message string) {
	return p.ttlErr.Last()
}

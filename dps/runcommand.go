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

import "context"

// RunCommandFireAndForget issues a native backend command without waiting
// for a response — the escape hatch for operations DPS's typed API does not
// cover.
func (p *Process) RunCommandFireAndForget(ctx context.Context, cmd string) error {
	p.storeErr.Begin()
	err := p.drv.RunCommandFireAndForget(ctx, cmd)
	p.storeErr.Record(err)
	return err
}

// RunCommandHTTP issues a request/response HTTP-style native command,
// meaningful only against the REST-backed adapters (HBase, Cloudant,
// Couchbase); others return ErrRawModeUnsupported.
func (p *Process) RunCommandHTTP(ctx context.Context, verb, url, path, query, body string) (string, int, error) {
	p.storeErr.Begin()
	resp, status, err := p.drv.RunCommandHTTP(ctx, verb, url, path, query, body)
	p.storeErr.Record(err)
	return resp, status, err
}

// RunCommandTokens issues a Redis-style token-array native command.
func (p *Process) RunCommandTokens(ctx context.Context, tokens []string) (string, error) {
	p.storeErr.Begin()
	result, err := p.drv.RunCommandTokens(ctx, tokens)
	p.storeErr.Record(err)
	return result, err
}

// IsConnected reports whether the backend connection is currently up.
func (p *Process) IsConnected() bool {
	return p.drv != nil && p.drv.IsConnected()
}

// Reconnect tears down and re-establishes the backend connection.
func (p *Process) Reconnect(ctx context.Context) error {
	return p.drv.Reconnect(ctx)
}

// Persist requests the backend flush to durable storage, if it supports an
// explicit checkpoint.
func (p *Process) Persist(ctx context.Context) error {
	return p.drv.Persist(ctx)
}

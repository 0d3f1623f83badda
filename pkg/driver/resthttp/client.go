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

// Package resthttp is the shared REST transport the HBase, Cloudant, and
// Couchbase adapters build on: a small round-robin pool over net/http that
// retries a transport-level failure against the next configured base URL
// before giving up, plus basic/bearer auth helpers. None of the three
// backends has a Go client library for its wire protocol, so each speaks
// REST directly through this shared transport instead of duplicating their
// own retry-and-failover logic three times.
package resthttp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/streamdps/dps/pkg/errors"
)

// Auth selects how requests authenticate against the cluster.
type Auth struct {
	Basic  bool
	Bearer bool
	User   string
	Pass   string
	Token  string
}

// Client is a round-robin pool of base URLs with per-request retry against
// the next base on a transport-level (not HTTP-status) failure.
type Client struct {
	bases  []string
	next   atomic.Uint64
	http   *http.Client
	auth   Auth
}

// Options configures the pool.
type Options struct {
	Timeout time.Duration
	Auth    Auth
}

func DefaultOptions() Options {
	return Options{Timeout: 10 * time.Second}
}

// New builds a Client over bases (scheme://host:port, no trailing slash).
func New(bases []string, opts Options) (*Client, error) {
	if len(bases) == 0 {
		return nil, errors.ErrConnectionFailed.WithMessage("no base URLs configured")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		bases: bases,
		http:  &http.Client{Timeout: timeout},
		auth:  opts.Auth,
	}, nil
}

// Do issues verb against path (leading slash) with optional query string and
// body, retrying against the next base in the pool on a transport error.
// It returns the response body, HTTP status, and any error after exhausting
// every base.
func (c *Client) Do(ctx context.Context, verb, path, query, body string) (string, int, error) {
	var lastErr error
	n := len(c.bases)

	for attempt := 0; attempt < n; attempt++ {
		idx := int(c.next.Add(1)-1) % n
		base := c.bases[idx]

		url := base + path
		if query != "" {
			url += "?" + query
		}

		var reader io.Reader
		if body != "" {
			reader = bytes.NewBufferString(body)
		}

		req, err := http.NewRequestWithContext(ctx, verb, url, reader)
		if err != nil {
			return "", 0, errors.ErrBackendHTTPError.Wrap(err)
		}
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		c.applyAuth(req)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue // try next base on transport failure
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", resp.StatusCode, errors.ErrBackendParseError.Wrap(err)
		}
		return string(data), resp.StatusCode, nil
	}

	return "", 0, errors.ErrConnectionFailed.Wrap(fmt.Errorf("all %d bases failed: %w", n, lastErr))
}

func (c *Client) applyAuth(req *http.Request) {
	switch {
	case c.auth.Bearer:
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	case c.auth.Basic:
		enc := base64.StdEncoding.EncodeToString([]byte(c.auth.User + ":" + c.auth.Pass))
		req.Header.Set("Authorization", "Basic "+enc)
	}
}

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

// Package cloudant implements driver.KVDriver against IBM Cloudant's
// CouchDB-compatible REST API via pkg/driver/resthttp. Every entry is a
// document {"value": "<base64>"}; Cloudant's MVCC revision token stands in
// for a CAS token, so CompareAndSwap reads the current _rev before
// attempting the swap, the standard CouchDB optimistic-concurrency idiom.
package cloudant

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/resthttp"
	"github.com/streamdps/dps/pkg/errors"
)

const defaultDatabase = "dps_kv"

// Driver implements driver.KVDriver over a Cloudant/CouchDB database.
type Driver struct {
	client    *resthttp.Client
	database  string
	connected atomic.Bool
}

// Options configures the target database name.
type Options struct {
	Database string
}

func DefaultOptions() Options {
	return Options{Database: defaultDatabase}
}

func New(opts Options) *Driver {
	db := opts.Database
	if db == "" {
		db = defaultDatabase
	}
	return &Driver{database: db}
}

func (d *Driver) Connect(ctx context.Context, servers []string, creds driver.Credentials) error {
	auth := resthttp.Auth{}
	if creds.APIKey != "" {
		auth = resthttp.Auth{Bearer: true, Token: creds.APIKey}
	} else if creds.Username != "" {
		auth = resthttp.Auth{Basic: true, User: creds.Username, Pass: creds.Password}
	}

	client, err := resthttp.New(servers, resthttp.Options{Auth: auth})
	if err != nil {
		return err
	}
	d.client = client

	_, status, err := d.client.Do(ctx, "PUT", "/"+d.database, "", "")
	if err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}
	if status >= 500 {
		return errors.ErrConnectionFailed.WithDetail("status", status)
	}
	d.connected.Store(true)
	return nil
}

func (d *Driver) IsConnected() bool { return d.connected.Load() }

func (d *Driver) Reconnect(ctx context.Context) error {
	_, status, err := d.client.Do(ctx, "GET", "/"+d.database, "", "")
	if err != nil || status >= 500 {
		d.connected.Store(false)
		return errors.ErrConnectionFailed.WithDetail("status", status)
	}
	d.connected.Store(true)
	return nil
}

// Persist is a no-op: Cloudant commits every write durably before the HTTP
// response returns.
func (d *Driver) Persist(ctx context.Context) error { return nil }

type document struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

func docPath(database, id string) string {
	return "/" + database + "/" + url.PathEscape(id)
}

func (d *Driver) getDoc(ctx context.Context, key []byte) (*document, int, error) {
	body, status, err := d.client.Do(ctx, "GET", docPath(d.database, string(key)), "", "")
	if err != nil {
		return nil, status, errors.ErrBackendHTTPError.Wrap(err)
	}
	if status == 404 {
		return nil, status, nil
	}
	if status >= 300 {
		return nil, status, errors.ErrBackendHTTPError.WithDetail("status", status)
	}
	var doc document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, status, errors.ErrBackendParseError.Wrap(err)
	}
	return &doc, status, nil
}

func (d *Driver) putDoc(ctx context.Context, doc document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.ErrBackendParseError.Wrap(err)
	}
	_, status, err := d.client.Do(ctx, "PUT", docPath(d.database, doc.ID), "", string(body))
	if err != nil {
		return errors.ErrBackendHTTPError.Wrap(err)
	}
	if status >= 300 {
		return errors.ErrBackendHTTPError.WithDetail("status", status)
	}
	return nil
}

func (d *Driver) Put(ctx context.Context, key, value []byte) error {
	existing, _, err := d.getDoc(ctx, key)
	if err != nil {
		return err
	}
	doc := document{ID: string(key), Value: base64.StdEncoding.EncodeToString(value)}
	if existing != nil {
		doc.Rev = existing.Rev
		doc.ExpiresAt = existing.ExpiresAt
	}
	return d.putDoc(ctx, doc)
}

func (d *Driver) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	doc, status, err := d.getDoc(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if status == 404 || doc == nil {
		return nil, false, nil
	}
	if doc.ExpiresAt > 0 && time.Now().UnixNano() > doc.ExpiresAt {
		_, _ = d.Delete(ctx, key)
		return nil, false, nil
	}
	val, err := base64.StdEncoding.DecodeString(doc.Value)
	if err != nil {
		return nil, false, errors.ErrBackendParseError.Wrap(err)
	}
	return val, true, nil
}

func (d *Driver) Delete(ctx context.Context, key []byte) (bool, error) {
	doc, _, err := d.getDoc(ctx, key)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	_, status, err := d.client.Do(ctx, "DELETE", docPath(d.database, string(key))+"?rev="+url.QueryEscape(doc.Rev), "", "")
	if err != nil {
		return false, errors.ErrBackendHTTPError.Wrap(err)
	}
	return status < 300, nil
}

func (d *Driver) Exists(ctx context.Context, key []byte) (bool, error) {
	_, status, err := d.client.Do(ctx, "HEAD", docPath(d.database, string(key)), "", "")
	if err != nil {
		return false, errors.ErrBackendHTTPError.Wrap(err)
	}
	return status < 300, nil
}

// SetNX relies on Cloudant rejecting a PUT with no _rev against an existing
// document (409 Conflict), CouchDB's native create-if-absent behavior.
func (d *Driver) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	doc := document{ID: string(key), Value: base64.StdEncoding.EncodeToString(value)}
	if ttl > 0 {
		doc.ExpiresAt = time.Now().Add(ttl).UnixNano()
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return false, errors.ErrBackendParseError.Wrap(err)
	}
	_, status, err := d.client.Do(ctx, "PUT", docPath(d.database, doc.ID), "", string(body))
	if err != nil {
		return false, errors.ErrBackendHTTPError.Wrap(err)
	}
	if status == 409 {
		return false, nil
	}
	if status >= 300 {
		return false, errors.ErrBackendHTTPError.WithDetail("status", status)
	}
	return true, nil
}

func (d *Driver) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	doc, _, err := d.getDoc(ctx, key)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	curVal, err := base64.StdEncoding.DecodeString(doc.Value)
	if err != nil {
		return false, errors.ErrBackendParseError.Wrap(err)
	}
	if string(curVal) != string(oldValue) {
		return false, nil
	}
	doc.Value = base64.StdEncoding.EncodeToString(newValue)
	if err := d.putDoc(ctx, *doc); err != nil {
		// a 409 here means someone else modified the doc between read and
		// write; that is a lost race, not a driver error.
		return false, nil
	}
	return true, nil
}

func (d *Driver) Incr(ctx context.Context, key []byte) (int64, error) {
	for attempt := 0; attempt < 10; attempt++ {
		doc, _, err := d.getDoc(ctx, key)
		if err != nil {
			return 0, err
		}
		if doc == nil {
			if ok, err := d.SetNX(ctx, key, []byte("1"), 0); err != nil {
				return 0, err
			} else if ok {
				return 1, nil
			}
			continue
		}
		curVal, _ := base64.StdEncoding.DecodeString(doc.Value)
		var n int64
		json.Unmarshal(curVal, &n)
		n++
		nextVal, _ := json.Marshal(n)
		ok, err := d.CompareAndSwap(ctx, key, curVal, nextVal)
		if err != nil {
			return 0, err
		}
		if ok {
			return n, nil
		}
	}
	return 0, errors.ErrGUIDAllocation.WithMessage("exhausted retries under contention")
}

func (d *Driver) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	doc, _, err := d.getDoc(ctx, key)
	if err != nil || doc == nil {
		return err
	}
	if ttl > 0 {
		doc.ExpiresAt = time.Now().Add(ttl).UnixNano()
	} else {
		doc.ExpiresAt = 0
	}
	return d.putDoc(ctx, *doc)
}

func (d *Driver) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	doc, _, err := d.getDoc(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if doc == nil {
		return 0, false, nil
	}
	if doc.ExpiresAt == 0 {
		return 0, true, nil
	}
	remaining := time.Until(time.Unix(0, doc.ExpiresAt))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

// ScanPrefix uses Cloudant's _all_docs view with startkey/endkey, the
// standard CouchDB prefix-range trick (endkey is startkey with a high
// Unicode sentinel appended).
func (d *Driver) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	start := string(prefix)
	end := start + "￰"
	query := "startkey=" + url.QueryEscape(`"`+start+`"`) + "&endkey=" + url.QueryEscape(`"`+end+`"`)

	body, status, err := d.client.Do(ctx, "GET", "/"+d.database+"/_all_docs", query, "")
	if err != nil {
		return nil, errors.ErrBackendHTTPError.Wrap(err)
	}
	if status >= 300 {
		return nil, errors.ErrBackendHTTPError.WithDetail("status", status)
	}

	var result struct {
		Rows []struct {
			ID string `json:"id"`
		} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, errors.ErrBackendParseError.Wrap(err)
	}

	out := make([][]byte, 0, len(result.Rows))
	for _, r := range result.Rows {
		out = append(out, []byte(r.ID))
	}
	return out, nil
}

func (d *Driver) RunCommandFireAndForget(ctx context.Context, cmd string) error {
	_, _, err := d.client.Do(ctx, "POST", cmd, "", "")
	return err
}

func (d *Driver) RunCommandHTTP(ctx context.Context, verb, url, path, query, body string) (string, int, error) {
	return d.client.Do(ctx, verb, path, query, body)
}

func (d *Driver) RunCommandTokens(ctx context.Context, tokens []string) (string, error) {
	return "", errors.ErrRawModeUnsupported.WithMessage("cloudant driver speaks REST, not token commands")
}

var _ driver.KVDriver = (*Driver)(nil)

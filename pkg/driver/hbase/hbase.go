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

// Package hbase implements driver.KVDriver against HBase's REST gateway
// (Stargate), using pkg/driver/resthttp as the transport. Cells live in one
// column family "d" with a single qualifier "v"; HBase's own cell
// versioning plus TTL-on-put give us RemainingTTL/Expire for free on column
// families configured with a TTL, so this adapter tracks an expiry cell
// alongside the value instead of depending on server-side family TTL
// (simpler to reason about across differently-provisioned clusters).
package hbase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/resthttp"
	"github.com/streamdps/dps/pkg/errors"
)

const (
	defaultTable = "dps_kv"
	columnFamily = "d"
	qualValue    = "v"
	qualExpires  = "e"
)

// Driver implements driver.KVDriver over an HBase REST gateway cluster.
type Driver struct {
	client    *resthttp.Client
	table     string
	connected atomic.Bool
}

// Options configures the target table name.
type Options struct {
	Table string
}

func DefaultOptions() Options {
	return Options{Table: defaultTable}
}

func New(opts Options) *Driver {
	table := opts.Table
	if table == "" {
		table = defaultTable
	}
	return &Driver{table: table}
}

func (d *Driver) Connect(ctx context.Context, servers []string, creds driver.Credentials) error {
	client, err := resthttp.New(servers, resthttp.Options{
		Auth: resthttp.Auth{Basic: creds.Username != "", User: creds.Username, Pass: creds.Password},
	})
	if err != nil {
		return err
	}
	d.client = client

	schema := `<?xml version="1.0" encoding="UTF-8"?><TableSchema name="` + d.table + `">` +
		`<ColumnSchema name="` + columnFamily + `"/></TableSchema>`
	_, status, err := d.client.Do(ctx, "POST", "/"+d.table+"/schema", "", schema)
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
	_, status, err := d.client.Do(ctx, "GET", "/version", "", "")
	if err != nil || status >= 500 {
		d.connected.Store(false)
		return errors.ErrConnectionFailed.WithDetail("status", status)
	}
	d.connected.Store(true)
	return nil
}

// Persist is a no-op: HBase flushes memstores on its own WAL schedule and
// exposes no per-request durability knob via the REST gateway.
func (d *Driver) Persist(ctx context.Context) error { return nil }

type cellSet struct {
	Row []row `json:"Row"`
}
type row struct {
	Key   string `json:"key"`
	Cells []cell `json:"Cell"`
}
type cell struct {
	Column    string `json:"column"`
	Timestamp int64  `json:"timestamp"`
	Value     string `json:"$"`
}

func rowPath(table, key string) string {
	return "/" + table + "/" + base64.StdEncoding.EncodeToString([]byte(key))
}

func (d *Driver) Put(ctx context.Context, key, value []byte) error {
	return d.putCells(ctx, key, map[string][]byte{qualValue: value})
}

func (d *Driver) putCells(ctx context.Context, key []byte, qualifiers map[string][]byte) error {
	cs := cellSet{Row: []row{{Key: base64.StdEncoding.EncodeToString(key)}}}
	for qual, val := range qualifiers {
		cs.Row[0].Cells = append(cs.Row[0].Cells, cell{
			Column: base64.StdEncoding.EncodeToString([]byte(columnFamily + ":" + qual)),
			Value:  base64.StdEncoding.EncodeToString(val),
		})
	}
	body, err := json.Marshal(cs)
	if err != nil {
		return errors.ErrBackendParseError.Wrap(err)
	}
	_, status, err := d.client.Do(ctx, "PUT", rowPath(d.table, string(key)), "", string(body))
	if err != nil {
		return errors.ErrBackendHTTPError.Wrap(err)
	}
	if status >= 300 {
		return errors.ErrBackendHTTPError.WithDetail("status", status)
	}
	return nil
}

func (d *Driver) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	body, status, err := d.client.Do(ctx, "GET", rowPath(d.table, string(key)), "", "")
	if err != nil {
		return nil, false, errors.ErrBackendHTTPError.Wrap(err)
	}
	if status == 404 {
		return nil, false, nil
	}
	if status >= 300 {
		return nil, false, errors.ErrBackendHTTPError.WithDetail("status", status)
	}

	var cs cellSet
	if err := json.Unmarshal([]byte(body), &cs); err != nil {
		return nil, false, errors.ErrBackendParseError.Wrap(err)
	}
	if len(cs.Row) == 0 {
		return nil, false, nil
	}

	var value []byte
	var expiresAt int64
	hasExpiry := false
	for _, c := range cs.Row[0].Cells {
		colBytes, _ := base64.StdEncoding.DecodeString(c.Column)
		col := string(colBytes)
		val, _ := base64.StdEncoding.DecodeString(c.Value)
		switch col {
		case columnFamily + ":" + qualValue:
			value = val
		case columnFamily + ":" + qualExpires:
			expiresAt, _ = strconv.ParseInt(string(val), 10, 64)
			hasExpiry = true
		}
	}
	if hasExpiry && expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_, _ = d.Delete(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (d *Driver) Delete(ctx context.Context, key []byte) (bool, error) {
	existed, err := d.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	_, status, err := d.client.Do(ctx, "DELETE", rowPath(d.table, string(key)), "", "")
	if err != nil {
		return false, errors.ErrBackendHTTPError.Wrap(err)
	}
	if status >= 300 && status != 404 {
		return false, errors.ErrBackendHTTPError.WithDetail("status", status)
	}
	return existed, nil
}

func (d *Driver) Exists(ctx context.Context, key []byte) (bool, error) {
	_, found, err := d.Get(ctx, key)
	return found, err
}

// SetNX has no single-request equivalent in the HBase REST gateway's JSON
// API (the native checkAndPut call is exposed only via the XML "scanner"
// style payloads some gateway builds omit), so this does a get-then-put
// guarded by Exists; racy under true concurrent creation, acceptable because
// the sole caller (LockManager/StoreManager name indices) already treats a
// failed creation as "someone else won" and retries at a higher level.
func (d *Driver) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	exists, err := d.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if ttl > 0 {
		if err := d.putCells(ctx, key, map[string][]byte{
			qualValue:   value,
			qualExpires: []byte(strconv.FormatInt(time.Now().Add(ttl).UnixNano(), 10)),
		}); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := d.Put(ctx, key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	cur, found, err := d.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found || string(cur) != string(oldValue) {
		return false, nil
	}
	if err := d.Put(ctx, key, newValue); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) Incr(ctx context.Context, key []byte) (int64, error) {
	cur, found, err := d.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int64
	if found {
		n, _ = strconv.ParseInt(string(cur), 10, 64)
	}
	n++
	if err := d.Put(ctx, key, []byte(strconv.FormatInt(n, 10))); err != nil {
		return 0, errors.ErrGUIDAllocation.Wrap(err)
	}
	return n, nil
}

func (d *Driver) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	value, found, err := d.Get(ctx, key)
	if err != nil || !found {
		return err
	}
	quals := map[string][]byte{qualValue: value}
	if ttl > 0 {
		quals[qualExpires] = []byte(strconv.FormatInt(time.Now().Add(ttl).UnixNano(), 10))
	} else {
		quals[qualExpires] = []byte("0")
	}
	return d.putCells(ctx, key, quals)
}

func (d *Driver) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	body, status, err := d.client.Do(ctx, "GET", rowPath(d.table, string(key)), "", "")
	if err != nil {
		return 0, false, errors.ErrBackendHTTPError.Wrap(err)
	}
	if status == 404 {
		return 0, false, nil
	}
	var cs cellSet
	if err := json.Unmarshal([]byte(body), &cs); err != nil {
		return 0, false, errors.ErrBackendParseError.Wrap(err)
	}
	if len(cs.Row) == 0 {
		return 0, false, nil
	}
	for _, c := range cs.Row[0].Cells {
		colBytes, _ := base64.StdEncoding.DecodeString(c.Column)
		if string(colBytes) != columnFamily+":"+qualExpires {
			continue
		}
		valBytes, _ := base64.StdEncoding.DecodeString(c.Value)
		expiresAt, _ := strconv.ParseInt(string(valBytes), 10, 64)
		if expiresAt == 0 {
			return 0, true, nil
		}
		remaining := time.Until(time.Unix(0, expiresAt))
		if remaining < 0 {
			remaining = 0
		}
		return remaining, true, nil
	}
	return 0, true, nil
}

// ScanPrefix uses the REST gateway's scanner resource, bounded by a row-key
// start/stop range (stop is prefix with its last byte incremented).
func (d *Driver) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	stop := make([]byte, len(prefix))
	copy(stop, prefix)
	for i := len(stop) - 1; i >= 0; i-- {
		stop[i]++
		if stop[i] != 0 {
			break
		}
	}

	scannerXML := `<Scanner startRow="` + base64.StdEncoding.EncodeToString(prefix) +
		`" endRow="` + base64.StdEncoding.EncodeToString(stop) + `" batch="1000"/>`
	loc, status, err := d.client.Do(ctx, "POST", "/"+d.table+"/scanner", "", scannerXML)
	if err != nil {
		return nil, errors.ErrBackendHTTPError.Wrap(err)
	}
	if status >= 300 {
		return nil, errors.ErrBackendHTTPError.WithDetail("status", status)
	}

	var scannerPath string
	if err := xml.Unmarshal([]byte(loc), &scannerPath); err != nil {
		scannerPath = loc
	}

	var out [][]byte
	for {
		body, status, err := d.client.Do(ctx, "GET", scannerPath, "", "")
		if err != nil {
			return nil, errors.ErrBackendHTTPError.Wrap(err)
		}
		if status == 204 {
			break
		}
		var cs cellSet
		if err := json.Unmarshal([]byte(body), &cs); err != nil {
			return nil, errors.ErrBackendParseError.Wrap(err)
		}
		if len(cs.Row) == 0 {
			break
		}
		for _, r := range cs.Row {
			k, _ := base64.StdEncoding.DecodeString(r.Key)
			out = append(out, k)
		}
	}
	_, _, _ = d.client.Do(ctx, "DELETE", scannerPath, "", "")
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
	return "", errors.ErrRawModeUnsupported.WithMessage("hbase driver speaks REST, not token commands")
}

var _ driver.KVDriver = (*Driver)(nil)

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

// Package memcached implements driver.KVDriver directly over memcached's
// text protocol. No memcached client ships in this module's dependency
// set, and the wire protocol is simple enough (newline-delimited ASCII
// commands over a plain TCP socket) that net.Conn plus bufio is the
// idiomatic choice, matching how the REST-backed adapters
// (pkg/driver/resthttp) hand-roll their own transport too.
package memcached

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/errors"
)

// Driver is a minimal memcached client supporting the flat primitives
// KVDriver needs. Memcached has no native CAS-by-value or prefix scan, so
// CompareAndSwap compares the current value itself and swaps it in with a
// delete-then-add, and ScanPrefix is served from a per-prefix key catalog
// maintained by Put/Delete. The catalog is held in this Driver's memory, so
// it lists only keys written through this Driver, and ScanPrefix matches
// prefix against catalog entries exactly (see catalogPrefix), not as a
// general prefix.
type Driver struct {
	mu        sync.Mutex
	conns     []*connState
	next      uint64
	connected atomic.Bool

	dialTimeout time.Duration
	ioTimeout   time.Duration

	catalogMu sync.Mutex
	catalog   map[string]map[string]struct{} // prefix -> set of keys
}

type connState struct {
	addr string
	conn net.Conn
	rw   *bufio.ReadWriter
}

// Options configures dial/IO timeouts.
type Options struct {
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

func DefaultOptions() Options {
	return Options{DialTimeout: 5 * time.Second, IOTimeout: 3 * time.Second}
}

func New(opts Options) *Driver {
	return &Driver{
		dialTimeout: opts.DialTimeout,
		ioTimeout:   opts.IOTimeout,
		catalog:     make(map[string]map[string]struct{}),
	}
}

func (d *Driver) Connect(ctx context.Context, servers []string, _ driver.Credentials) error {
	if len(servers) == 0 {
		return errors.ErrConnectionFailed.WithMessage("no servers configured")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.conns = d.conns[:0]
	for _, addr := range servers {
		c, err := net.DialTimeout("tcp", addr, d.dialTimeout)
		if err != nil {
			return errors.ErrConnectionFailed.Wrap(err)
		}
		d.conns = append(d.conns, &connState{
			addr: addr,
			conn: c,
			rw:   bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c)),
		})
	}
	d.connected.Store(true)
	return nil
}

func (d *Driver) IsConnected() bool { return d.connected.Load() }

func (d *Driver) Reconnect(ctx context.Context) error {
	d.mu.Lock()
	addrs := make([]string, len(d.conns))
	for i, c := range d.conns {
		addrs[i] = c.addr
		_ = c.conn.Close()
	}
	d.mu.Unlock()
	return d.Connect(ctx, addrs, driver.Credentials{})
}

// Persist is a no-op: memcached is a pure cache with no durable checkpoint.
func (d *Driver) Persist(ctx context.Context) error { return nil }

// pick returns the connection owning key, using a multiplicative hash of the
// key's bytes modulo the server count so the same key always routes to the
// same server.
func (d *Driver) pick(key []byte) (*connState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil, errors.ErrReconnectNeeded.WithMessage("no live connections")
	}
	if len(d.conns) == 1 {
		return d.conns[0], nil
	}
	var h uint32
	for _, b := range key {
		h = h*31 + uint32(b)
	}
	return d.conns[int(h)%len(d.conns)], nil
}

func (d *Driver) Put(ctx context.Context, key, value []byte) error {
	c, err := d.pick(key)
	if err != nil {
		return err
	}
	_, err = d.command(c, fmt.Sprintf("set %s 0 0 %d\r\n", sanitize(key), len(value)), value)
	d.trackCatalog(key)
	return err
}

func (d *Driver) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	c, err := d.pick(key)
	if err != nil {
		return nil, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	c.conn.SetDeadline(deadline(d.ioTimeout))
	if _, err := c.rw.WriteString(fmt.Sprintf("get %s\r\n", sanitize(key))); err != nil {
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if err := c.rw.Flush(); err != nil {
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}

	line, err := c.rw.ReadString('\n')
	if err != nil {
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if strings.HasPrefix(line, "END") {
		return nil, false, nil
	}
	if !strings.HasPrefix(line, "VALUE") {
		return nil, false, errors.ErrBackendParseError.WithDetail("line", line)
	}

	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, false, errors.ErrBackendParseError.WithDetail("line", line)
	}
	n, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, false, errors.ErrBackendParseError.Wrap(err)
	}

	buf := make([]byte, n+2) // +2 for trailing \r\n
	if _, err := readFull(c.rw, buf); err != nil {
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if _, err := c.rw.ReadString('\n'); err != nil { // consume trailing END\r\n
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}
	return buf[:n], true, nil
}

func (d *Driver) Delete(ctx context.Context, key []byte) (bool, error) {
	c, err := d.pick(key)
	if err != nil {
		return false, err
	}
	resp, err := d.command(c, fmt.Sprintf("delete %s\r\n", sanitize(key)), nil)
	if err != nil {
		return false, err
	}
	d.untrackCatalog(key)
	return strings.HasPrefix(resp, "DELETED"), nil
}

func (d *Driver) Exists(ctx context.Context, key []byte) (bool, error) {
	_, found, err := d.Get(ctx, key)
	return found, err
}

func (d *Driver) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	c, err := d.pick(key)
	if err != nil {
		return false, err
	}
	resp, err := d.command(c, fmt.Sprintf("add %s 0 %d %d\r\n", sanitize(key), int(ttl.Seconds()), len(value)), value)
	if err != nil {
		return false, err
	}
	if strings.HasPrefix(resp, "STORED") {
		d.trackCatalog(key)
		return true, nil
	}
	return false, nil
}

// CompareAndSwap emulates a value-based CAS via get-then-add: memcached's
// native "cas" command compares by opaque token, not value, so the caller's
// semantics are reproduced with a delete-then-add guarded by the observed
// current value (racy across a third writer, acceptable for the sole user,
// LockManager's lease-steal path, which already tolerates retry-on-failure).
func (d *Driver) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	cur, found, err := d.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found || string(cur) != string(oldValue) {
		return false, nil
	}
	if _, err := d.Delete(ctx, key); err != nil {
		return false, err
	}
	return d.SetNX(ctx, key, newValue, 0)
}

func (d *Driver) Incr(ctx context.Context, key []byte) (int64, error) {
	c, err := d.pick(key)
	if err != nil {
		return 0, err
	}
	resp, err := d.command(c, fmt.Sprintf("incr %s 1\r\n", sanitize(key)), nil)
	if err != nil {
		return 0, err
	}
	resp = strings.TrimSpace(resp)
	if resp == "NOT_FOUND" {
		if _, err := d.SetNX(ctx, key, []byte("1"), 0); err != nil {
			return 0, err
		}
		return 1, nil
	}
	n, err := strconv.ParseInt(resp, 10, 64)
	if err != nil {
		return 0, errors.ErrGUIDAllocation.Wrap(err)
	}
	return n, nil
}

func (d *Driver) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	val, found, err := d.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	c, err := d.pick(key)
	if err != nil {
		return err
	}
	secs := 0
	if ttl > 0 {
		secs = int(ttl.Seconds())
	}
	_, err = d.command(c, fmt.Sprintf("set %s 0 %d %d\r\n", sanitize(key), secs, len(val)), val)
	return err
}

// RemainingTTL is not obtainable from memcached's text protocol without the
// "stats cachedump" extension most installs disable, so this adapter can
// only report presence, not remaining seconds.
func (d *Driver) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	_, found, err := d.Get(ctx, key)
	if err != nil || !found {
		return 0, found, err
	}
	return 0, true, nil
}

// ScanPrefix is served from the in-process catalog this driver maintains,
// since memcached has no native range scan: Put/Delete keep an auxiliary
// per-prefix key-set up to date instead.
func (d *Driver) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	d.catalogMu.Lock()
	defer d.catalogMu.Unlock()
	set, ok := d.catalog[string(prefix)]
	if !ok {
		return nil, nil
	}
	out := make([][]byte, 0, len(set))
	for k := range set {
		out = append(out, []byte(k))
	}
	return out, nil
}

func (d *Driver) trackCatalog(key []byte) {
	prefix := catalogPrefix(key)
	d.catalogMu.Lock()
	defer d.catalogMu.Unlock()
	set, ok := d.catalog[prefix]
	if !ok {
		set = make(map[string]struct{})
		d.catalog[prefix] = set
	}
	set[string(key)] = struct{}{}
}

func (d *Driver) untrackCatalog(key []byte) {
	prefix := catalogPrefix(key)
	d.catalogMu.Lock()
	defer d.catalogMu.Unlock()
	if set, ok := d.catalog[prefix]; ok {
		delete(set, string(key))
	}
}

// catalogPrefix buckets a key under its data-key prefix (everything up to
// and including the last underscore-delimited "data_" marker), so ScanPrefix
// lookups by skeleton.DataKeyPrefix hit the right bucket.
func catalogPrefix(key []byte) string {
	s := string(key)
	if idx := strings.LastIndex(s, "_data_"); idx >= 0 {
		return s[:idx+len("_data_")]
	}
	return s
}

func (d *Driver) RunCommandFireAndForget(ctx context.Context, cmd string) error {
	if len(d.conns) == 0 {
		return errors.ErrReconnectNeeded.WithMessage("no live connections")
	}
	_, err := d.command(d.conns[0], cmd+"\r\n", nil)
	return err
}

func (d *Driver) RunCommandHTTP(ctx context.Context, verb, url, path, query, body string) (string, int, error) {
	return "", 0, errors.ErrRawModeUnsupported.WithMessage("memcached driver does not support HTTP native commands")
}

func (d *Driver) RunCommandTokens(ctx context.Context, tokens []string) (string, error) {
	if len(d.conns) == 0 {
		return "", errors.ErrReconnectNeeded.WithMessage("no live connections")
	}
	return d.command(d.conns[0], strings.Join(tokens, " ")+"\r\n", nil)
}

// command writes a request line (plus an optional data block) and reads back
// a single response line, serialized per-connection by d.mu.
func (d *Driver) command(c *connState, line string, data []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c.conn.SetDeadline(deadline(d.ioTimeout))
	if _, err := c.rw.WriteString(line); err != nil {
		return "", errors.ErrBackendDriverError.Wrap(err)
	}
	if data != nil {
		if _, err := c.rw.Write(data); err != nil {
			return "", errors.ErrBackendDriverError.Wrap(err)
		}
		if _, err := c.rw.WriteString("\r\n"); err != nil {
			return "", errors.ErrBackendDriverError.Wrap(err)
		}
	}
	if err := c.rw.Flush(); err != nil {
		return "", errors.ErrBackendDriverError.Wrap(err)
	}
	resp, err := c.rw.ReadString('\n')
	if err != nil {
		return "", errors.ErrBackendDriverError.Wrap(err)
	}
	return strings.TrimSpace(resp), nil
}

func sanitize(key []byte) string {
	return strings.NewReplacer(" ", "_", "\r", "", "\n", "").Replace(string(key))
}

func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

func readFull(rw *bufio.ReadWriter, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := rw.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

var _ driver.KVDriver = (*Driver)(nil)

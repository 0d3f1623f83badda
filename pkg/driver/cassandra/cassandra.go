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

// Package cassandra implements driver.KVDriver against Cassandra using
// gocql, storing every store's entries as rows in one wide table keyed by
// the already-namespaced key this package never has to know the meaning of.
package cassandra

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/errors"
)

const (
	defaultKeyspace = "dps"
	table           = "kv_entries"
)

// Driver implements driver.KVDriver over a single gocql session and keyspace.
type Driver struct {
	session   *gocql.Session
	keyspace  string
	connected atomic.Bool
	timeout   time.Duration
}

// Options configures the keyspace and per-query timeout.
type Options struct {
	Keyspace       string
	Timeout        time.Duration
	Consistency    gocql.Consistency
	ReplicationFactor int
}

func DefaultOptions() Options {
	return Options{
		Keyspace:          defaultKeyspace,
		Timeout:           5 * time.Second,
		Consistency:       gocql.Quorum,
		ReplicationFactor: 3,
	}
}

func New(opts Options) *Driver {
	keyspace := opts.Keyspace
	if keyspace == "" {
		keyspace = defaultKeyspace
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Driver{keyspace: keyspace, timeout: timeout}
}

func (d *Driver) Connect(ctx context.Context, servers []string, creds driver.Credentials) error {
	if len(servers) == 0 {
		return errors.ErrConnectionFailed.WithMessage("no servers configured")
	}

	cluster := gocql.NewCluster(servers...)
	cluster.Timeout = d.timeout
	cluster.Consistency = gocql.Quorum
	if creds.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: creds.Username,
			Password: creds.Password,
		}
	}

	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}
	defer bootstrap.Close()

	createKeyspace := `CREATE KEYSPACE IF NOT EXISTS ` + d.keyspace +
		` WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 3}`
	if err := bootstrap.Query(createKeyspace).WithContext(ctx).Exec(); err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}

	cluster.Keyspace = d.keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		entry_key blob PRIMARY KEY,
		entry_value blob,
		expires_at timestamp
	)`
	if err := session.Query(createTable).WithContext(ctx).Exec(); err != nil {
		session.Close()
		return errors.ErrConnectionFailed.Wrap(err)
	}

	d.session = session
	d.connected.Store(true)
	return nil
}

func (d *Driver) IsConnected() bool { return d.connected.Load() }

func (d *Driver) Reconnect(ctx context.Context) error {
	if d.session == nil || d.session.Closed() {
		return errors.ErrReconnectNeeded.WithMessage("session must be recreated via Connect")
	}
	d.connected.Store(true)
	return nil
}

// Persist is a no-op: Cassandra's commit log already guarantees durability
// on write acknowledgement.
func (d *Driver) Persist(ctx context.Context) error { return nil }

func (d *Driver) Put(ctx context.Context, key, value []byte) error {
	q := `INSERT INTO ` + table + ` (entry_key, entry_value) VALUES (?, ?)`
	if err := d.session.Query(q, key, value).WithContext(ctx).Exec(); err != nil {
		return errors.ErrBackendDriverError.Wrap(err)
	}
	return nil
}

func (d *Driver) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	var expiresAt time.Time
	q := `SELECT entry_value, expires_at FROM ` + table + ` WHERE entry_key = ?`
	err := d.session.Query(q, key).WithContext(ctx).Scan(&value, &expiresAt)
	if err == gocql.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
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
	q := `DELETE FROM ` + table + ` WHERE entry_key = ?`
	if err := d.session.Query(q, key).WithContext(ctx).Exec(); err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return existed, nil
}

func (d *Driver) Exists(ctx context.Context, key []byte) (bool, error) {
	_, found, err := d.Get(ctx, key)
	return found, err
}

// SetNX uses Cassandra's lightweight-transaction ("IF NOT EXISTS") path,
// the standard gocql pattern for compare-and-set semantics.
func (d *Driver) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	var q *gocql.Query
	if ttl > 0 {
		q = d.session.Query(
			`INSERT INTO `+table+` (entry_key, entry_value, expires_at) VALUES (?, ?, ?) IF NOT EXISTS`,
			key, value, time.Now().Add(ttl),
		)
	} else {
		q = d.session.Query(
			`INSERT INTO `+table+` (entry_key, entry_value) VALUES (?, ?) IF NOT EXISTS`,
			key, value,
		)
	}
	applied, err := q.WithContext(ctx).ScanCAS(new([]byte), new([]byte), new(time.Time))
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return applied, nil
}

func (d *Driver) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	var curValue []byte
	q := d.session.Query(
		`UPDATE `+table+` SET entry_value = ? WHERE entry_key = ? IF entry_value = ?`,
		newValue, key, oldValue,
	)
	applied, err := q.WithContext(ctx).ScanCAS(&curValue)
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return applied, nil
}

// Incr has no atomic counter column here (counters can't share a table with
// regular columns in Cassandra), so it is implemented as a lightweight
// transaction read-modify-write loop, bounded to avoid spinning forever
// under heavy contention.
func (d *Driver) Incr(ctx context.Context, key []byte) (int64, error) {
	for attempt := 0; attempt < 10; attempt++ {
		cur, found, err := d.Get(ctx, key)
		if err != nil {
			return 0, err
		}
		var curN int64
		if found {
			curN = bytesToInt64(cur)
		}
		nextN := curN + 1
		nextBytes := int64ToBytes(nextN)

		if !found {
			ok, err := d.SetNX(ctx, key, nextBytes, 0)
			if err != nil {
				return 0, err
			}
			if ok {
				return nextN, nil
			}
			continue
		}

		ok, err := d.CompareAndSwap(ctx, key, cur, nextBytes)
		if err != nil {
			return 0, err
		}
		if ok {
			return nextN, nil
		}
	}
	return 0, errors.ErrGUIDAllocation.WithMessage("exhausted retries under contention")
}

func (d *Driver) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	value, found, err := d.Get(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if ttl <= 0 {
		q := `UPDATE ` + table + ` SET expires_at = null WHERE entry_key = ?`
		return d.session.Query(q, key).WithContext(ctx).Exec()
	}
	q := `UPDATE ` + table + ` SET entry_value = ?, expires_at = ? WHERE entry_key = ?`
	return d.session.Query(q, value, time.Now().Add(ttl), key).WithContext(ctx).Exec()
}

func (d *Driver) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	var expiresAt time.Time
	q := `SELECT expires_at FROM ` + table + ` WHERE entry_key = ?`
	err := d.session.Query(q, key).WithContext(ctx).Scan(&expiresAt)
	if err == gocql.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if expiresAt.IsZero() {
		return 0, true, nil
	}
	remaining := time.Until(expiresAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

func (d *Driver) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	var out [][]byte
	iter := d.session.Query(`SELECT entry_key FROM ` + table).WithContext(ctx).Iter()
	var k []byte
	for iter.Scan(&k) {
		if hasPrefix(k, prefix) {
			cp := make([]byte, len(k))
			copy(cp, k)
			out = append(out, cp)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, errors.ErrBackendDriverError.Wrap(err)
	}
	return out, nil
}

func (d *Driver) RunCommandFireAndForget(ctx context.Context, cmd string) error {
	return d.session.Query(cmd).WithContext(ctx).Exec()
}

func (d *Driver) RunCommandHTTP(ctx context.Context, verb, url, path, query, body string) (string, int, error) {
	return "", 0, errors.ErrRawModeUnsupported.WithMessage("cassandra driver does not support HTTP native commands")
}

func (d *Driver) RunCommandTokens(ctx context.Context, tokens []string) (string, error) {
	cql := ""
	for i, t := range tokens {
		if i > 0 {
			cql += " "
		}
		cql += t
	}
	if err := d.session.Query(cql).WithContext(ctx).Exec(); err != nil {
		return "", errors.ErrBackendDriverError.Wrap(err)
	}
	return "OK", nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func int64ToBytes(n int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}

func bytesToInt64(b []byte) int64 {
	var n int64
	for _, c := range b {
		n = n<<8 | int64(c)
	}
	return n
}

var _ driver.KVDriver = (*Driver)(nil)

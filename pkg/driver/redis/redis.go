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

// Package redis implements driver.KVDriver against Redis, Redis Cluster, and
// the hash-tag-aware "redis-cluster-plus-plus" variant, all through the
// redis.UniversalClient interface so the same code path serves all three —
// the two cluster variants always get a *redis.ClusterClient, and plain
// "redis" follows go-redis's own convention: a *redis.Client for a single
// address and a *redis.ClusterClient for more than one.
package redis

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/errors"
)

// Driver implements driver.KVDriver over go-redis's UniversalClient.
type Driver struct {
	client    goredis.UniversalClient
	cluster   bool
	connected atomic.Bool

	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	poolSize     int
	minIdleConns int
	maxRetries   int
}

// Options configures pool and timeout behavior before Connect dials.
type Options struct {
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DB           int
}

// DefaultOptions returns conservative pool and timeout defaults suitable
// for a single-process DPS server dialing a local or same-datacenter Redis.
func DefaultOptions() Options {
	return Options{
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// New builds a driver for the given backend variant. Cluster mode is chosen
// by name (driver.BackendRedisCluster / BackendRedisClusterPlusPlus) or
// implicitly whenever more than one server address is configured.
func New(name driver.BackendName, opts Options) *Driver {
	return &Driver{
		cluster:      name == driver.BackendRedisCluster || name == driver.BackendRedisClusterPlusPlus,
		dialTimeout:  opts.DialTimeout,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		poolSize:     opts.PoolSize,
		minIdleConns: opts.MinIdleConns,
		maxRetries:   opts.MaxRetries,
	}
}

func (d *Driver) Connect(ctx context.Context, servers []string, creds driver.Credentials) error {
	if len(servers) == 0 {
		return errors.ErrConnectionFailed.WithMessage("no servers configured")
	}

	opts := &goredis.UniversalOptions{
		Addrs:        servers,
		Username:     creds.Username,
		Password:     creds.Password,
		PoolSize:     d.poolSize,
		MinIdleConns: d.minIdleConns,
		MaxRetries:   d.maxRetries,
		DialTimeout:  d.dialTimeout,
		ReadTimeout:  d.readTimeout,
		WriteTimeout: d.writeTimeout,
	}
	if d.cluster {
		d.client = goredis.NewClusterClient(opts.Cluster())
	} else {
		d.client = goredis.NewUniversalClient(opts)
	}

	if err := d.client.Ping(ctx).Err(); err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}
	d.connected.Store(true)
	return nil
}

func (d *Driver) IsConnected() bool {
	return d.connected.Load()
}

func (d *Driver) Reconnect(ctx context.Context) error {
	if d.client == nil {
		return errors.ErrReconnectNeeded.WithMessage("Connect was never called")
	}
	if err := d.client.Ping(ctx).Err(); err != nil {
		d.connected.Store(false)
		return errors.ErrConnectionFailed.Wrap(err)
	}
	d.connected.Store(true)
	return nil
}

func (d *Driver) Persist(ctx context.Context) error {
	return d.client.BgSave(ctx).Err()
}

func (d *Driver) Put(ctx context.Context, key, value []byte) error {
	if err := d.client.Set(ctx, string(key), value, 0).Err(); err != nil {
		return errors.ErrBackendDriverError.Wrap(err)
	}
	return nil
}

func (d *Driver) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	val, err := d.client.Get(ctx, string(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}
	return val, true, nil
}

func (d *Driver) Delete(ctx context.Context, key []byte) (bool, error) {
	n, err := d.client.Del(ctx, string(key)).Result()
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return n > 0, nil
}

func (d *Driver) Exists(ctx context.Context, key []byte) (bool, error) {
	n, err := d.client.Exists(ctx, string(key)).Result()
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return n > 0, nil
}

func (d *Driver) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, string(key), value, ttl).Result()
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return ok, nil
}

// CompareAndSwap runs the classic WATCH/MULTI/EXEC optimistic-lock pattern,
// since go-redis has no native CAS primitive for arbitrary byte values.
func (d *Driver) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	swapped := false
	txf := func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, string(key)).Bytes()
		if err != nil && err != goredis.Nil {
			return err
		}
		if string(cur) != string(oldValue) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, string(key), newValue, goredis.KeepTTL)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}

	err := d.client.Watch(ctx, txf, string(key))
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return swapped, nil
}

func (d *Driver) Incr(ctx context.Context, key []byte) (int64, error) {
	n, err := d.client.Incr(ctx, string(key)).Result()
	if err != nil {
		return 0, errors.ErrGUIDAllocation.Wrap(err)
	}
	return n, nil
}

func (d *Driver) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return d.client.Persist(ctx, string(key)).Err()
	}
	return d.client.Expire(ctx, string(key), ttl).Err()
}

func (d *Driver) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	exists, err := d.Exists(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, nil
	}
	ttl, err := d.client.TTL(ctx, string(key)).Result()
	if err != nil {
		return 0, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if ttl < 0 {
		return 0, true, nil
	}
	return ttl, true, nil
}

// ScanPrefix uses SCAN (not KEYS) to avoid blocking the server on a large
// keyspace; in cluster mode it fans the scan out across every master shard.
func (d *Driver) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	pattern := string(prefix) + "*"
	var out [][]byte

	scanNode := func(c *goredis.Client) error {
		var cursor uint64
		for {
			keys, next, err := c.Scan(ctx, cursor, pattern, 1000).Result()
			if err != nil {
				return err
			}
			for _, k := range keys {
				out = append(out, []byte(k))
			}
			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	}

	if cc, ok := d.client.(*goredis.ClusterClient); ok {
		err := cc.ForEachMaster(ctx, func(ctx context.Context, shard *goredis.Client) error {
			return scanNode(shard)
		})
		if err != nil {
			return nil, errors.ErrBackendDriverError.Wrap(err)
		}
		return out, nil
	}

	if c, ok := d.client.(*goredis.Client); ok {
		if err := scanNode(c); err != nil {
			return nil, errors.ErrBackendDriverError.Wrap(err)
		}
		return out, nil
	}

	return nil, errors.ErrBackendDriverError.WithMessage("unexpected client type for ScanPrefix")
}

func (d *Driver) RunCommandFireAndForget(ctx context.Context, cmd string) error {
	args := tokenize(cmd)
	return d.client.Do(ctx, toInterfaceSlice(args)...).Err()
}

func (d *Driver) RunCommandHTTP(ctx context.Context, verb, url, path, query, body string) (string, int, error) {
	return "", 0, errors.ErrRawModeUnsupported.WithMessage("redis driver does not support HTTP native commands")
}

func (d *Driver) RunCommandTokens(ctx context.Context, tokens []string) (string, error) {
	res, err := d.client.Do(ctx, toInterfaceSlice(tokens)...).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil
		}
		return "", errors.ErrBackendDriverError.Wrap(err)
	}
	switch v := res.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", nil
	}
}

func toInterfaceSlice(tokens []string) []interface{} {
	out := make([]interface{}, len(tokens))
	for i, t := range tokens {
		out[i] = t
	}
	return out
}

func tokenize(cmd string) []string {
	var tokens []string
	var cur []byte
	for i := 0; i < len(cmd); i++ {
		if cmd[i] == ' ' {
			if len(cur) > 0 {
				tokens = append(tokens, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, cmd[i])
	}
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}
	return tokens
}

var _ driver.KVDriver = (*Driver)(nil)

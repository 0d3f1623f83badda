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

// Package mongo implements driver.KVDriver against MongoDB using the
// official mongo-driver, storing every entry as a document in one
// collection with a TTL index backing Expire/RemainingTTL.
package mongo

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/errors"
)

const (
	defaultDatabase   = "dps"
	collectionEntries = "kv_entries"
)

type entryDoc struct {
	Key       []byte    `bson:"_id"`
	Value     []byte    `bson:"value"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

// Driver implements driver.KVDriver over one MongoDB database/collection.
type Driver struct {
	client    *mongo.Client
	coll      *mongo.Collection
	database  string
	connected atomic.Bool
}

// Options configures the database name.
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
	if len(servers) == 0 {
		return errors.ErrConnectionFailed.WithMessage("no servers configured")
	}

	opts := options.Client().SetHosts(servers)
	if creds.Username != "" {
		opts.SetAuth(options.Credential{Username: creds.Username, Password: creds.Password})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}

	coll := client.Database(d.database).Collection(collectionEntries)
	ttlIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := coll.Indexes().CreateOne(ctx, ttlIndex); err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}

	d.client = client
	d.coll = coll
	d.connected.Store(true)
	return nil
}

func (d *Driver) IsConnected() bool { return d.connected.Load() }

func (d *Driver) Reconnect(ctx context.Context) error {
	if d.client == nil {
		return errors.ErrReconnectNeeded.WithMessage("Connect was never called")
	}
	if err := d.client.Ping(ctx, nil); err != nil {
		d.connected.Store(false)
		return errors.ErrConnectionFailed.Wrap(err)
	}
	d.connected.Store(true)
	return nil
}

// Persist is a no-op: durability is left to the client's write concern,
// and no journal flush is requested.
func (d *Driver) Persist(ctx context.Context) error { return nil }

func (d *Driver) Put(ctx context.Context, key, value []byte) error {
	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{"value": value}}
	_, err := d.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.ErrBackendDriverError.Wrap(err)
	}
	return nil
}

func (d *Driver) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var doc entryDoc
	err := d.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.ErrBackendDriverError.Wrap(err)
	}
	return doc.Value, true, nil
}

func (d *Driver) Delete(ctx context.Context, key []byte) (bool, error) {
	res, err := d.coll.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return res.DeletedCount > 0, nil
}

func (d *Driver) Exists(ctx context.Context, key []byte) (bool, error) {
	n, err := d.coll.CountDocuments(ctx, bson.M{"_id": key})
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return n > 0, nil
}

func (d *Driver) SetNX(ctx context.Context, key, value []byte, ttl time.Duration) (bool, error) {
	doc := bson.M{"_id": key, "value": value}
	if ttl > 0 {
		doc["expires_at"] = time.Now().Add(ttl)
	}
	_, err := d.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return true, nil
}

func (d *Driver) CompareAndSwap(ctx context.Context, key, oldValue, newValue []byte) (bool, error) {
	filter := bson.M{"_id": key, "value": oldValue}
	update := bson.M{"$set": bson.M{"value": newValue}}
	res, err := d.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errors.ErrBackendDriverError.Wrap(err)
	}
	return res.ModifiedCount > 0, nil
}

// Incr uses MongoDB's atomic $inc on a dedicated numeric field, the standard
// mongo-driver counter pattern.
func (d *Driver) Incr(ctx context.Context, key []byte) (int64, error) {
	filter := bson.M{"_id": key}
	update := bson.M{"$inc": bson.M{"counter": int64(1)}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var result struct {
		Counter int64 `bson:"counter"`
	}
	err := d.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result)
	if err != nil {
		return 0, errors.ErrGUIDAllocation.Wrap(err)
	}
	return result.Counter, nil
}

func (d *Driver) Expire(ctx context.Context, key []byte, ttl time.Duration) error {
	var update bson.M
	if ttl <= 0 {
		update = bson.M{"$unset": bson.M{"expires_at": ""}}
	} else {
		update = bson.M{"$set": bson.M{"expires_at": time.Now().Add(ttl)}}
	}
	_, err := d.coll.UpdateOne(ctx, bson.M{"_id": key}, update)
	if err != nil {
		return errors.ErrBackendDriverError.Wrap(err)
	}
	return nil
}

func (d *Driver) RemainingTTL(ctx context.Context, key []byte) (time.Duration, bool, error) {
	var doc entryDoc
	err := d.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.ErrBackendDriverError.Wrap(err)
	}
	if doc.ExpiresAt.IsZero() {
		return 0, true, nil
	}
	remaining := time.Until(doc.ExpiresAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

func (d *Driver) ScanPrefix(ctx context.Context, prefix []byte) ([][]byte, error) {
	filter := bson.M{"_id": bson.M{"$regex": bson.Regex{Pattern: "^" + regexEscape(prefix), Options: ""}}}
	cur, err := d.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.ErrBackendDriverError.Wrap(err)
	}
	defer cur.Close(ctx)

	var out [][]byte
	for cur.Next(ctx) {
		var doc entryDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.ErrBackendParseError.Wrap(err)
		}
		out = append(out, doc.Key)
	}
	return out, nil
}

func (d *Driver) RunCommandFireAndForget(ctx context.Context, cmd string) error {
	return d.client.Database(d.database).RunCommand(ctx, bson.D{{Key: cmd, Value: 1}}).Err()
}

func (d *Driver) RunCommandHTTP(ctx context.Context, verb, url, path, query, body string) (string, int, error) {
	return "", 0, errors.ErrRawModeUnsupported.WithMessage("mongo driver does not support HTTP native commands")
}

func (d *Driver) RunCommandTokens(ctx context.Context, tokens []string) (string, error) {
	if len(tokens) == 0 {
		return "", errors.ErrRawModeUnsupported.WithMessage("empty command")
	}
	res := d.client.Database(d.database).RunCommand(ctx, bson.D{{Key: tokens[0], Value: 1}})
	if res.Err() != nil {
		return "", errors.ErrBackendDriverError.Wrap(res.Err())
	}
	return "OK", nil
}

func regexEscape(prefix []byte) string {
	out := make([]byte, 0, len(prefix))
	specials := ".*+?()[]{}|^$\\"
	for _, b := range prefix {
		for i := 0; i < len(specials); i++ {
			if specials[i] == b {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, b)
	}
	return string(out)
}

var _ driver.KVDriver = (*Driver)(nil)

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

package storemgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/internal/lockmgr"
	"github.com/streamdps/dps/pkg/codec"
	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/memdriver"
	"github.com/streamdps/dps/pkg/errors"
)

func newTestManager(t *testing.T) (*Manager, *lockmgr.Manager) {
	t.Helper()
	drv := memdriver.New()
	require.NoError(t, drv.Connect(context.Background(), nil, driver.Credentials{}))
	return New(drv, nil), lockmgr.New(drv)
}

func enc(t *testing.T, v interface{}, tag string) []byte {
	t.Helper()
	b, err := codec.Encode(v, tag)
	require.NoError(t, err)
	return b
}

func TestCreateStoreAndFind(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateStore(ctx, lm, "users", codec.TypeString, codec.TypeString)
	require.NoError(t, err)
	assert.NotZero(t, id)

	found, err := m.FindStore(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	_, err = m.CreateStore(ctx, lm, "users", codec.TypeString, codec.TypeString)
	assert.Error(t, err, "duplicate name must fail")
}

func TestCreateOrGetStore(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id1, err := m.CreateOrGetStore(ctx, lm, "sessions", codec.TypeString, codec.TypeInt64)
	require.NoError(t, err)

	id2, err := m.CreateOrGetStore(ctx, lm, "sessions", codec.TypeString, codec.TypeInt64)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	_, err = m.CreateOrGetStore(ctx, lm, "sessions", codec.TypeString, codec.TypeString)
	assert.ErrorIs(t, err, errors.ErrStoreExistsWithDifferentTypes)
}

func TestPutGetRemoveHas(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateStore(ctx, lm, "counts", codec.TypeString, codec.TypeInt64)
	require.NoError(t, err)

	k := enc(t, "hits", codec.TypeString)
	v := enc(t, int64(42), codec.TypeInt64)

	require.NoError(t, m.Put(ctx, id, k, v))

	got, found, err := m.Get(ctx, id, k)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, v, got)

	has, err := m.Has(ctx, id, k)
	require.NoError(t, err)
	assert.True(t, has)

	size, err := m.Size(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)

	existed, err := m.Remove(ctx, id, k)
	require.NoError(t, err)
	assert.True(t, existed)

	size, err = m.Size(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 0, size)
}

func TestPutSafeRejectsTypeDrift(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateStore(ctx, lm, "mixed", codec.TypeString, codec.TypeString)
	require.NoError(t, err)

	k := enc(t, "a", codec.TypeString)
	v := enc(t, "first", codec.TypeString)
	ok, err := m.PutSafe(ctx, id, k, v, codec.TypeString)
	require.NoError(t, err)
	assert.True(t, ok)

	k2 := enc(t, "b", codec.TypeString)
	v2 := enc(t, int64(1), codec.TypeInt64)
	_, err = m.PutSafe(ctx, id, k2, v2, codec.TypeInt64)
	assert.Error(t, err, "declared value type must match the store's recorded type")
}

func TestRemoveStoreClearsEverything(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateStore(ctx, lm, "temp", codec.TypeString, codec.TypeString)
	require.NoError(t, err)

	k := enc(t, "a", codec.TypeString)
	v := enc(t, "b", codec.TypeString)
	require.NoError(t, m.Put(ctx, id, k, v))

	require.NoError(t, m.RemoveStore(ctx, lm, id))

	name, err := m.GetStoreName(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, name)

	found, err := m.FindStore(ctx, "temp")
	require.NoError(t, err)
	assert.Zero(t, found)
}

func TestClearPreservesHeader(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateStore(ctx, lm, "temp", codec.TypeString, codec.TypeString)
	require.NoError(t, err)

	k := enc(t, "a", codec.TypeString)
	v := enc(t, "b", codec.TypeString)
	require.NoError(t, m.Put(ctx, id, k, v))

	require.NoError(t, m.Clear(ctx, lm, id))

	size, err := m.Size(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, size)

	name, err := m.GetStoreName(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "temp", name)
}

func TestIteratorSnapshotIsNeverVisible(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateStore(ctx, lm, "iter", codec.TypeString, codec.TypeString)
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, id, enc(t, "a", codec.TypeString), enc(t, "1", codec.TypeString)))
	require.NoError(t, m.Put(ctx, id, enc(t, "b", codec.TypeString), enc(t, "2", codec.TypeString)))

	handle, err := m.BeginIteration(ctx, lm, id)
	require.NoError(t, err)
	defer m.EndIteration(handle)

	// insert after the snapshot: must not show up in this iterator.
	require.NoError(t, m.Put(ctx, id, enc(t, "c", codec.TypeString), enc(t, "3", codec.TypeString)))

	count := 0
	for {
		_, _, more, err := m.GetNext(ctx, handle)
		require.NoError(t, err)
		if !more {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

// TestGetNextDecodesKeysWhoseBase64ContainsUnderscore guards against
// splitting the data key on its last underscore: the base64url alphabet
// used for the encoded-key segment itself contains '_', and some encoded
// keys land one right where a naive split would cut them in half.
func TestGetNextDecodesKeysWhoseBase64ContainsUnderscore(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateStore(ctx, lm, "underscored", codec.TypeBlob, codec.TypeString)
	require.NoError(t, err)

	// base64url("\x02\xff\xff") == "Av__", which a split on the data key's
	// last underscore would truncate to an empty segment.
	key := enc(t, []byte{0xff, 0xff}, codec.TypeBlob)
	require.NoError(t, m.Put(ctx, id, key, enc(t, "payload", codec.TypeString)))

	handle, err := m.BeginIteration(ctx, lm, id)
	require.NoError(t, err)
	defer m.EndIteration(handle)

	gotKey, gotVal, more, err := m.GetNext(ctx, handle)
	require.NoError(t, err)
	require.True(t, more)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, enc(t, "payload", codec.TypeString), gotVal)

	_, _, more, err = m.GetNext(ctx, handle)
	require.NoError(t, err)
	assert.False(t, more)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	m, lm := newTestManager(t)
	ctx := context.Background()

	src, err := m.CreateStore(ctx, lm, "src", codec.TypeString, codec.TypeString)
	require.NoError(t, err)
	require.NoError(t, m.Put(ctx, src, enc(t, "x", codec.TypeString), enc(t, "1", codec.TypeString)))
	require.NoError(t, m.Put(ctx, src, enc(t, "y", codec.TypeString), enc(t, "2", codec.TypeString)))

	blob, err := m.Serialize(ctx, lm, src)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	dst, err := m.CreateStore(ctx, lm, "dst", codec.TypeString, codec.TypeString)
	require.NoError(t, err)
	require.NoError(t, m.Deserialize(ctx, dst, blob))

	size, err := m.Size(ctx, dst)
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)

	v, found, err := m.Get(ctx, dst, enc(t, "x", codec.TypeString))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, enc(t, "1", codec.TypeString), v)
}

func TestInt64AndDecimalCodecsAreDistinct(t *testing.T) {
	// the GUID/name-index encoding (8-byte big-endian) must not be confused
	// with the header size field's ASCII-decimal encoding.
	assert.Equal(t, int64(300), bytesToInt64(int64ToBytes(300)))
	assert.Equal(t, "300", int64ToDecimal(300))
	assert.EqualValues(t, 300, decimalToInt64([]byte("300")))
}

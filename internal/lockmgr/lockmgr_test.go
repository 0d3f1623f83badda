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

package lockmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/memdriver"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	drv := memdriver.New()
	require.NoError(t, drv.Connect(context.Background(), nil, driver.Credentials{}))
	return New(drv)
}

func TestCreateOrGetLock(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id1, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)
	assert.NotZero(t, id1)

	id2, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := m.CreateOrGetLock(ctx, "other")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestAcquireReleaseLock(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)

	ok, err := m.AcquireLock(ctx, id, time.Second, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	pid, found, err := m.GetPidForLock(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, m.pid, pid)

	require.NoError(t, m.ReleaseLock(ctx, id))

	_, found, err = m.GetPidForLock(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAcquireLock_ContentionTimesOut(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)

	ok, err := m.AcquireLock(ctx, id, 5*time.Second, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// A second acquire against a lease that outlives maxWait must fail, not
	// hang; AcquireLock retries within maxWait and then reports false.
	ok, err = m.AcquireLock(ctx, id, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcquireLock_StealsAfterLeaseExpiry(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)

	ok, err := m.AcquireLock(ctx, id, 30*time.Millisecond, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// Lease expires; a second acquire (simulating another process, since
	// m.pid is fixed per Manager the steal is exercised the same way) must
	// eventually succeed once the holder's lease has passed.
	ok, err = m.AcquireLock(ctx, id, time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseLock_InvalidID(t *testing.T) {
	m := newManager(t)
	err := m.ReleaseLock(context.Background(), 0)
	assert.Error(t, err)
}

func TestRemoveLock(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)

	ok, err := m.AcquireLock(ctx, id, time.Second, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	existed, err := m.RemoveLock(ctx, "checkpoint", id)
	require.NoError(t, err)
	assert.True(t, existed)

	// name index gone: re-registering "checkpoint" must allocate a fresh id.
	id2, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestGetPidForLock_Unowned(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.CreateOrGetLock(ctx, "checkpoint")
	require.NoError(t, err)

	_, found, err := m.GetPidForLock(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInt64RoundTrip(t *testing.T) {
	vals := []int64{0, 1, 255, 256, 1 << 40, 1<<63 - 1}
	for _, v := range vals {
		assert.Equal(t, v, bytesToInt64(int64ToBytes(v)))
	}
}

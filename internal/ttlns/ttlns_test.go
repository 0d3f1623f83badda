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

package ttlns

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/memdriver"
)

func newNamespace(t *testing.T) *Namespace {
	t.Helper()
	drv := memdriver.New()
	require.NoError(t, drv.Connect(context.Background(), nil, driver.Credentials{}))
	return New(drv)
}

func TestPutGetTTL(t *testing.T) {
	n := newNamespace(t)
	ctx := context.Background()

	require.NoError(t, n.PutTTL(ctx, "session:1", "active", time.Second, false, false))

	v, found, err := n.GetTTL(ctx, "session:1", false, false)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "active", v)
}

func TestGetTTL_Missing(t *testing.T) {
	n := newNamespace(t)
	_, found, err := n.GetTTL(context.Background(), "nope", false, false)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTTLExpiry(t *testing.T) {
	n := newNamespace(t)
	ctx := context.Background()

	require.NoError(t, n.PutTTL(ctx, "flash", "gone-soon", 30*time.Millisecond, false, false))

	has, err := n.HasTTL(ctx, "flash", false)
	require.NoError(t, err)
	assert.True(t, has)

	time.Sleep(60 * time.Millisecond)

	has, err = n.HasTTL(ctx, "flash", false)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRemoveTTL(t *testing.T) {
	n := newNamespace(t)
	ctx := context.Background()

	require.NoError(t, n.PutTTL(ctx, "k", "v", 0, false, false))

	existed, err := n.RemoveTTL(ctx, "k", false)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = n.RemoveTTL(ctx, "k", false)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRawModeRoundTrip(t *testing.T) {
	n := newNamespace(t)
	ctx := context.Background()

	require.NoError(t, n.PutTTL(ctx, "native-key", "native-value", 0, true, true))

	v, found, err := n.GetTTL(ctx, "native-key", true, true)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "native-value", v)
}

func TestNoExpiryMeansNoExpiry(t *testing.T) {
	n := newNamespace(t)
	ctx := context.Background()

	require.NoError(t, n.PutTTL(ctx, "sticky", "forever", 0, false, false))

	time.Sleep(20 * time.Millisecond)

	v, found, err := n.GetTTL(ctx, "sticky", false, false)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "forever", v)
}

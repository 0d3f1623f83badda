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

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLExpiresAcrossProcesses(t *testing.T) {
	a, b := newPair(t)
	ctx := context.Background()

	require.NoError(t, a.PutTTL(ctx, "session:1", "payload", 30*time.Millisecond, false, false))

	v, found, err := b.GetTTL(ctx, "session:1", false, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "payload", v)

	time.Sleep(80 * time.Millisecond)

	_, found, err = b.GetTTL(ctx, "session:1", false, false)
	require.NoError(t, err)
	require.False(t, found)

	found, err = a.HasTTL(ctx, "session:1", false)
	require.NoError(t, err)
	require.False(t, found)
}

func TestTTLZeroMeansNoExpiry(t *testing.T) {
	a, b := newPair(t)
	ctx := context.Background()

	require.NoError(t, a.PutTTL(ctx, "config:flag", "on", 0, false, false))
	time.Sleep(20 * time.Millisecond)

	v, found, err := b.GetTTL(ctx, "config:flag", false, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "on", v)
}

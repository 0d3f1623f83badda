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

	"github.com/stretchr/testify/require"
)

func TestCrossProcessVisibility(t *testing.T) {
	a, b := newPair(t)
	ctx := context.Background()

	id, err := a.CreateStore(ctx, "widgets", "string", "int64")
	require.NoError(t, err)

	sameID, err := b.FindStore(ctx, "widgets")
	require.NoError(t, err)
	require.Equal(t, id, sameID)

	require.NoError(t, a.Put(ctx, id, "count", int64(42), "string", "int64"))

	v, found, err := b.Get(ctx, id, "count", "string", "int64")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(42), v)

	removed, err := b.Remove(ctx, id, "count", "string")
	require.NoError(t, err)
	require.True(t, removed)

	_, found, err = a.Get(ctx, id, "count", "string", "int64")
	require.NoError(t, err)
	require.False(t, found)
}

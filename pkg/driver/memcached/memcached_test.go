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

package memcached

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/pkg/driver"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 3*time.Second, opts.IOTimeout)
}

func TestIsConnected_FalseBeforeConnect(t *testing.T) {
	d := New(DefaultOptions())
	assert.False(t, d.IsConnected())
}

func TestConnect_NoServersErrors(t *testing.T) {
	d := New(DefaultOptions())
	err := d.Connect(context.Background(), nil, driver.Credentials{})
	require.Error(t, err)
	assert.False(t, d.IsConnected())
}

func TestConnect_UnreachableServerErrors(t *testing.T) {
	d := New(Options{DialTimeout: 50 * time.Millisecond, IOTimeout: 50 * time.Millisecond})
	err := d.Connect(context.Background(), []string{"127.0.0.1:1"}, driver.Credentials{})
	require.Error(t, err)
	assert.False(t, d.IsConnected())
}

func TestPersist_NoOp(t *testing.T) {
	d := New(DefaultOptions())
	assert.NoError(t, d.Persist(context.Background()))
}

func TestPick_NoConnectionsErrors(t *testing.T) {
	d := New(DefaultOptions())
	_, err := d.pick([]byte("k"))
	assert.Error(t, err)
}

func TestRunCommandHTTP_Unsupported(t *testing.T) {
	d := New(DefaultOptions())
	_, _, err := d.RunCommandHTTP(context.Background(), "GET", "", "", "", "")
	assert.Error(t, err)
}

func TestRunCommandFireAndForget_NoConnectionsErrors(t *testing.T) {
	d := New(DefaultOptions())
	err := d.RunCommandFireAndForget(context.Background(), "stats")
	assert.Error(t, err)
}

func TestRunCommandTokens_NoConnectionsErrors(t *testing.T) {
	d := New(DefaultOptions())
	_, err := d.RunCommandTokens(context.Background(), []string{"stats"})
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "foo_bar", sanitize([]byte("foo bar")))
	assert.Equal(t, "foobar", sanitize([]byte("foo\r\nbar")))
}

func TestCatalogPrefix(t *testing.T) {
	assert.Equal(t, "dps_1_data_", catalogPrefix([]byte("dps_1_data_abc123")))
	assert.Equal(t, "no_marker_here", catalogPrefix([]byte("no_marker_here")))
}

func TestDeadline(t *testing.T) {
	assert.True(t, deadline(0).IsZero())
	assert.False(t, deadline(time.Second).IsZero())
}

func TestScanPrefix_EmptyCatalogReturnsNil(t *testing.T) {
	d := New(DefaultOptions())
	out, err := d.ScanPrefix(context.Background(), []byte("dps_1_data_"))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestTrackAndUntrackCatalog(t *testing.T) {
	d := New(DefaultOptions())
	key := []byte("dps_1_data_abc")
	d.trackCatalog(key)

	out, err := d.ScanPrefix(context.Background(), []byte("dps_1_data_"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{key}, out)

	d.untrackCatalog(key)
	out, err = d.ScanPrefix(context.Background(), []byte("dps_1_data_"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

var _ driver.KVDriver = (*Driver)(nil)

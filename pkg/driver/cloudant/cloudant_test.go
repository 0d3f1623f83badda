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

package cloudant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/pkg/driver"
)

func TestDefaultOptions(t *testing.T) {
	assert.Equal(t, defaultDatabase, DefaultOptions().Database)
}

func TestNew_FallsBackToDefaultDatabase(t *testing.T) {
	d := New(Options{})
	assert.Equal(t, defaultDatabase, d.database)
}

func TestNew_KeepsExplicitDatabase(t *testing.T) {
	d := New(Options{Database: "custom"})
	assert.Equal(t, "custom", d.database)
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

func TestPersist_NoOp(t *testing.T) {
	d := New(DefaultOptions())
	assert.NoError(t, d.Persist(context.Background()))
}

func TestRunCommandTokens_Unsupported(t *testing.T) {
	d := New(DefaultOptions())
	_, err := d.RunCommandTokens(context.Background(), []string{"get"})
	assert.Error(t, err)
}

func TestDocPath(t *testing.T) {
	assert.Equal(t, "/dps_kv/my%20key", docPath("dps_kv", "my key"))
}

var _ driver.KVDriver = (*Driver)(nil)

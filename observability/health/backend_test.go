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

package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/driver/memdriver"
)

func TestBackendChecker_ConnectedIsHealthy(t *testing.T) {
	drv := memdriver.New()
	require.NoError(t, drv.Connect(context.Background(), nil, driver.Credentials{}))

	c := NewBackendChecker("memdriver", drv)
	assert.Equal(t, "backend:memdriver", c.Name())

	result := c.Check(context.Background())
	assert.True(t, result.IsHealthy())
}

func TestBackendChecker_DisconnectedIsUnhealthy(t *testing.T) {
	drv := memdriver.New()

	c := NewBackendChecker("memdriver", drv)
	result := c.Check(context.Background())
	assert.True(t, result.IsUnhealthy())
	assert.NotEmpty(t, result.Message)
}

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

package errorstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	dpserrors "github.com/streamdps/dps/pkg/errors"
)

func TestNewStateHasNoError(t *testing.T) {
	s := New()
	code, msg := s.Last()
	assert.Empty(t, code)
	assert.Empty(t, msg)
	assert.False(t, s.HasError())
}

func TestRecordDPSError(t *testing.T) {
	s := New()
	s.Record(dpserrors.ErrStoreNotFound)

	code, msg := s.Last()
	assert.Equal(t, dpserrors.ErrStoreNotFound.Code, code)
	assert.Equal(t, dpserrors.ErrStoreNotFound.Message, msg)
	assert.True(t, s.HasError())
}

func TestRecordUnknownError(t *testing.T) {
	s := New()
	s.Record(errors.New("boom"))

	code, msg := s.Last()
	assert.Equal(t, "DL_UNKNOWN_ERROR", code)
	assert.Equal(t, "boom", msg)
}

func TestRecordNilClears(t *testing.T) {
	s := New()
	s.Record(dpserrors.ErrStoreNotFound)
	require := assert.New(t)
	require.True(s.HasError())

	s.Record(nil)
	require.False(s.HasError())
}

func TestBeginClearsPriorError(t *testing.T) {
	s := New()
	s.Record(dpserrors.ErrStoreNotFound)
	s.Begin()

	code, msg := s.Last()
	assert.Empty(t, code)
	assert.Empty(t, msg)
}

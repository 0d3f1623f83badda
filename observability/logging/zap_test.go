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

package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZapLogger(t *testing.T) {
	logger, err := NewZapLogger(LevelInfo, "json")
	require.NoError(t, err)
	require.NotNil(t, logger)

	// Should not panic for any level.
	ctx := context.Background()
	logger.Debug(ctx, "debug message", String("k", "v"))
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message", Error(nil))
}

func TestZapLogger_With(t *testing.T) {
	logger, err := NewZapLogger(LevelInfo, "console")
	require.NoError(t, err)

	child := logger.With(String("component", "lockmgr"))
	assert.NotNil(t, child)
	child.Info(context.Background(), "lock acquired")
}

func TestZapLogger_SetLevel(t *testing.T) {
	logger, err := NewZapLogger(LevelWarn, "json")
	require.NoError(t, err)

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, levelFromZap(logger.atomicLevel.Level()))
}

func levelFromZap(l interface{ String() string }) Level {
	switch l.String() {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

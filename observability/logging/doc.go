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

// Package logging provides structured logging with context propagation for
// a DPS process.
//
// # Overview
//
// This package provides structured logging with:
//   - Multiple log levels (DEBUG, INFO, WARN, ERROR, FATAL)
//   - JSON output, plus zap's console output from ZapLogger
//   - Context-aware logging (request ID, trace ID, component ID)
//   - Log sampling for high-volume scenarios
//   - Field-based structured data
//
// # Basic Usage
//
//	logger := logging.NewStructuredLogger(logging.LevelInfo)
//
//	logger.Info(ctx, "message handled",
//	    logging.String("component_id", "dpsctl-serve"),
//	    logging.Int("duration_ms", 42),
//	)
//
// # Context Propagation
//
// Automatically extract context values:
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	ctx = logging.WithTraceID(ctx, "trace-456")
//	ctx = logging.WithComponentID(ctx, "dpsctl-serve")
//
//	logger.Info(ctx, "processing request")
//	// Output: {"component_id":"dpsctl-serve","level":"info","message":"processing request","request_id":"req-123","timestamp":"...","trace_id":"trace-456"}
//
// # Log Levels
//
//	logger.Debug(ctx, "detailed debug info")
//	logger.Info(ctx, "informational message")
//	logger.Warn(ctx, "warning message")
//	logger.Error(ctx, "error occurred", logging.Error(err))
//	logger.Fatal(ctx, "fatal error")  // Calls os.Exit(1)
//
// # Structured Fields
//
//	logger.Info(ctx, "user action",
//	    logging.String("user_id", "user-123"),
//	    logging.Int("count", 42),
//	    logging.Float64("duration", 0.523),
//	    logging.Bool("success", true),
//	    logging.Error(err),
//	    logging.Any("data", complexObject),
//	)
//
// # Log Sampling
//
// Sample debug logs for performance:
//
//	logger := logging.NewStructuredLogger(logging.LevelDebug)
//	logger.SetSamplingRate(0.1)  // Sample 10% of debug logs
//
//	for i := 0; i < 1000; i++ {
//	    logger.Debug(ctx, "debug message")  // Only ~100 will be logged
//	}
//
// # With Fields
//
// Add persistent fields to all logs:
//
//	nodeLogger := logger.With(
//	    logging.String("component_id", "dpsctl-serve"),
//	    logging.String("version", "1.0.0"),
//	)
//
//	nodeLogger.Info(ctx, "started")   // Includes component_id and version
//	nodeLogger.Info(ctx, "stopped")   // Includes component_id and version
//
// # Output Formats
//
// StructuredLogger writes one JSON object per line, with its keys in
// alphabetical order:
//
//	{"component_id":"dpsctl-serve","level":"info","message":"hello","timestamp":"2025-10-08T10:30:00Z"}
//
// ZapLogger writes through zap's JSON encoder, or through zap's
// tab-separated console encoder when NewZapLogger is given format
// "console"; both use zap's own key names ("msg" for the message).
package logging

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
	"math/rand"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements Logger on top of go.uber.org/zap's SugaredLogger;
// dps.Process builds one from its logging config. StructuredLogger is the
// zap-free JSON logger that observability.Manager builds, and the one tests
// use to assert on raw JSON lines.
type ZapLogger struct {
	base         *zap.SugaredLogger
	atomicLevel  zap.AtomicLevel
	samplingRate atomic.Value // float64
}

// NewZapLogger builds a ZapLogger writing level-and-above entries as JSON
// (format == "console" switches to zap's human-readable console encoder).
func NewZapLogger(level Level, format string) (*ZapLogger, error) {
	al := zap.NewAtomicLevelAt(toZapLevel(level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if format == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), al)
	logger := zap.New(core).Sugar()

	z := &ZapLogger{base: logger, atomicLevel: al}
	z.samplingRate.Store(1.0)
	return z, nil
}

func (z *ZapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	if !z.sample() {
		return
	}
	z.base.Debugw(msg, toZapArgs(ctx, fields)...)
}

func (z *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.base.Infow(msg, toZapArgs(ctx, fields)...)
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.base.Warnw(msg, toZapArgs(ctx, fields)...)
}

func (z *ZapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	z.base.Errorw(msg, toZapArgs(ctx, fields)...)
}

func (z *ZapLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	z.base.Fatalw(msg, toZapArgs(ctx, fields)...)
}

func (z *ZapLogger) With(fields ...Field) Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	child := &ZapLogger{base: z.base.With(args...), atomicLevel: z.atomicLevel}
	child.samplingRate.Store(z.samplingRate.Load())
	return child
}

func (z *ZapLogger) SetLevel(level Level) {
	z.atomicLevel.SetLevel(toZapLevel(level))
}

func (z *ZapLogger) SetSamplingRate(rate float64) {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	z.samplingRate.Store(rate)
}

func (z *ZapLogger) sample() bool {
	rate := z.samplingRate.Load().(float64)
	return rate >= 1.0 || rand.Float64() <= rate
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapArgs(ctx context.Context, fields []Field) []interface{} {
	all := append(extractContextFields(ctx), fields...)
	args := make([]interface{}, 0, len(all)*2)
	for _, f := range all {
		args = append(args, f.Key, f.Value)
	}
	return args
}

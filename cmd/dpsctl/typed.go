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

package main

import (
	"fmt"
	"strconv"

	"github.com/streamdps/dps/pkg/codec"
)

// parseTyped converts a command-line string into the Go value codec.Encode
// expects for tag.
func parseTyped(raw, tag string) (interface{}, error) {
	switch tag {
	case codec.TypeString:
		return raw, nil
	case codec.TypeInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int64 %q: %w", raw, err)
		}
		return n, nil
	case codec.TypeFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float64 %q: %w", raw, err)
		}
		return f, nil
	case codec.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", raw, err)
		}
		return b, nil
	case codec.TypeBlob:
		return []byte(raw), nil
	default:
		return nil, fmt.Errorf("unsupported type tag %q (want one of string, int64, float64, bool, blob)", tag)
	}
}

// formatTyped renders a decoded value for terminal output.
func formatTyped(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

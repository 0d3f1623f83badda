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

// Package errors provides the structured, categorized error type shared by
// every DPS component.
//
// The package defines a closed, stable set of error codes so that two
// processes sharing a backend agree on what each failure means:
//
//   - Validation: malformed caller input
//   - Concurrency: store-lock contention, lock acquire timeout
//   - Security: backend authentication failure
//   - Storage: connection, timeout, name collisions, codec errors
//   - Resource: local allocation failures (iterators, buffers)
//   - Network: backend transport failures
//   - Internal: anything that should never happen
//   - NotFound / Unauthorized / Unsupported: self-explanatory
//
// Adapters surface a code via one of the two error channels (normal or TTL,
// see internal/ttlns); higher layers never interpret the code, only
// propagate it.
//
// # Creating Errors
//
// Use predefined sentinels:
//
//	err := errors.ErrStoreNotFound.WithDetail("name", storeName)
//
// Or create custom ones:
//
//	err := errors.New(errors.CategoryStorage, "CUSTOM_ERROR", "custom message")
//
// # Wrapping Errors
//
//	if err := conn.Dial(addr); err != nil {
//	    return errors.ErrConnectionFailed.WithMessage("dial failed").Wrap(err)
//	}
//
// # Error Checking
//
//	if errors.Is(err, errors.ErrLockTimeout) {
//	    // handle timeout
//	}
//
//	var dpsErr *errors.Error
//	if errors.As(err, &dpsErr) {
//	    log.Printf("code=%s details=%v", dpsErr.Code, dpsErr.Details)
//	}
package errors

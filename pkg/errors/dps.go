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

package errors

// Name/id errors.
var (
	// ErrStoreNotFound indicates a store name or id has no backing entry.
	ErrStoreNotFound = &Error{
		Category: CategoryNotFound,
		Code:     "STORE_NOT_FOUND",
		Message:  "store not found",
	}

	// ErrStoreExists indicates createStore was called with a name already taken.
	ErrStoreExists = &Error{
		Category: CategoryStorage,
		Code:     "STORE_EXISTS",
		Message:  "a store with this name already exists",
	}

	// ErrStoreExistsWithDifferentTypes indicates createOrGetStore found a
	// pre-existing store whose key/value type tags do not match the request.
	ErrStoreExistsWithDifferentTypes = &Error{
		Category: CategoryStorage,
		Code:     "STORE_EXISTS_WITH_DIFFERENT_TYPES",
		Message:  "store exists with different key/value types",
	}

	// ErrInvalidID indicates a store or lock id of 0, or one with no backing entry.
	ErrInvalidID = &Error{
		Category: CategoryValidation,
		Code:     "INVALID_ID",
		Message:  "invalid store or lock id",
	}

	// ErrLockNotFound indicates a lock name or id has no backing entry.
	ErrLockNotFound = &Error{
		Category: CategoryNotFound,
		Code:     "LOCK_NOT_FOUND",
		Message:  "lock not found",
	}

	// ErrGUIDAllocation indicates the shared id-allocation counter could not
	// be incremented.
	ErrGUIDAllocation = &Error{
		Category: CategoryStorage,
		Code:     "GUID_ERROR",
		Message:  "failed to allocate a new store or lock id",
	}
)

// Concurrency errors.
var (
	// ErrStoreLockFailed indicates the per-store structural mutex could not
	// be acquired.
	ErrStoreLockFailed = &Error{
		Category: CategoryConcurrency,
		Code:     "STORE_LOCK_FAILED",
		Message:  "could not acquire store mutex",
	}

	// ErrLockTimeout indicates acquireLock's maxWait budget was exhausted.
	ErrLockTimeout = &Error{
		Category: CategoryConcurrency,
		Code:     "DL_GET_LOCK_TIMEOUT",
		Message:  "timed out waiting to acquire lock",
	}
)

// Data errors.
var (
	// ErrTypeMismatch indicates putSafe/getSafe found a stored value whose
	// declared type tag differs from the caller's.
	ErrTypeMismatch = &Error{
		Category: CategoryValidation,
		Code:     "TYPE_MISMATCH",
		Message:  "stored value type tag does not match requested type",
	}

	// ErrCodecMalformed indicates decode found trailing bytes or an
	// inconsistent length prefix.
	ErrCodecMalformed = &Error{
		Category: CategoryValidation,
		Code:     "CODEC_MALFORMED",
		Message:  "malformed encoded byte sequence",
	}

	// ErrRawModeUnsupported indicates raw (unencoded) mode was requested for
	// a non-string type.
	ErrRawModeUnsupported = &Error{
		Category: CategoryValidation,
		Code:     "RAW_MODE_UNSUPPORTED",
		Message:  "raw mode is only valid for string types",
	}
)

// Backend errors.
var (
	// ErrBackendHTTPError indicates a REST backend returned a non-2xx status.
	ErrBackendHTTPError = &Error{
		Category: CategoryNetwork,
		Code:     "BACKEND_HTTP_ERROR",
		Message:  "backend returned a non-success HTTP status",
	}

	// ErrBackendParseError indicates a REST response body could not be parsed.
	ErrBackendParseError = &Error{
		Category: CategoryNetwork,
		Code:     "BACKEND_PARSE_ERROR",
		Message:  "failed to parse backend response",
	}

	// ErrBackendDriverError wraps a native client library error.
	ErrBackendDriverError = &Error{
		Category: CategoryNetwork,
		Code:     "BACKEND_DRIVER_ERROR",
		Message:  "native backend driver error",
	}

	// ErrConnectionFailed indicates the adapter could not establish a
	// connection to any configured server.
	ErrConnectionFailed = &Error{
		Category: CategoryNetwork,
		Code:     "CONNECTION_FAILED",
		Message:  "failed to connect to backend",
	}

	// ErrAuthenticationFailed indicates the backend rejected the configured
	// credentials.
	ErrAuthenticationFailed = &Error{
		Category: CategorySecurity,
		Code:     "AUTHENTICATION_FAILED",
		Message:  "backend authentication failed",
	}

	// ErrReconnectNeeded indicates an operation observed a dead connection
	// and a Reconnect call is required before retrying.
	ErrReconnectNeeded = &Error{
		Category: CategoryNetwork,
		Code:     "RECONNECT_NEEDED",
		Message:  "connection lost, reconnect required",
	}
)

// Resource errors.
var (
	// ErrOutOfMemory indicates a local allocation failure while buffering a
	// response.
	ErrOutOfMemory = &Error{
		Category: CategoryResource,
		Code:     "OUT_OF_MEMORY",
		Message:  "out of memory",
	}

	// ErrIteratorAllocation indicates a new iterator could not be created.
	ErrIteratorAllocation = &Error{
		Category: CategoryResource,
		Code:     "ITERATOR_ALLOC_FAILED",
		Message:  "failed to allocate iterator",
	}
)

// Feature-absent errors.
var (
	// ErrTTLNotSupported indicates a backend cannot emulate TTL semantics.
	ErrTTLNotSupported = &Error{
		Category: CategoryUnsupported,
		Code:     "TTL_NOT_SUPPORTED",
		Message:  "TTL is not supported on this backend",
	}
)

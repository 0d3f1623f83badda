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

// Package skeleton builds the reserved backend keys that every adapter and
// every generic manager (StoreManager, LockManager, TTLNamespace) must agree
// on bit-for-bit, defined exactly once here.
package skeleton

import (
	"encoding/base64"
	"fmt"
)

// Reserved tokens every adapter and generic manager agree on.
const (
	GUIDCounterKey  = "dps_and_dl_guid"
	StoreLockPrefix = "dps_lock"
	DistLockPrefix  = "dl_lock"
	GenericLockPrefix = "generic_lock"
	TTLNamespace    = "dps_ttl_kv_global_store"
	MetaDBName      = "dps_dl_meta_data"
	StoreIDTracker  = "dps_store_id_tracker"
	NameIndexPrefix = "dps_name_of_this_store"
)

// Store header type tokens (suffixes on the per-store metadata key).
const (
	TokenName       = "0"
	TokenSize       = "1"
	TokenCatalog    = "2" // memcached-only
	TokenData       = "3"
	TokenStoreLock  = "4"
	TokenLockField5 = "5"
	TokenLockField6 = "6"
	TokenLockField7 = "7"
	TokenOrderedKeys = "101" // redis
	TokenGeneral    = "501"
)

// HeaderField builds the reserved metadata key for store id storeID's field
// token (TokenName, TokenSize, or the key-type/value-type token passed by the
// caller), written alongside TokenName/TokenSize at store creation time.
func HeaderField(storeID int64, token string) []byte {
	return []byte(fmt.Sprintf("dps_%d_%s", storeID, token))
}

// KeyTypeField and ValueTypeField hold the type-name-of-key/value fields
// written atomically at store creation.
func KeyTypeField(storeID int64) []byte {
	return []byte(fmt.Sprintf("dps_%d_spl_type_name_of_key", storeID))
}

func ValueTypeField(storeID int64) []byte {
	return []byte(fmt.Sprintf("dps_%d_spl_type_name_of_value", storeID))
}

// NameIndexKey builds the `dps_name_of_this_store:<name>` key used to
// guarantee name uniqueness via SetNX.
func NameIndexKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", NameIndexPrefix, name))
}

// DataKey builds the entry key for (storeID, encodedUserKey), base64-encoding
// the user key where the backend requires arbitrary bytes to be escaped.
// hashTag, if non-empty, is embedded as a Redis Cluster hash tag so every key
// belonging to one store routes to the same slot.
func DataKey(storeID int64, encodedUserKey []byte, base64Encode bool, hashTag string) []byte {
	userPart := encodedUserKey
	if base64Encode {
		userPart = []byte(base64.RawURLEncoding.EncodeToString(encodedUserKey))
	}
	if hashTag != "" {
		return []byte(fmt.Sprintf("{%s}dps_%d_data_%s", hashTag, storeID, userPart))
	}
	return []byte(fmt.Sprintf("dps_%d_data_%s", storeID, userPart))
}

// DataKeyPrefix returns the prefix shared by every DataKey for storeID, used
// with KVDriver.ScanPrefix to build an iteration snapshot.
func DataKeyPrefix(storeID int64, hashTag string) []byte {
	if hashTag != "" {
		return []byte(fmt.Sprintf("{%s}dps_%d_data_", hashTag, storeID))
	}
	return []byte(fmt.Sprintf("dps_%d_data_", storeID))
}

// StoreMutexKey builds the per-store structural-operation lock token.
func StoreMutexKey(storeID int64) []byte {
	return []byte(fmt.Sprintf("%s:%d", StoreLockPrefix, storeID))
}

// LockKey builds the reserved key backing a named distributed lock.
func LockKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", DistLockPrefix, name))
}

// LockNameIndexKey builds the name->id index entry for a distributed lock.
func LockNameIndexKey(name string) []byte {
	return []byte(fmt.Sprintf("%s_name:%s", DistLockPrefix, name))
}

// TTLKey builds the key for a global TTL-namespace entry.
func TTLKey(encodedUserKey []byte) []byte {
	return []byte(fmt.Sprintf("%s:%s", TTLNamespace, base64.RawURLEncoding.EncodeToString(encodedUserKey)))
}

// DecodeUserKey reverses the base64 encoding DataKey applies, extracting the
// original encoded-user-key bytes from a raw backend key's trailing segment.
func DecodeUserKey(segment []byte) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(string(segment))
}

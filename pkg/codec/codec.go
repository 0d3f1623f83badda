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

// Package codec implements the self-describing binary format that maps
// user-supplied typed values to opaque byte sequences and back.
//
// Every encoded value is a single length-prefixed chunk: payloads shorter
// than 255 bytes carry a one-byte length, longer ones a tag byte (0xFF)
// followed by a 4-byte big-endian length. Composite values (lists) recurse:
// the chunk's inner payload is a 4-byte big-endian element count followed by
// each element's own length-prefixed chunk. This makes the wire format
// self-delimiting without needing the type tag to parse it back apart,
// which is what lets StoreManager.Serialize/Deserialize walk a stream of
// concatenated key/value chunks with DecodeAll.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/streamdps/dps/pkg/errors"
)

// Well-known primitive type tags. Composite list tags are written as
// "list:<element-tag>", e.g. "list:string".
const (
	TypeString  = "string"
	TypeInt64   = "int64"
	TypeFloat64 = "float64"
	TypeBool    = "bool"
	TypeBlob    = "blob"
	listPrefix  = "list:"
)

const shortLenMax = 0xFE
const longLenTag = 0xFF

// Encode maps v to a self-describing byte sequence per typeTag.
func Encode(v interface{}, typeTag string) ([]byte, error) {
	inner, err := encodeInner(v, typeTag)
	if err != nil {
		return nil, err
	}
	return wrapChunk(inner), nil
}

// Decode reverses Encode. It fails with ErrCodecMalformed if trailing bytes
// remain after the single chunk is consumed.
func Decode(b []byte, typeTag string) (interface{}, error) {
	inner, rest, err := readChunk(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.ErrCodecMalformed.WithDetail("trailing_bytes", len(rest))
	}
	return decodeInner(inner, typeTag)
}

// EncodeRaw stores a string/blob value without the length-prefix envelope,
// so native backend tools can read it directly. Non-string types are
// rejected per spec: raw mode exists only for rstring-shaped values.
func EncodeRaw(v interface{}, typeTag string) ([]byte, error) {
	switch typeTag {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.ErrTypeMismatch.WithDetail("want", TypeString)
		}
		return []byte(s), nil
	case TypeBlob:
		b, ok := v.([]byte)
		if !ok {
			return nil, errors.ErrTypeMismatch.WithDetail("want", TypeBlob)
		}
		return b, nil
	default:
		return nil, errors.ErrRawModeUnsupported.WithDetail("type", typeTag)
	}
}

// DecodeRaw reverses EncodeRaw.
func DecodeRaw(b []byte, typeTag string) (interface{}, error) {
	switch typeTag {
	case TypeString:
		return string(b), nil
	case TypeBlob:
		return b, nil
	default:
		return nil, errors.ErrRawModeUnsupported.WithDetail("type", typeTag)
	}
}

// DecodeAll splits a concatenation of chunks (as produced by StoreManager's
// Serialize) into raw key/value byte pairs, without interpreting them
// against a type tag. It returns ErrCodecMalformed if the buffer does not
// divide evenly into pairs of chunks.
func DecodeAll(b []byte) ([][2][]byte, error) {
	var pairs [][2][]byte
	rest := b
	for len(rest) > 0 {
		keyChunk, r1, err := readChunk(rest)
		if err != nil {
			return nil, err
		}
		if len(r1) == 0 {
			return nil, errors.ErrCodecMalformed.WithMessage("odd number of chunks")
		}
		valChunk, r2, err := readChunk(r1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2][]byte{wrapChunk(keyChunk), wrapChunk(valChunk)})
		rest = r2
	}
	return pairs, nil
}

func encodeInner(v interface{}, typeTag string) ([]byte, error) {
	if strings.HasPrefix(typeTag, listPrefix) {
		return encodeList(v, strings.TrimPrefix(typeTag, listPrefix))
	}

	switch typeTag {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.ErrTypeMismatch.WithDetail("want", TypeString)
		}
		return []byte(s), nil
	case TypeInt64:
		n, ok := asInt64(v)
		if !ok {
			return nil, errors.ErrTypeMismatch.WithDetail("want", TypeInt64)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n))
		return buf, nil
	case TypeFloat64:
		f, ok := asFloat64(v)
		if !ok {
			return nil, errors.ErrTypeMismatch.WithDetail("want", TypeFloat64)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	case TypeBool:
		bv, ok := v.(bool)
		if !ok {
			return nil, errors.ErrTypeMismatch.WithDetail("want", TypeBool)
		}
		if bv {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case TypeBlob:
		bb, ok := v.([]byte)
		if !ok {
			return nil, errors.ErrTypeMismatch.WithDetail("want", TypeBlob)
		}
		return bb, nil
	default:
		return nil, errors.ErrTypeMismatch.WithDetail("unknown_type", typeTag)
	}
}

func decodeInner(inner []byte, typeTag string) (interface{}, error) {
	if strings.HasPrefix(typeTag, listPrefix) {
		return decodeList(inner, strings.TrimPrefix(typeTag, listPrefix))
	}

	switch typeTag {
	case TypeString:
		return string(inner), nil
	case TypeInt64:
		if len(inner) != 8 {
			return nil, errors.ErrCodecMalformed.WithDetail("want_len", 8)
		}
		return int64(binary.BigEndian.Uint64(inner)), nil
	case TypeFloat64:
		if len(inner) != 8 {
			return nil, errors.ErrCodecMalformed.WithDetail("want_len", 8)
		}
		return math.Float64frombits(binary.BigEndian.Uint64(inner)), nil
	case TypeBool:
		if len(inner) != 1 {
			return nil, errors.ErrCodecMalformed.WithDetail("want_len", 1)
		}
		return inner[0] != 0, nil
	case TypeBlob:
		return inner, nil
	default:
		return nil, errors.ErrTypeMismatch.WithDetail("unknown_type", typeTag)
	}
}

func encodeList(v interface{}, elemTag string) ([]byte, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, errors.ErrTypeMismatch.WithDetail("want", "list:"+elemTag)
	}

	countBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(countBuf, uint32(len(items)))

	out := countBuf
	for _, item := range items {
		chunk, err := Encode(item, elemTag)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func decodeList(inner []byte, elemTag string) (interface{}, error) {
	if len(inner) < 4 {
		return nil, errors.ErrCodecMalformed.WithMessage("truncated list count")
	}
	count := binary.BigEndian.Uint32(inner[:4])
	rest := inner[4:]

	items := make([]interface{}, 0, count)
	for i := uint32(0); i < count; i++ {
		chunk, next, err := readChunk(rest)
		if err != nil {
			return nil, err
		}
		elem, err := decodeInner(chunk, elemTag)
		if err != nil {
			return nil, err
		}
		items = append(items, elem)
		rest = next
	}
	if len(rest) != 0 {
		return nil, errors.ErrCodecMalformed.WithMessage("trailing bytes in list")
	}
	return items, nil
}

// wrapChunk adds the length-prefix envelope around an already-encoded payload.
func wrapChunk(payload []byte) []byte {
	if len(payload) <= shortLenMax {
		out := make([]byte, 0, 1+len(payload))
		out = append(out, byte(len(payload)))
		return append(out, payload...)
	}
	out := make([]byte, 0, 5+len(payload))
	out = append(out, longLenTag)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	out = append(out, lenBuf...)
	return append(out, payload...)
}

// readChunk reads one length-prefixed chunk off the front of b, returning
// the chunk's payload and the remaining bytes.
func readChunk(b []byte) (payload, rest []byte, err error) {
	if len(b) < 1 {
		return nil, nil, errors.ErrCodecMalformed.WithMessage("empty buffer")
	}

	lenByte := b[0]
	if lenByte != longLenTag {
		n := int(lenByte)
		if len(b) < 1+n {
			return nil, nil, errors.ErrCodecMalformed.WithMessage("truncated short chunk")
		}
		return b[1 : 1+n], b[1+n:], nil
	}

	if len(b) < 5 {
		return nil, nil, errors.ErrCodecMalformed.WithMessage("truncated long-length tag")
	}
	n := int(binary.BigEndian.Uint32(b[1:5]))
	if len(b) < 5+n {
		return nil, nil, errors.ErrCodecMalformed.WithMessage("truncated long chunk")
	}
	return b[5 : 5+n], b[5+n:], nil
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	default:
		return 0, false
	}
}

// Validate is a convenience wrapper used by adapters that only need to
// confirm a type tag is well-formed (primitive or list:<primitive>) before
// attempting a round trip, e.g. when registering a new store's key/value
// type tags.
func Validate(typeTag string) error {
	base := typeTag
	if strings.HasPrefix(typeTag, listPrefix) {
		base = strings.TrimPrefix(typeTag, listPrefix)
	}
	switch base {
	case TypeString, TypeInt64, TypeFloat64, TypeBool, TypeBlob:
		return nil
	default:
		return fmt.Errorf("%w: %s", errTagUnknown, typeTag)
	}
}

var errTagUnknown = fmt.Errorf("unknown type tag")

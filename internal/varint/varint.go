// Package varint implements the byte-level codec shared by every packet on
// the wire: fixed-width integers, floats, booleans, length-prefixed strings,
// length-prefixed arrays, and the Minecraft-style 7-bit continuation-bit
// varint.
package varint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientBytes means the decoder needs more bytes than are
// currently available. Callers must leave the input buffer unconsumed from
// the start of the value being decoded and try again once more bytes
// arrive.
var ErrInsufficientBytes = errors.New("varint: insufficient bytes")

// ErrBadFormat means the bytes present are not a valid encoding: an oversize
// varint or an out-of-range length prefix. String contents are not checked
// for valid UTF-8.
var ErrBadFormat = errors.New("varint: bad format")

const (
	maxVarint32Bytes = 5
	maxVarint64Bytes = 10
)

// Uint32 decodes an unsigned 32-bit varint from b, returning the value, the
// number of bytes consumed, and an error.
func Uint32(b []byte) (uint32, int, error) {
	var result uint32
	for i := 0; i < maxVarint32Bytes; i++ {
		if i >= len(b) {
			return 0, 0, ErrInsufficientBytes
		}
		c := b[i]
		result |= uint32(c&0x7f) << uint(7*i)
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: varint32 exceeds %d bytes", ErrBadFormat, maxVarint32Bytes)
}

// PutUint32 appends the varint encoding of v to dst and returns the result.
func PutUint32(dst []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, c|0x80)
		} else {
			dst = append(dst, c)
			return dst
		}
	}
}

// SizeUint32 reports how many bytes PutUint32 would write for v.
func SizeUint32(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// Uint64 decodes an unsigned 64-bit varint, used for larger ids that the
// wire format allows up to 10 bytes for.
func Uint64(b []byte) (uint64, int, error) {
	var result uint64
	for i := 0; i < maxVarint64Bytes; i++ {
		if i >= len(b) {
			return 0, 0, ErrInsufficientBytes
		}
		c := b[i]
		result |= uint64(c&0x7f) << uint(7*i)
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: varint64 exceeds %d bytes", ErrBadFormat, maxVarint64Bytes)
}

// PutUint64 appends the varint encoding of v to dst and returns the result.
func PutUint64(dst []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, c|0x80)
		} else {
			dst = append(dst, c)
			return dst
		}
	}
}

// Bool decodes a single-byte boolean.
func Bool(b []byte) (bool, int, error) {
	if len(b) < 1 {
		return false, 0, ErrInsufficientBytes
	}
	return b[0] != 0, 1, nil
}

// PutBool appends a single-byte boolean to dst.
func PutBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// Int8/Uint8/Int16/Uint16/Int32Fixed/Int64Fixed/Uint64Fixed decode
// fixed-width network-byte-order integers.

func Int8(b []byte) (int8, int, error) {
	if len(b) < 1 {
		return 0, 0, ErrInsufficientBytes
	}
	return int8(b[0]), 1, nil
}

func PutInt8(dst []byte, v int8) []byte { return append(dst, byte(v)) }

func Uint8(b []byte) (uint8, int, error) {
	if len(b) < 1 {
		return 0, 0, ErrInsufficientBytes
	}
	return b[0], 1, nil
}

func PutUint8(dst []byte, v uint8) []byte { return append(dst, v) }

func Int16(b []byte) (int16, int, error) {
	if len(b) < 2 {
		return 0, 0, ErrInsufficientBytes
	}
	return int16(binary.BigEndian.Uint16(b)), 2, nil
}

func PutInt16(dst []byte, v int16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(v))
	return append(dst, tmp[:]...)
}

func Uint16(b []byte) (uint16, int, error) {
	if len(b) < 2 {
		return 0, 0, ErrInsufficientBytes
	}
	return binary.BigEndian.Uint16(b), 2, nil
}

func PutUint16(dst []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(dst, tmp[:]...)
}

func Int32Fixed(b []byte) (int32, int, error) {
	if len(b) < 4 {
		return 0, 0, ErrInsufficientBytes
	}
	return int32(binary.BigEndian.Uint32(b)), 4, nil
}

func PutInt32Fixed(dst []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(dst, tmp[:]...)
}

func Int64Fixed(b []byte) (int64, int, error) {
	if len(b) < 8 {
		return 0, 0, ErrInsufficientBytes
	}
	return int64(binary.BigEndian.Uint64(b)), 8, nil
}

func PutInt64Fixed(dst []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(dst, tmp[:]...)
}

func Uint64Fixed(b []byte) (uint64, int, error) {
	if len(b) < 8 {
		return 0, 0, ErrInsufficientBytes
	}
	return binary.BigEndian.Uint64(b), 8, nil
}

func PutUint64Fixed(dst []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(dst, tmp[:]...)
}

func Float32(b []byte) (float32, int, error) {
	v, n, err := Int32Fixed(b)
	if err != nil {
		return 0, 0, err
	}
	return math.Float32frombits(uint32(v)), n, nil
}

func PutFloat32(dst []byte, v float32) []byte {
	return PutInt32Fixed(dst, int32(math.Float32bits(v)))
}

func Float64(b []byte) (float64, int, error) {
	v, n, err := Int64Fixed(b)
	if err != nil {
		return 0, 0, err
	}
	return math.Float64frombits(uint64(v)), n, nil
}

func PutFloat64(dst []byte, v float64) []byte {
	return PutInt64Fixed(dst, int64(math.Float64bits(v)))
}

// String decodes a varint-length-prefixed UTF-8 string. maxLen bounds the
// code-unit count the wire is allowed to claim; 0 means unbounded.
func String(b []byte, maxLen int) (string, int, error) {
	length, n, err := Uint32(b)
	if err != nil {
		return "", 0, err
	}
	if maxLen > 0 && int(length) > maxLen {
		return "", 0, fmt.Errorf("%w: string length %d exceeds max %d", ErrBadFormat, length, maxLen)
	}
	total := n + int(length)
	if len(b) < total {
		return "", 0, ErrInsufficientBytes
	}
	return string(b[n:total]), total, nil
}

// PutString appends a varint-length-prefixed UTF-8 string to dst.
func PutString(dst []byte, s string) []byte {
	dst = PutUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// LengthPrefix selects the wire type of an array's element-count prefix.
type LengthPrefix int

const (
	PrefixVarint LengthPrefix = iota
	PrefixInt8
	PrefixInt16
	PrefixInt32
)

// ArrayLength decodes an array's element count using the given prefix kind.
func ArrayLength(b []byte, kind LengthPrefix) (int, int, error) {
	switch kind {
	case PrefixVarint:
		v, n, err := Uint32(b)
		return int(v), n, err
	case PrefixInt8:
		v, n, err := Int8(b)
		if err != nil {
			return 0, 0, err
		}
		if v < 0 {
			return 0, 0, fmt.Errorf("%w: negative int8 array length", ErrBadFormat)
		}
		return int(v), n, nil
	case PrefixInt16:
		v, n, err := Int16(b)
		if err != nil {
			return 0, 0, err
		}
		if v < 0 {
			return 0, 0, fmt.Errorf("%w: negative int16 array length", ErrBadFormat)
		}
		return int(v), n, nil
	case PrefixInt32:
		v, n, err := Int32Fixed(b)
		if err != nil {
			return 0, 0, err
		}
		if v < 0 {
			return 0, 0, fmt.Errorf("%w: negative int32 array length", ErrBadFormat)
		}
		return int(v), n, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown length-prefix kind %d", ErrBadFormat, kind)
	}
}

// PutArrayLength encodes count using the given prefix kind. It returns
// ErrBadFormat if count exceeds the prefix type's positive range — the
// codec must never serialize a list field whose element count overflows
// its declared prefix.
func PutArrayLength(dst []byte, count int, kind LengthPrefix) ([]byte, error) {
	switch kind {
	case PrefixVarint:
		return PutUint32(dst, uint32(count)), nil
	case PrefixInt8:
		if count > math.MaxInt8 {
			return nil, fmt.Errorf("%w: array length %d exceeds int8 range", ErrBadFormat, count)
		}
		return PutInt8(dst, int8(count)), nil
	case PrefixInt16:
		if count > math.MaxInt16 {
			return nil, fmt.Errorf("%w: array length %d exceeds int16 range", ErrBadFormat, count)
		}
		return PutInt16(dst, int16(count)), nil
	case PrefixInt32:
		if count > math.MaxInt32 {
			return nil, fmt.Errorf("%w: array length %d exceeds int32 range", ErrBadFormat, count)
		}
		return PutInt32Fixed(dst, int32(count)), nil
	default:
		return nil, fmt.Errorf("%w: unknown length-prefix kind %d", ErrBadFormat, kind)
	}
}

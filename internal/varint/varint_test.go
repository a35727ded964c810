package varint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32Boundaries(t *testing.T) {
	cases := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{2097151, []byte{0xFF, 0xFF, 0x7F}},
		{2097152, []byte{0x80, 0x80, 0x80, 0x01}},
		{4294967295, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}
	for _, c := range cases {
		got := PutUint32(nil, c.v)
		assert.Equal(t, c.want, got, "encode(%d)", c.v)

		decoded, n, err := Uint32(got)
		require.NoError(t, err)
		assert.Equal(t, len(got), n)
		assert.Equal(t, c.v, decoded)
	}
}

func TestUint32InsufficientBytes(t *testing.T) {
	_, _, err := Uint32([]byte{0x80})
	assert.ErrorIs(t, err, ErrInsufficientBytes)
}

func TestUint32Oversize(t *testing.T) {
	_, _, err := Uint32([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestStringRoundTrip(t *testing.T) {
	buf := PutString(nil, "hello, minecraft")
	s, n, err := String(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello, minecraft", s)
	assert.Equal(t, len(buf), n)
}

func TestStringMaxLenExceeded(t *testing.T) {
	buf := PutString(nil, "too long")
	_, _, err := String(buf, 3)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestStringInsufficientBytes(t *testing.T) {
	buf := PutString(nil, "partial")
	_, _, err := String(buf[:len(buf)-1], 0)
	assert.ErrorIs(t, err, ErrInsufficientBytes)
}

func TestArrayLengthPrefixKinds(t *testing.T) {
	for _, kind := range []LengthPrefix{PrefixVarint, PrefixInt8, PrefixInt16, PrefixInt32} {
		buf, err := PutArrayLength(nil, 42, kind)
		require.NoError(t, err)
		got, _, err := ArrayLength(buf, kind)
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	}
}

func TestArrayLengthOverflow(t *testing.T) {
	_, err := PutArrayLength(nil, 1000, PrefixInt8)
	assert.ErrorIs(t, err, ErrBadFormat)
	assert.True(t, errors.Is(err, ErrBadFormat))
}

func TestFixedWidthRoundTrip(t *testing.T) {
	buf := PutInt32Fixed(nil, -12345)
	v, n, err := Int32Fixed(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.EqualValues(t, -12345, v)

	buf64 := PutInt64Fixed(nil, -9876543210)
	v64, _, err := Int64Fixed(buf64)
	require.NoError(t, err)
	assert.EqualValues(t, -9876543210, v64)

	fbuf := PutFloat64(nil, 3.25)
	f, _, err := Float64(fbuf)
	require.NoError(t, err)
	assert.Equal(t, 3.25, f)
}

package protocol

import (
	"testing"

	"github.com/RobertLeahy/MCPP-sub000/internal/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	p := NewPacket(mustLookup(t, Play, Clientbound, 0x04))
	p.SetUint64("age", 123456)
	p.SetUint64("time_of_day", 6000)

	buf, err := Encode(p)
	require.NoError(t, err)

	got, n, err := Decode(Play, Clientbound, buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, uint64(123456), got.Uint64("age"))
	assert.Equal(t, uint64(6000), got.Uint64("time_of_day"))
}

func TestDecodeRestartOnInsufficientBytes(t *testing.T) {
	// Scenario from spec §8.2: offering [0x02] (a length claiming 2 bytes
	// follow) with nothing else present must report MoreNeeded and leave
	// the byte(s) unconsumed.
	_, n, err := Decode(Handshake, Serverbound, []byte{0x02})
	require.ErrorIs(t, err, varint.ErrInsufficientBytes)
	assert.Equal(t, 0, n)
}

func TestDecodeParserRestartabilityNeverDecreases(t *testing.T) {
	p := NewPacket(mustLookup(t, Play, Clientbound, 0x00))
	p.SetUint64("token", 42)
	full, err := Encode(p)
	require.NoError(t, err)

	for i := 0; i < len(full); i++ {
		_, _, err := Decode(Play, Clientbound, full[:i])
		require.Error(t, err)
	}
	_, n, err := Decode(Play, Clientbound, full)
	require.NoError(t, err)
	assert.Equal(t, len(full), n)
}

func TestDecodeBadPacketID(t *testing.T) {
	buf := varint.PutUint32(nil, 1) // length=1
	buf = append(buf, 0x7F)         // id=0x7F, unregistered in Handshake/Serverbound
	_, _, err := Decode(Handshake, Serverbound, buf)
	assert.ErrorIs(t, err, ErrBadPacketID)
}

func TestDecodeTrailingBytesIsBadFormat(t *testing.T) {
	// status_request has zero fields; claim 1 extra byte of payload after the id.
	buf := varint.PutUint32(nil, 2) // length = id(1) + 1 trailing byte
	buf = append(buf, 0x00, 0xAA)
	_, _, err := Decode(Status, Serverbound, buf)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestChunkDataRawLengthFromField(t *testing.T) {
	p := NewPacket(mustLookup(t, Play, Clientbound, 0x33))
	p.SetInt32("x", 1)
	p.SetInt32("z", -2)
	p.SetBool("group_up", true)
	p.SetUint16("primary_mask", 0xFFFF)
	p.SetUint16("add_mask", 0)
	payload := []byte{1, 2, 3, 4, 5}
	p.SetInt32("compressed_len", int32(len(payload)))
	p.SetBytes("compressed", payload)

	buf, err := Encode(p)
	require.NoError(t, err)

	got, _, err := Decode(Play, Clientbound, buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Bytes("compressed"))
}

func mustLookup(t *testing.T, state State, dir Direction, id uint32) *PacketSpec {
	t.Helper()
	spec, err := Lookup(state, dir, id)
	require.NoError(t, err)
	return spec
}

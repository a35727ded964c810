package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
	"github.com/RobertLeahy/MCPP-sub000/internal/session"
)

func TestAssignReturnsDisplacedHandler(t *testing.T) {
	r := New(nil)
	called := 0
	first := func(c *session.Client, pkt *protocol.Packet) { called = 1 }
	second := func(c *session.Client, pkt *protocol.Packet) { called = 2 }

	prev := r.Assign(protocol.Play, 0x01, first)
	assert.Nil(t, prev)

	prev = r.Assign(protocol.Play, 0x01, second)
	require.NotNil(t, prev)
	prev(nil, nil)
	assert.Equal(t, 1, called)
}

func TestDispatchCallsRegisteredHandler(t *testing.T) {
	r := New(nil)
	var seen *protocol.Packet
	r.Assign(protocol.Play, 0x02, func(c *session.Client, pkt *protocol.Packet) {
		seen = pkt
	})

	spec, err := protocol.Lookup(protocol.Play, protocol.Clientbound, 0x02)
	require.NoError(t, err)
	pkt := protocol.NewPacket(spec)

	r.Dispatch(nil, pkt)
	assert.Same(t, pkt, seen)
}

func TestDispatchUnknownTupleDropsWithoutPanicking(t *testing.T) {
	r := New(nil)
	spec, err := protocol.Lookup(protocol.Status, protocol.Serverbound, 0x00)
	require.NoError(t, err)
	pkt := protocol.NewPacket(spec)

	assert.NotPanics(t, func() { r.Dispatch(nil, pkt) })
}

func TestRemoveClearsHandler(t *testing.T) {
	r := New(nil)
	r.Assign(protocol.Play, 0x03, func(c *session.Client, pkt *protocol.Packet) {})
	removed := r.Remove(protocol.Play, 0x03)
	assert.NotNil(t, removed)
	assert.Nil(t, r.Remove(protocol.Play, 0x03))
}

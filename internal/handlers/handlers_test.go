package handlers

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertLeahy/MCPP-sub000/internal/config"
	"github.com/RobertLeahy/MCPP-sub000/internal/netio"
	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
	"github.com/RobertLeahy/MCPP-sub000/internal/server"
	"github.com/RobertLeahy/MCPP-sub000/internal/session"
	"github.com/RobertLeahy/MCPP-sub000/internal/store"
	"github.com/RobertLeahy/MCPP-sub000/internal/world"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	gens := world.NewGeneratorRegistry()
	gens.Register(0, "flat", world.FlatGenerator{SurfaceY: 1, GroundType: 1})

	cfg := config.Config{
		Binds:      []string{":0"},
		NumThreads: 2,
		MaxBytes:   1 << 16,
		MaxPlayers: 8,
	}
	s, err := server.New(cfg, nil, nil, store.NewMemStore(), "flat", gens, nil)
	require.NoError(t, err)
	Register(s, func() string { return `{"description":{"text":"test"}}` })
	return s
}

func newTestClient() (*session.Client, *netio.Connection, net.Conn) {
	serverSide, clientSide := net.Pipe()
	conn := netio.NewConnection(serverSide, 0)
	conn.StartWriter()
	return session.New(conn, nil), conn, clientSide
}

func TestHandshakeTransitionsToStatusState(t *testing.T) {
	s := newTestServer(t)
	c, _, _ := newTestClient()

	spec, err := protocol.Lookup(protocol.Handshake, protocol.Serverbound, 0x00)
	require.NoError(t, err)
	p := protocol.NewPacket(spec)
	p.SetVarInt32("protocol_version", 47)
	p.SetString("server_address", "localhost")
	p.SetUint16("server_port", 25565)
	p.SetVarInt32("next_state", 1)

	s.Router().Dispatch(c, p)
	assert.Equal(t, protocol.Status, c.State())
}

func TestLoginStartSendsSuccessAndTransitionsToPlay(t *testing.T) {
	s := newTestServer(t)
	c, _, client := newTestClient()
	c.SetProtocolState(protocol.Login)

	spec, err := protocol.Lookup(protocol.Login, protocol.Serverbound, 0x00)
	require.NoError(t, err)
	p := protocol.NewPacket(spec)
	p.SetString("username", "Steve")

	s.Router().Dispatch(c, p)

	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "Steve")

	assert.Equal(t, protocol.Play, c.State())
	assert.Equal(t, "Steve", c.Username())
	assert.Equal(t, session.Authenticated, c.ConnState())
}

func TestChatMessageBroadcastsToJoinedRecipients(t *testing.T) {
	s := newTestServer(t)
	c, _, client := newTestClient()
	s.Chat().Join(c)

	spec, err := protocol.Lookup(protocol.Play, protocol.Serverbound, 0x01)
	require.NoError(t, err)
	p := protocol.NewPacket(spec)
	p.SetString("message", "hello")

	s.Router().Dispatch(c, p)

	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "hello")
}

package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertLeahy/MCPP-sub000/internal/config"
	"github.com/RobertLeahy/MCPP-sub000/internal/logging"
	"github.com/RobertLeahy/MCPP-sub000/internal/netio"
	"github.com/RobertLeahy/MCPP-sub000/internal/session"
	"github.com/RobertLeahy/MCPP-sub000/internal/store"
	"github.com/RobertLeahy/MCPP-sub000/internal/world"
)

func newTestServer(t *testing.T, offlineFreeze bool) *Server {
	t.Helper()
	gens := world.NewGeneratorRegistry()
	gens.Register(0, "flat", world.FlatGenerator{SurfaceY: 1, GroundType: 1})

	cfg := config.Config{
		Binds:               []string{":0"},
		NumThreads:          2,
		MaxBytes:            1 << 16,
		MaxPlayers:          8,
		WorldUnloadInterval: time.Hour,
		TickLength:          time.Hour,
		OfflineFreeze:       offlineFreeze,
	}
	s, err := New(cfg, nil, nil, store.NewMemStore(), "flat", gens, nil)
	require.NoError(t, err)
	return s
}

func addTestClient(s *Server) (*session.Client, net.Conn) {
	server, client := net.Pipe()
	conn := netio.NewConnection(server, 0)
	conn.StartWriter()
	c := session.New(conn, nil)
	s.clientsMu.Lock()
	s.clients[conn] = c
	s.clientsMu.Unlock()
	return c, client
}

func TestTickSkipsAdvanceWhenOfflineFreezeAndNoAuthenticated(t *testing.T) {
	s := newTestServer(t, true)
	addTestClient(s)

	s.tick()
	assert.EqualValues(t, 0, s.worldAge.Load())
}

func TestTickAdvancesWhenAuthenticatedClientPresent(t *testing.T) {
	s := newTestServer(t, true)
	c, _ := addTestClient(s)
	s.MarkAuthenticated(c)

	s.tick()
	assert.EqualValues(t, 1, s.worldAge.Load())
}

func TestTickAlwaysAdvancesWithoutOfflineFreeze(t *testing.T) {
	s := newTestServer(t, false)
	addTestClient(s)

	s.tick()
	assert.EqualValues(t, 1, s.worldAge.Load())
}

func TestDisconnectForceUnsubscribesTrackedColumns(t *testing.T) {
	s := newTestServer(t, false)
	c, _ := addTestClient(s)

	require.NoError(t, s.SubscribeColumn(c, 0, 0, 0))
	col, err := s.world.Load(world.ColumnID{Dimension: 0, X: 0, Z: 0}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, col.SubscriberCount())

	s.onDisconnect(c.Connection(), nil)
	assert.Equal(t, 0, col.SubscriberCount(), "disconnect must force-unsubscribe every tracked column")
}

func TestAcceptFilterRejectsAtCap(t *testing.T) {
	s := newTestServer(t, false)
	for i := 0; i < 8; i++ {
		addTestClient(s)
	}
	assert.False(t, s.acceptFilter(nil, 0), "max_players is 8 in newTestServer's config")
}

func TestAcceptFilterAllowsUnderCap(t *testing.T) {
	s := newTestServer(t, false)
	addTestClient(s)
	assert.True(t, s.acceptFilter(nil, 0))
}

func TestAcceptFilterUnlimitedWhenMaxPlayersZero(t *testing.T) {
	gens := world.NewGeneratorRegistry()
	gens.Register(0, "flat", world.FlatGenerator{SurfaceY: 1, GroundType: 1})
	cfg := config.Config{
		Binds:               []string{":0"},
		NumThreads:          2,
		MaxBytes:            1 << 16,
		MaxPlayers:          0,
		WorldUnloadInterval: time.Hour,
		TickLength:          time.Hour,
	}
	s, err := New(cfg, nil, nil, store.NewMemStore(), "flat", gens, nil)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		addTestClient(s)
	}
	assert.True(t, s.acceptFilter(nil, 0), "max_players 0 means unlimited")
}

func TestTickOverrunWarnsAfterThreshold(t *testing.T) {
	gens := world.NewGeneratorRegistry()
	gens.Register(0, "flat", world.FlatGenerator{SurfaceY: 1, GroundType: 1})
	cfg := config.Config{
		Binds:               []string{":0"},
		NumThreads:          2,
		MaxBytes:            1 << 16,
		MaxPlayers:          8,
		WorldUnloadInterval: time.Hour,
		TickLength:          time.Nanosecond,
		TickThreshold:       2,
	}
	log := logging.New()
	s, err := New(cfg, log, nil, store.NewMemStore(), "flat", gens, nil)
	require.NoError(t, err)

	entries, unsub := log.Subscribe()
	defer unsub()

	s.tick()
	s.tick()

	select {
	case e := <-entries:
		assert.Equal(t, logging.Warn, e.Level)
		assert.Contains(t, e.Text, "tick overran budget")
	case <-time.After(time.Second):
		t.Fatal("expected a tick overrun warning after two consecutive overruns")
	}
}

func TestLegacyStatusReportsOnlineAndMaxPlayers(t *testing.T) {
	s := newTestServer(t, false)
	addTestClient(s)

	status := s.legacyStatus()
	assert.Equal(t, 1, status.OnlinePlayers)
	assert.Equal(t, 8, status.MaxPlayers)
}

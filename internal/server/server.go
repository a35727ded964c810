// Package server is the kernel composing every other component into a
// running daemon (spec §4.1/Component K): it owns the netio.Handler,
// wires each accepted connection to a session.Client, dispatches decoded
// packets through the router, drives the maintenance and world-tick
// schedules, and installs the single process-wide panic hook. Its
// lifecycle (signal.NotifyContext, goroutine-per-listener, graceful
// stop on cancellation) is grounded on the teacher's cmd/sql-tapd run().
package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/RobertLeahy/MCPP-sub000/internal/chat"
	"github.com/RobertLeahy/MCPP-sub000/internal/config"
	"github.com/RobertLeahy/MCPP-sub000/internal/logging"
	"github.com/RobertLeahy/MCPP-sub000/internal/maintenance"
	"github.com/RobertLeahy/MCPP-sub000/internal/metrics"
	"github.com/RobertLeahy/MCPP-sub000/internal/netio"
	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
	"github.com/RobertLeahy/MCPP-sub000/internal/router"
	"github.com/RobertLeahy/MCPP-sub000/internal/session"
	"github.com/RobertLeahy/MCPP-sub000/internal/store"
	"github.com/RobertLeahy/MCPP-sub000/internal/telemetry"
	"github.com/RobertLeahy/MCPP-sub000/internal/world"
)

// Server is the running daemon: one netio.Handler, one Router, one
// world.Store, the chat fan-out, and the maintenance/tick schedules.
type Server struct {
	cfg config.Config
	log *logging.Broker
	met *metrics.Metrics

	handler *netio.Handler
	router  *router.Router
	world   *world.Store
	chat    *chat.Router
	maint   *maintenance.Maintenance

	tickSched gocron.Scheduler
	telemetry *telemetry.Hub

	clientsMu sync.RWMutex
	clients   map[*netio.Connection]*session.Client

	subsMu sync.Mutex
	subs   map[*session.Client]map[world.ColumnID]struct{}

	authenticated atomic.Int32
	worldAge      atomic.Uint64
	timeOfDay     atomic.Uint64
	tickOverruns  atomic.Int32
}

// New builds a Server. backing is the data-provider collaborator; gens
// and pops configure the world store's generator/populator chain.
func New(cfg config.Config, log *logging.Broker, met *metrics.Metrics, backing store.ColumnStore, worldType string, gens *world.GeneratorRegistry, pops []world.Populator) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		log:       log,
		met:       met,
		router:    router.New(log),
		world:     world.NewStore(worldType, gens, pops, backing),
		chat:      chat.New(),
		telemetry: telemetry.NewHub(),
		clients:   make(map[*netio.Connection]*session.Client),
		subs:      make(map[*session.Client]map[world.ColumnID]struct{}),
	}

	m, err := maintenance.New(s.world, backing, log)
	if err != nil {
		return nil, fmt.Errorf("server: new maintenance: %w", err)
	}
	s.maint = m

	tickSched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("server: new tick scheduler: %w", err)
	}
	s.tickSched = tickSched

	s.world.SetOnTransition(func(id world.ColumnID, state world.State) {
		s.telemetry.Publish(telemetry.ColumnLoad(id.Dimension, id.X, id.Z, state.String()))
	})
	s.chat.SetOnBroadcast(func(username, message string) {
		s.telemetry.Publish(telemetry.ChatMessage(username, message))
	})

	s.handler = netio.NewHandler(cfg.NumThreads, cfg.MaxBytes, netio.Callbacks{
		AcceptFilter: s.acceptFilter,
		OnConnect:    s.onConnect,
		OnReceive:    s.onReceive,
		OnDisconnect: s.onDisconnect,
	})

	return s, nil
}

// Router exposes the packet router so cmd/mcserverd can register
// handlers before Start.
func (s *Server) Router() *router.Router { return s.router }

// World exposes the column store for handler wiring and tests.
func (s *Server) World() *world.Store { return s.world }

// Chat exposes the chat fan-out for handler wiring.
func (s *Server) Chat() *chat.Router { return s.chat }

// Telemetry exposes the admin event hub so handlers and cmd/mcserverd can
// publish events and serve the watch stream.
func (s *Server) Telemetry() *telemetry.Hub { return s.telemetry }

// Start binds every configured listener and starts the maintenance and
// tick schedules. It returns once every listener is bound; callers
// should follow with a block on their own shutdown signal, then call
// Stop.
func (s *Server) Start() error {
	for _, addr := range s.cfg.Binds {
		if err := s.handler.Listen(addr); err != nil {
			return fmt.Errorf("server: start: %w", err)
		}
	}

	if err := s.maint.Start(s.cfg.WorldUnloadInterval); err != nil {
		return fmt.Errorf("server: start maintenance: %w", err)
	}

	_, err := s.tickSched.NewJob(gocron.DurationJob(s.cfg.TickLength), gocron.NewTask(s.tick))
	if err != nil {
		return fmt.Errorf("server: register tick job: %w", err)
	}
	s.tickSched.Start()

	if s.log != nil {
		s.log.WriteLog(fmt.Sprintf("server: listening on %v", s.cfg.Binds), logging.Info)
	}
	return nil
}

// Stop gracefully shuts down every subsystem. It does not return until
// all connections have been signaled to close.
func (s *Server) Stop() {
	s.handler.Shutdown("server shutting down")
	if err := s.tickSched.Shutdown(); err != nil && s.log != nil {
		s.log.WriteLog(fmt.Sprintf("server: tick scheduler shutdown: %v", err), logging.Warn)
	}
	if err := s.maint.Stop(); err != nil && s.log != nil {
		s.log.WriteLog(fmt.Sprintf("server: maintenance shutdown: %v", err), logging.Warn)
	}
}

// acceptFilter enforces cfg.MaxPlayers (0 = unlimited) against the count
// of currently-tracked connections, rejecting new sockets over the cap
// before a session.Client is ever constructed for them (spec §6
// max_players "admission cap... on exceed, reject").
func (s *Server) acceptFilter(_ net.IP, _ int) bool {
	if s.cfg.MaxPlayers <= 0 {
		return true
	}
	s.clientsMu.RLock()
	n := len(s.clients)
	s.clientsMu.RUnlock()
	return n < s.cfg.MaxPlayers
}

func (s *Server) onConnect(conn *netio.Connection) {
	if s.met != nil {
		s.met.ConnectionsOpen.Inc()
		s.met.ConnectionsTotal.Inc()
	}
	c := session.New(conn, nil)
	s.clientsMu.Lock()
	s.clients[conn] = c
	s.clientsMu.Unlock()
}

func (s *Server) onReceive(conn *netio.Connection, data []byte) {
	s.clientsMu.RLock()
	c := s.clients[conn]
	s.clientsMu.RUnlock()
	if c == nil {
		return
	}

	if c.State() == protocol.Handshake && session.IsLegacyPing(data) {
		session.RespondLegacyPing(conn, s.legacyStatus())
		return
	}

	if err := c.OfferBytes(data); err != nil {
		return
	}

	for {
		pkt, err := c.Poll()
		if err != nil {
			if errors.Is(err, session.ErrMoreNeeded) {
				return
			}
			if s.log != nil {
				s.log.WriteLog(fmt.Sprintf("server: decode error from %s: %v", netio.EndpointOf(conn), err), logging.Warn)
			}
			c.Disconnect("malformed packet")
			return
		}
		if s.met != nil {
			s.met.PacketsReceived.WithLabelValues(pkt.Spec.Name).Inc()
		}
		if s.telemetry != nil {
			s.telemetry.Publish(telemetry.PacketTrace(c.State().String(), "serverbound", pkt.Spec.Name, len(data), 0))
		}
		s.router.Dispatch(c, pkt)
	}
}

func (s *Server) onDisconnect(conn *netio.Connection, err error) {
	s.clientsMu.Lock()
	c := s.clients[conn]
	delete(s.clients, conn)
	s.clientsMu.Unlock()

	if s.met != nil {
		s.met.ConnectionsOpen.Dec()
	}
	if c == nil {
		return
	}
	if c.ConnState() == session.Authenticated {
		s.authenticated.Add(-1)
	}
	s.chat.Leave(c)
	s.forceUnsubscribeAll(c)
}

// SubscribeColumn loads and subscribes c to the column at the given chunk
// coordinates, sending the initial chunk_data once populated (spec
// §4.5), and tracks the subscription so a later disconnect can force-
// unsubscribe from every column c was still watching.
func (s *Server) SubscribeColumn(c *session.Client, dimension int8, x, z int32) error {
	id := world.ColumnID{Dimension: dimension, X: x, Z: z}
	if err := s.world.Subscribe(id, c); err != nil {
		return err
	}
	s.subsMu.Lock()
	if s.subs[c] == nil {
		s.subs[c] = make(map[world.ColumnID]struct{})
	}
	s.subs[c][id] = struct{}{}
	s.subsMu.Unlock()
	return nil
}

// UnsubscribeColumn removes c from id's broadcast set, sending the unload
// packet unless force is true (spec §4.5).
func (s *Server) UnsubscribeColumn(c *session.Client, dimension int8, x, z int32, force bool) {
	id := world.ColumnID{Dimension: dimension, X: x, Z: z}
	s.world.Unsubscribe(id, c, force)
	s.subsMu.Lock()
	delete(s.subs[c], id)
	s.subsMu.Unlock()
}

// forceUnsubscribeAll drops every column c was still watching without
// sending unload packets, since the connection is already gone (spec
// §4.5 "force").
func (s *Server) forceUnsubscribeAll(c *session.Client) {
	s.subsMu.Lock()
	ids := s.subs[c]
	delete(s.subs, c)
	s.subsMu.Unlock()
	for id := range ids {
		s.world.Unsubscribe(id, c, true)
	}
}

// MarkAuthenticated records that c has completed login, for
// offline_freeze accounting.
func (s *Server) MarkAuthenticated(c *session.Client) {
	c.SetConnState(session.Authenticated)
	s.authenticated.Add(1)
}

// tick advances world age/time-of-day (unless offline_freeze applies)
// and broadcasts a time_update to every authenticated client, the
// supplemented world-time feature from original_source/src/time/main.cpp.
func (s *Server) tick() {
	if s.log != nil {
		defer s.log.Recover()
	}
	start := time.Now()

	if s.cfg.OfflineFreeze && s.authenticated.Load() == 0 {
		return
	}

	age := s.worldAge.Add(1)
	timeOfDay := s.timeOfDay.Add(1) % 24000

	spec, err := protocol.Lookup(protocol.Play, protocol.Clientbound, 0x04)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	for _, c := range s.clients {
		if c.ConnState() != session.Authenticated {
			continue
		}
		p := protocol.NewPacket(spec)
		p.SetUint64("age", age)
		p.SetUint64("time_of_day", timeOfDay)
		_ = c.SendPacket(p)
	}
	s.clientsMu.RUnlock()

	s.checkTickOverrun(start)
}

// checkTickOverrun tracks consecutive ticks that ran past cfg.TickLength
// and logs a stall warning once the streak reaches cfg.TickThreshold
// (spec §6 tick_threshold "consecutive overrun ticks tolerated before the
// server logs a stall warning"). A tick that finishes on budget resets
// the streak.
func (s *Server) checkTickOverrun(start time.Time) {
	if s.cfg.TickLength <= 0 || s.cfg.TickThreshold <= 0 {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= s.cfg.TickLength {
		s.tickOverruns.Store(0)
		return
	}
	streak := s.tickOverruns.Add(1)
	if streak >= int32(s.cfg.TickThreshold) && s.log != nil {
		s.log.WriteLog(fmt.Sprintf("server: tick overran budget for %d consecutive ticks (last %s, budget %s)", streak, elapsed, s.cfg.TickLength), logging.Warn)
	}
}

// legacyStatus builds the pre-1.7 server-list-ping response body from
// current server state.
func (s *Server) legacyStatus() session.LegacyStatus {
	s.clientsMu.RLock()
	online := len(s.clients)
	s.clientsMu.RUnlock()
	return session.LegacyStatus{
		ProtocolVersion: 127,
		ServerVersion:   "1.8.9",
		MOTD:            "A Minecraft Server",
		OnlinePlayers:   online,
		MaxPlayers:      s.cfg.MaxPlayers,
	}
}

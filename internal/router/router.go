// Package router implements spec §4.7: a static (state, id) -> handler
// table where assigning a new handler returns the one it displaced, so
// callers can explicitly chain to the previous handler if they wish.
// Unknown (state, id) tuples drop-and-log rather than error.
package router

import (
	"fmt"
	"sync"

	"github.com/RobertLeahy/MCPP-sub000/internal/logging"
	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
	"github.com/RobertLeahy/MCPP-sub000/internal/session"
)

// Handler processes one decoded packet for one client. Handlers run on
// the application thread pool (internal/netio.Handler's dispatch pool),
// never on the connection's I/O goroutines.
type Handler func(c *session.Client, pkt *protocol.Packet)

type routeKey struct {
	state protocol.State
	id    uint32
}

// Router is the routing table: read-mostly, guarded by a read-write lock
// (updates modify the map in place under the write lock), matching spec
// §5's shared-resource policy for the routing table and verbose-keys set.
type Router struct {
	mu    sync.RWMutex
	table map[routeKey]Handler

	log *logging.Broker
}

// New builds an empty Router. log may be nil to suppress drop-and-log
// diagnostics (tests commonly do this).
func New(log *logging.Broker) *Router {
	return &Router{table: make(map[routeKey]Handler), log: log}
}

// Assign installs h for (state, id), returning the handler it displaced
// (nil if the slot was empty). h may call the displaced handler itself
// to chain explicitly.
func (r *Router) Assign(state protocol.State, id uint32, h Handler) Handler {
	key := routeKey{state, id}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.table[key]
	r.table[key] = h
	return prev
}

// Remove clears the handler at (state, id), returning the one removed.
func (r *Router) Remove(state protocol.State, id uint32) Handler {
	key := routeKey{state, id}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.table[key]
	delete(r.table, key)
	return prev
}

// Dispatch looks up the handler for pkt's (client state, packet id) and
// invokes it. An unregistered tuple is dropped and logged, never an
// error returned to the caller — the connection stays open.
func (r *Router) Dispatch(c *session.Client, pkt *protocol.Packet) {
	key := routeKey{pkt.Spec.State, pkt.Spec.ID}
	r.mu.RLock()
	h := r.table[key]
	r.mu.RUnlock()

	if h == nil {
		if r.log != nil {
			r.log.WriteLog(fmt.Sprintf("router: dropped unhandled packet %s/0x%02x", pkt.Spec.State, pkt.Spec.ID), logging.Warn)
		}
		return
	}
	h(c, pkt)
}

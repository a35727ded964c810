// Package telemetry exposes a gRPC streaming admin service (spec §4.8's
// debug-tap surface generalized into an observability endpoint): traced
// packets, chat transcript lines, and column lifecycle transitions. Its
// shape is a direct generalization of the teacher's tapService.Watch —
// one Hub (the teacher's broker.Broker) fanning events out to every
// subscribed stream.
package telemetry

import (
	"sync"

	"github.com/RobertLeahy/MCPP-sub000/gen/mcserverpb"
)

const subscriberBufferSize = 64

// Hub is the process-wide telemetry event fan-out.
type Hub struct {
	mu   sync.Mutex
	subs map[chan *mcserverpb.WatchResponse]struct{}
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan *mcserverpb.WatchResponse]struct{})}
}

// Subscribe registers a new listener. The returned func unsubscribes and
// closes the channel; never read from it afterward.
func (h *Hub) Subscribe() (<-chan *mcserverpb.WatchResponse, func()) {
	ch := make(chan *mcserverpb.WatchResponse, subscriberBufferSize)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsub
}

// Publish fans ev out to every current subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the publisher.
func (h *Hub) Publish(ev *mcserverpb.WatchResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

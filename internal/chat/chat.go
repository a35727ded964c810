// Package chat implements spec §3/Component J: a shallow, minimally
// specified message fan-out plus a transcript sink. It broadcasts
// chat_message_cb to every Play-state session and, if a TranscriptSink
// is configured, publishes each line there too — the command
// interpreter and chat renderer themselves stay out of scope (spec §1)
// and are a collaborator's concern.
package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
)

// Sender is the narrow session surface chat needs to broadcast a
// message, mirroring world.Sender to avoid importing session.
type Sender interface {
	SendPacket(pkt *protocol.Packet) error
}

// TranscriptSink is the structured chat-log sink collaborator spec §6
// requires from the data provider. NATSSink below is one concrete
// transport; a backing-store-writing implementation is another.
type TranscriptSink interface {
	Record(line Line) error
}

// Line is one transcript entry.
type Line struct {
	Username string
	Message  string
	At       time.Time
}

// Router fans serverbound chat messages out to every registered
// recipient and, optionally, a transcript sink.
type Router struct {
	mu         sync.RWMutex
	recipients map[Sender]struct{}

	sink TranscriptSink

	onBroadcast func(username, message string)
}

// New builds a Router with no recipients and no sink.
func New() *Router {
	return &Router{recipients: make(map[Sender]struct{})}
}

// SetSink installs (or clears, with nil) the transcript sink.
func (r *Router) SetSink(sink TranscriptSink) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// SetOnBroadcast installs a hook invoked with every broadcast message,
// after delivery, for observability collaborators (e.g. the telemetry hub).
func (r *Router) SetOnBroadcast(fn func(username, message string)) {
	r.mu.Lock()
	r.onBroadcast = fn
	r.mu.Unlock()
}

// Join registers s to receive future broadcasts.
func (r *Router) Join(s Sender) {
	r.mu.Lock()
	r.recipients[s] = struct{}{}
	r.mu.Unlock()
}

// Leave removes s from the broadcast set.
func (r *Router) Leave(s Sender) {
	r.mu.Lock()
	delete(r.recipients, s)
	r.mu.Unlock()
}

// Broadcast sends username's message to every joined recipient as a
// chat_message_cb packet, and records it to the transcript sink if one
// is configured. Sink failures are returned but do not stop delivery —
// players must still see the message even if the transcript write fails.
func (r *Router) Broadcast(username, message string) error {
	pkt, err := chatMessagePacket(username, message)
	if err != nil {
		return err
	}

	r.mu.RLock()
	recipients := make([]Sender, 0, len(r.recipients))
	for s := range r.recipients {
		recipients = append(recipients, s)
	}
	sink := r.sink
	onBroadcast := r.onBroadcast
	r.mu.RUnlock()

	for _, s := range recipients {
		_ = s.SendPacket(pkt)
	}

	if onBroadcast != nil {
		onBroadcast(username, message)
	}

	if sink == nil {
		return nil
	}
	if err := sink.Record(Line{Username: username, Message: message, At: time.Now()}); err != nil {
		return fmt.Errorf("chat: record transcript: %w", err)
	}
	return nil
}

func chatMessagePacket(username, message string) (*protocol.Packet, error) {
	spec, err := protocol.Lookup(protocol.Play, protocol.Clientbound, 0x02)
	if err != nil {
		return nil, err
	}
	p := protocol.NewPacket(spec)
	p.SetString("json_message", fmt.Sprintf(`{"text":"<%s> %s"}`, username, message))
	return p, nil
}

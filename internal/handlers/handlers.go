// Package handlers wires the packet router to the rest of the daemon:
// handshake state transitions, the status ping reply, an offline-mode
// login flow, chat fan-out, and player-triggered block edits. It is the
// collaborator cmd/mcserverd composes at startup, grounded on the
// teacher's server.New(broker, explainClient) composition in
// cmd/sql-tapd/main.go.
package handlers

import (
	"crypto/md5"
	"fmt"

	"github.com/google/uuid"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
	"github.com/RobertLeahy/MCPP-sub000/internal/server"
	"github.com/RobertLeahy/MCPP-sub000/internal/session"
)

// StatusProvider supplies the JSON body of a status_response, decoupling
// handlers from any particular status-payload shape.
type StatusProvider func() string

// Register installs every handler this daemon needs onto s's router.
// status builds the status_response JSON payload on demand.
func Register(s *server.Server, status StatusProvider) {
	r := s.Router()

	r.Assign(protocol.Handshake, 0x00, func(c *session.Client, pkt *protocol.Packet) {
		next := pkt.VarInt32("next_state")
		switch next {
		case 1:
			c.SetProtocolState(protocol.Status)
		case 2:
			c.SetProtocolState(protocol.Login)
		}
	})

	r.Assign(protocol.Status, 0x00, func(c *session.Client, _ *protocol.Packet) {
		spec, err := protocol.Lookup(protocol.Status, protocol.Clientbound, 0x00)
		if err != nil {
			return
		}
		p := protocol.NewPacket(spec)
		p.SetString("json_response", status())
		_ = c.SendPacket(p)
	})

	r.Assign(protocol.Status, 0x01, func(c *session.Client, pkt *protocol.Packet) {
		spec, err := protocol.Lookup(protocol.Status, protocol.Clientbound, 0x01)
		if err != nil {
			return
		}
		p := protocol.NewPacket(spec)
		p.SetInt64("payload", pkt.Int64("payload"))
		_ = c.SendPacket(p)
	})

	r.Assign(protocol.Login, 0x00, func(c *session.Client, pkt *protocol.Packet) {
		username := pkt.String("username")
		c.SetUsername(username)

		spec, err := protocol.Lookup(protocol.Login, protocol.Clientbound, 0x02)
		if err != nil {
			c.Disconnect("server error")
			return
		}
		p := protocol.NewPacket(spec)
		p.SetString("uuid", offlineUUID(username))
		p.SetString("username", username)

		play := protocol.Play
		if _, err := c.AtomicSend(p, session.Mutation{SetState: &play}, session.SendThenMutate); err != nil {
			c.Disconnect("server error")
			return
		}
		s.MarkAuthenticated(c)
		s.Chat().Join(c)
	})

	r.Assign(protocol.Play, 0x01, func(c *session.Client, pkt *protocol.Packet) {
		_ = s.Chat().Broadcast(c.Username(), pkt.String("message"))
	})
}

// offlineUUID derives a deterministic offline-mode player UUID from a
// username, the same scheme vanilla offline servers use (version-3 UUID
// over "OfflinePlayer:<username>").
func offlineUUID(username string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("OfflinePlayer:%s", username)))
	sum[6] = sum[6]&0x0f | 0x30 // version 3
	sum[8] = sum[8]&0x3f | 0x80 // RFC 4122 variant
	return uuid.UUID(sum).String()
}

// SubscribeColumn loads and subscribes c to the column at the given chunk
// coordinates, sending the initial chunk_data once populated — the
// handler a movement/view-distance packet would call once that packet is
// added to the registry; exposed here so cmd/mcserverd and tests can
// exercise the subscribe path without a client-triggered packet existing
// yet in the registry subset. Delegates to Server.SubscribeColumn so the
// subscription is tracked and force-unsubscribed on disconnect.
func SubscribeColumn(s *server.Server, c *session.Client, dimension int8, x, z int32) error {
	return s.SubscribeColumn(c, dimension, x, z)
}

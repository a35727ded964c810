// Package session implements the per-peer protocol state machine (spec
// §4.3): framing/decryption of incoming bytes into whole packets, the
// atomic send-plus-mutate primitive, username/ping/idle bookkeeping, and
// the legacy server-list-ping fast path.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RobertLeahy/MCPP-sub000/internal/netio"
	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
)

// ConnState is the Client's coarse authentication state, distinct from the
// packet-framing protocol.State (Handshake/Status/Login/Play).
type ConnState int32

const (
	Connected ConnState = iota
	Authenticated
)

// ErrMoreNeeded means Poll has no complete packet yet; it is not an error
// condition the caller should disconnect on.
var ErrMoreNeeded = errors.New("session: more bytes needed")

// ErrDecrypt wraps a failure to decrypt incoming bytes; always fatal to
// the session (spec §4.3 failure semantics).
var ErrDecrypt = errors.New("session: decrypt failed")

// Order selects whether AtomicSend writes bytes before or after applying
// its accompanying mutation; the chosen order is the only order ever
// observed on the wire (spec §4.3).
type Order int

const (
	SendThenMutate Order = iota
	MutateThenSend
)

// Mutation is the op atomic_send applies under the same critical section
// as the send itself.
type Mutation struct {
	SetState         *protocol.State
	EnableEncryption *CipherKey
}

// CipherKey is the shared AES-128 key (and IV, identical to the key for
// the Minecraft handshake) installed once encryption is enabled.
type CipherKey struct {
	Key []byte
}

// Client is one authenticated-or-not peer riding atop a netio.Connection.
type Client struct {
	conn *netio.Connection

	// sendMu is the single critical section guarding the send queue,
	// encryption state, and protocol state together, per the design note
	// replacing the original's reentrant-lock escape hatch.
	sendMu    sync.Mutex
	state     protocol.State
	direction protocol.Direction // always Clientbound for sends, Serverbound for decode
	encSend   cipher.Stream
	encRecv   cipher.Stream

	connState atomic.Int32

	recvMu    sync.Mutex
	pending   []byte // decrypted bytes awaiting parse, partial packet retained across calls

	usernameMu sync.RWMutex
	username   string

	ping atomic.Uint32

	connectedAt time.Time
	lastTouch   atomic.Int64 // unix nano

	disconnectOnce sync.Once
	onDisconnect   func(reason string)
}

// New creates a Client wrapping conn, starting in Handshake state.
func New(conn *netio.Connection, onDisconnect func(reason string)) *Client {
	now := time.Now()
	c := &Client{
		conn:         conn,
		state:        protocol.Handshake,
		connectedAt:  now,
		onDisconnect: onDisconnect,
	}
	c.lastTouch.Store(now.UnixNano())
	return c
}

func (c *Client) Connection() *netio.Connection { return c.conn }

func (c *Client) State() protocol.State {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.state
}

// SetProtocolState transitions the client's framing state with no
// accompanying packet, for handshake's next_state (spec §4.2) which has no
// clientbound reply to fuse the mutation onto.
func (c *Client) SetProtocolState(s protocol.State) {
	c.sendMu.Lock()
	c.state = s
	c.sendMu.Unlock()
}

func (c *Client) ConnState() ConnState { return ConnState(c.connState.Load()) }
func (c *Client) SetConnState(s ConnState) { c.connState.Store(int32(s)) }

func (c *Client) Username() string {
	c.usernameMu.RLock()
	defer c.usernameMu.RUnlock()
	return c.username
}

func (c *Client) SetUsername(u string) {
	c.usernameMu.Lock()
	c.username = u
	c.usernameMu.Unlock()
}

func (c *Client) PingMS() uint32      { return c.ping.Load() }
func (c *Client) SetPingMS(ms uint32) { c.ping.Store(ms) }

// Touch resets the inactivity timer.
func (c *Client) Touch() { c.lastTouch.Store(time.Now().UnixNano()) }

// IdleMS reports milliseconds since the last Touch.
func (c *Client) IdleMS() int64 {
	last := time.Unix(0, c.lastTouch.Load())
	return time.Since(last).Milliseconds()
}

// ConnectedMS reports milliseconds since the session was created.
func (c *Client) ConnectedMS() int64 {
	return time.Since(c.connectedAt).Milliseconds()
}

// OfferBytes appends newly-received bytes to the client's pending buffer,
// decrypting them first if a recv cipher is installed.
func (c *Client) OfferBytes(b []byte) error {
	c.sendMu.Lock()
	recvCipher := c.encRecv
	c.sendMu.Unlock()

	decoded := b
	if recvCipher != nil {
		decoded = make([]byte, len(b))
		recvCipher.XORKeyStream(decoded, b)
	}

	c.recvMu.Lock()
	c.pending = append(c.pending, decoded...)
	c.recvMu.Unlock()
	return nil
}

// Poll attempts to decode exactly one whole packet from the pending
// buffer. It returns ErrMoreNeeded if the buffer holds an incomplete
// packet — callers should loop Poll after each OfferBytes until
// ErrMoreNeeded, dispatching each returned Packet exactly once.
func (c *Client) Poll() (*protocol.Packet, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	if len(c.pending) == 0 {
		return nil, ErrMoreNeeded
	}

	state := c.State()
	packet, n, err := protocol.Decode(state, protocol.Serverbound, c.pending)
	if err != nil {
		if errors.Is(err, protocol.ErrBadFormat) || errors.Is(err, protocol.ErrBadPacketID) {
			return nil, err
		}
		// Insufficient bytes: leave pending untouched (restartability).
		return nil, ErrMoreNeeded
	}
	c.pending = c.pending[n:]
	return packet, nil
}

// Send serializes pkt and enqueues it on the underlying Connection,
// encrypting under the send cipher if one is installed.
func (c *Client) Send(pkt *protocol.Packet) (*netio.SendJob, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.sendLocked(pkt)
}

func (c *Client) sendLocked(pkt *protocol.Packet) (*netio.SendJob, error) {
	raw, err := protocol.Encode(pkt)
	if err != nil {
		return nil, fmt.Errorf("session: encode %s: %w", pkt.Spec.Name, err)
	}
	if c.encSend != nil {
		out := make([]byte, len(raw))
		c.encSend.XORKeyStream(out, raw)
		raw = out
	}
	job := netio.NewSendJob(raw)
	c.conn.Send(job)
	return job, nil
}

// SendPacket sends pkt and discards the SendJob handle, satisfying
// world.Sender for column broadcast fan-out.
func (c *Client) SendPacket(pkt *protocol.Packet) error {
	_, err := c.Send(pkt)
	return err
}

// AtomicSend sends pkt and applies mutation under the same critical
// section, so no other Send can interleave between the bytes of pkt and
// the mutation taking effect. order controls whether the mutation is
// applied before or after the send.
func (c *Client) AtomicSend(pkt *protocol.Packet, mutation Mutation, order Order) (*netio.SendJob, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if order == MutateThenSend {
		c.applyMutationLocked(mutation)
		return c.sendLocked(pkt)
	}

	job, err := c.sendLocked(pkt)
	if err != nil {
		return nil, err
	}
	c.applyMutationLocked(mutation)
	return job, nil
}

func (c *Client) applyMutationLocked(m Mutation) {
	if m.SetState != nil {
		c.state = *m.SetState
	}
	if m.EnableEncryption != nil {
		block, err := aes.NewCipher(m.EnableEncryption.Key)
		if err != nil {
			// A bad key length here is a programmer error (the caller
			// derives it from a 128-bit shared secret); never a runtime
			// wire condition.
			panic(fmt.Sprintf("session: enable encryption: %v", err))
		}
		c.encSend = newCFB8(block, m.EnableEncryption.Key, false)
		recvBlock, _ := aes.NewCipher(m.EnableEncryption.Key)
		c.encRecv = newCFB8(recvBlock, m.EnableEncryption.Key, true)
	}
}

// Disconnect initiates ordered shutdown of the underlying connection.
// Idempotent; does not await pending sends draining.
func (c *Client) Disconnect(reason string) {
	c.disconnectOnce.Do(func() {
		c.conn.Shutdown(reason)
		if c.onDisconnect != nil {
			c.onDisconnect(reason)
		}
	})
}

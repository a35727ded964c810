package netio

import "errors"

// ErrPeerClosed marks a normal disconnect: the peer closed its end. No
// reason is surfaced to the peer (spec §7).
var ErrPeerClosed = errors.New("netio: peer closed")

// ErrBackpressureExceeded marks a per-connection send-queue overflow past
// the configured max_bytes soft cap (spec §4.4, §7).
var ErrBackpressureExceeded = errors.New("netio: buffer too long")

// ErrShutdown describes a connection that has been shut down. Send does
// not return it: a job sent after Shutdown resolves to Failed instead.
var ErrShutdown = errors.New("netio: connection shut down")

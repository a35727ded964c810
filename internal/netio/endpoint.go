// Package netio implements the connection layer: a non-blocking-style,
// multi-worker TCP acceptor/reader/writer with per-connection send queues,
// back-pressure, and graceful shutdown (spec §4.4). Each accepted socket
// gets a dedicated reader goroutine and writer goroutine — Go's runtime
// netpoller is the non-blocking multiplexer the original reactor relied on,
// so per-connection goroutines are the idiomatic replacement for the
// worker-plus-readiness-notifier design (see DESIGN.md).
package netio

import (
	"fmt"
	"net"
)

// Endpoint is an immutable (ip, port) pair.
type Endpoint struct {
	IP   net.IP
	Port uint16
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// EndpointOf derives an Endpoint from a net.Conn's remote address.
func EndpointOf(conn net.Conn) Endpoint {
	addr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return Endpoint{}
	}
	return Endpoint{IP: addr.IP, Port: uint16(addr.Port)}
}

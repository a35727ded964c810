// Command mcserver-status is a thin status-probe client: it dials a
// running mcserverd, speaks just enough of the handshake+status exchange
// to retrieve the status_response JSON body, and prints it. It mirrors
// the teacher's split between a root main.go (the interactive/TUI client)
// and cmd/sql-tapd (the daemon) — this client stays deliberately minimal
// since the interactive TTY front-end is out of core scope (spec §1).
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
	"github.com/RobertLeahy/MCPP-sub000/internal/varint"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("mcserver-status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "mcserver-status — query a running mcserverd's status\n\nUsage:\n  mcserver-status [flags] <host:port>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	timeout := fs.Duration("timeout", 5*time.Second, "dial and round-trip timeout")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("mcserver-status %s\n", version)
		return
	}

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	if err := probe(fs.Arg(0), *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "mcserver-status: %v\n", err)
		os.Exit(1)
	}
}

// probe dials addr, performs the handshake(next_state=Status) +
// status_request exchange, and prints the status_response JSON body.
func probe(addr string, timeout time.Duration) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	handshakeSpec, err := protocol.Lookup(protocol.Handshake, protocol.Serverbound, 0x00)
	if err != nil {
		return fmt.Errorf("lookup handshake: %w", err)
	}
	handshake := protocol.NewPacket(handshakeSpec)
	handshake.SetVarInt32("protocol_version", 47)
	handshake.SetString("server_address", host)
	port, err := parsePort(portStr)
	if err != nil {
		return err
	}
	handshake.SetUint16("server_port", port)
	handshake.SetVarInt32("next_state", 1)

	if err := writePacket(conn, handshake); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}

	statusReqSpec, err := protocol.Lookup(protocol.Status, protocol.Serverbound, 0x00)
	if err != nil {
		return fmt.Errorf("lookup status_request: %w", err)
	}
	if err := writePacket(conn, protocol.NewPacket(statusReqSpec)); err != nil {
		return fmt.Errorf("send status_request: %w", err)
	}

	resp, err := readPacket(bufio.NewReader(conn), protocol.Status, protocol.Clientbound)
	if err != nil {
		return fmt.Errorf("read status_response: %w", err)
	}

	fmt.Println(resp.String("json_response"))
	return nil
}

func parsePort(s string) (uint16, error) {
	var v uint16
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("parse port %q: %w", s, err)
	}
	return v, nil
}

func writePacket(conn net.Conn, pkt *protocol.Packet) error {
	raw, err := protocol.Encode(pkt)
	if err != nil {
		return err
	}
	_, err = conn.Write(raw)
	return err
}

// readPacket reads exactly one framed packet from r, growing its buffer
// until protocol.Decode succeeds or returns a non-recoverable error. This
// client has no concurrent writers, so unlike session.Client it can block
// on the reader directly rather than going through a recv baton.
func readPacket(r *bufio.Reader, state protocol.State, dir protocol.Direction) (*protocol.Packet, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		pkt, n, err := protocol.Decode(state, dir, buf)
		if err == nil {
			_ = n
			return pkt, nil
		}
		if !errors.Is(err, varint.ErrInsufficientBytes) {
			return nil, err
		}
		read, rerr := r.Read(chunk)
		if read > 0 {
			buf = append(buf, chunk[:read]...)
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}

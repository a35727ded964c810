package chat

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes each chat Line as JSON to a fixed subject, the
// optional structured chat-log sink transport named in spec §6. It
// mirrors cc-backend's nats.Client: a thin wrapper owning one *nats.Conn,
// Publish-only, safe for concurrent use (the underlying connection
// already is).
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to addr and returns a sink that publishes to
// subject.
func NewNATSSink(addr, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("chat: nats connect: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

// Record publishes line as JSON to the sink's subject.
func (s *NATSSink) Record(line Line) error {
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("chat: marshal transcript line: %w", err)
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("chat: publish transcript line: %w", err)
	}
	return nil
}

// Close drains and closes the underlying NATS connection.
func (s *NATSSink) Close() {
	s.conn.Close()
}

package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
)

type fakeSender struct {
	mu      sync.Mutex
	packets []*protocol.Packet
}

func (f *fakeSender) SendPacket(pkt *protocol.Packet) error {
	f.mu.Lock()
	f.packets = append(f.packets, pkt)
	f.mu.Unlock()
	return nil
}

type fakeSink struct {
	mu    sync.Mutex
	lines []Line
}

func (f *fakeSink) Record(l Line) error {
	f.mu.Lock()
	f.lines = append(f.lines, l)
	f.mu.Unlock()
	return nil
}

func TestBroadcastDeliversToAllJoinedRecipients(t *testing.T) {
	r := New()
	a, b := &fakeSender{}, &fakeSender{}
	r.Join(a)
	r.Join(b)

	require.NoError(t, r.Broadcast("Steve", "hello world"))

	require.Len(t, a.packets, 1)
	require.Len(t, b.packets, 1)
	assert.Equal(t, "chat_message_cb", a.packets[0].Spec.Name)
	assert.Contains(t, a.packets[0].String("json_message"), "hello world")
}

func TestLeaveStopsDelivery(t *testing.T) {
	r := New()
	a := &fakeSender{}
	r.Join(a)
	r.Leave(a)

	require.NoError(t, r.Broadcast("Steve", "are you there"))
	assert.Empty(t, a.packets)
}

func TestBroadcastRecordsToTranscriptSink(t *testing.T) {
	r := New()
	sink := &fakeSink{}
	r.SetSink(sink)

	require.NoError(t, r.Broadcast("Alex", "gm"))

	require.Len(t, sink.lines, 1)
	assert.Equal(t, "Alex", sink.lines[0].Username)
	assert.Equal(t, "gm", sink.lines[0].Message)
}

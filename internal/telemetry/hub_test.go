package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/RobertLeahy/MCPP-sub000/gen/mcserverpb"
)

func TestHubPublishFansOutToSubscribers(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	defer unsub()

	h.Publish(ChatMessage("Steve", "hi"))

	select {
	case ev := <-ch:
		assert.Equal(t, mcserverpb.EventChatMessage, ev.Kind)
		assert.Equal(t, "Steve", ev.ChatMessage.Username)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestPacketTraceEventShape(t *testing.T) {
	ev := PacketTrace("Play", "Clientbound", "chunk_data", 512, 3*time.Millisecond)
	assert.Equal(t, mcserverpb.EventPacketTrace, ev.Kind)
	assert.Equal(t, "chunk_data", ev.PacketTrace.PacketName)
	assert.EqualValues(t, 512, ev.PacketTrace.Bytes)
}

package netio

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJobResolvesOnce(t *testing.T) {
	job := NewSendJob([]byte("hi"))
	var calls int
	job.OnComplete(func(JobState) { calls++ })
	job.resolve(Sent)
	job.resolve(Failed) // must be a no-op, monotonic
	assert.Equal(t, Sent, job.State())
	assert.Equal(t, 1, calls)
}

func TestSendJobOnCompleteAfterResolveFiresImmediately(t *testing.T) {
	job := NewSendJob([]byte("hi"))
	job.resolve(Sent)
	fired := false
	job.OnComplete(func(JobState) { fired = true })
	assert.True(t, fired)
}

func TestConnectionSendOrderingAndByteOrdering(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := NewConnection(server, 0)
	go c.runWriter()

	j1 := NewSendJob([]byte("first-"))
	j2 := NewSendJob([]byte("second"))
	c.Send(j1)
	c.Send(j2)

	buf := make([]byte, len("first-second"))
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "first-second", string(buf))

	assert.Equal(t, Sent, j1.Wait())
	assert.Equal(t, Sent, j2.Wait())

	c.Shutdown("test done")
}

func TestConnectionSendAfterShutdownFailsImmediately(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := NewConnection(server, 0)
	go c.runWriter()
	c.Shutdown("bye")

	job := NewSendJob([]byte("too late"))
	c.Send(job)
	assert.Equal(t, Failed, job.Wait())
}

func TestConnectionBackpressureDisconnects(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := NewConnection(server, 4)
	go c.runWriter()

	job := NewSendJob([]byte("way too many bytes"))
	c.Send(job)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("connection never shut down after backpressure overflow")
	}
	reason, ok := c.DisconnectReason()
	require.True(t, ok)
	assert.Contains(t, reason, "buffer too long")
}

func TestHandlerRecvOrderingAtMostOneInFlight(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	var received []byte
	inFlight := make(chan struct{}, 1)
	done := make(chan struct{})

	h := NewHandler(4, 0, Callbacks{
		OnReceive: func(c *Connection, b []byte) {
			select {
			case inFlight <- struct{}{}:
			default:
				t.Error("recv callback re-entered while one was in flight")
			}
			received = append(received, b...)
			time.Sleep(10 * time.Millisecond)
			<-inFlight
		},
		OnDisconnect: func(c *Connection, err error) {
			close(done)
		},
	})
	h.install(serverConn)

	_, _ = clientConn.Write([]byte("abc"))
	_, _ = clientConn.Write([]byte("def"))
	clientConn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect callback never fired")
	}
	assert.Contains(t, string(received), "abc")
}

package netio

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Connection owns one OS socket and operates as a non-blocking peer from
// the caller's point of view: sends are queued and flushed by a dedicated
// writer goroutine, receives are delivered through a dedicated reader
// goroutine via recvBaton (spec §3, §4.4).
type Connection struct {
	ID       uuid.UUID
	endpoint Endpoint
	conn     net.Conn

	maxBytes int64 // 0 = unlimited

	sent     atomic.Uint64
	received atomic.Uint64

	queueMu     sync.Mutex
	queue       []*SendJob
	queuedBytes int64
	writerWake  chan struct{}

	shutdown atomic.Bool
	reason   atomic.Pointer[string]

	baton recvBaton

	closeOnce sync.Once
	doneOnce  sync.Once
	doneCh    chan struct{}

	// liveCallbacks tracks outstanding recv/disconnect callbacks so the
	// Connection is only fully "destroyed" once none remain and every
	// SendJob has resolved (spec §3 lifecycle).
	liveCallbacks atomic.Int64
}

// NewConnection wraps an accepted net.Conn. maxBytes is the per-connection
// soft send-queue cap (0 = unlimited, per config key max_bytes).
func NewConnection(conn net.Conn, maxBytes int) *Connection {
	c := &Connection{
		ID:         uuid.New(),
		endpoint:   EndpointOf(conn),
		conn:       conn,
		maxBytes:   int64(maxBytes),
		writerWake: make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
	}
	return c
}

// StartWriter launches the connection's writer goroutine standalone,
// without a Handler. Used where a Client session owns the Connection
// directly (e.g. tests, or a session built outside a Handler's accept
// loop).
func (c *Connection) StartWriter() { go c.runWriter() }

func (c *Connection) Endpoint() Endpoint { return c.endpoint }
func (c *Connection) Sent() uint64       { return c.sent.Load() }
func (c *Connection) Received() uint64   { return c.received.Load() }

func (c *Connection) Pending() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return len(c.queue)
}

func (c *Connection) IsShutdown() bool { return c.shutdown.Load() }

func (c *Connection) DisconnectReason() (string, bool) {
	p := c.reason.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Done is closed once the Connection may be destroyed: shutdown has been
// signalled, every SendJob has resolved, and no receive callback is
// running (spec §3).
func (c *Connection) Done() <-chan struct{} { return c.doneCh }

// Send enqueues job on the ordered send queue. If shutdown has already
// been signalled, or the soft backpressure cap would be exceeded, the job
// resolves to Failed immediately and the connection is killed on
// backpressure overflow.
func (c *Connection) Send(job *SendJob) {
	if c.shutdown.Load() {
		job.resolve(Failed)
		return
	}

	c.queueMu.Lock()
	if c.maxBytes > 0 && c.queuedBytes+int64(len(job.bytes)) > c.maxBytes {
		c.queueMu.Unlock()
		job.resolve(Failed)
		c.Shutdown(ErrBackpressureExceeded.Error())
		return
	}
	c.queue = append(c.queue, job)
	c.queuedBytes += int64(len(job.bytes))
	c.queueMu.Unlock()

	select {
	case c.writerWake <- struct{}{}:
	default:
	}
}

// Shutdown idempotently marks the connection shut down, failing every
// queued and future SendJob once the writer observes it, and closes the
// underlying socket to unblock the reader goroutine.
func (c *Connection) Shutdown(reason string) {
	if !c.shutdown.CompareAndSwap(false, true) {
		return
	}
	if reason != "" {
		c.reason.Store(&reason)
	}
	c.closeOnce.Do(func() { _ = c.conn.Close() })
	select {
	case c.writerWake <- struct{}{}:
	default:
	}
	c.maybeDone()
}

// runWriter drains the send queue until shutdown and no jobs remain. It is
// meant to run in its own goroutine for the lifetime of the connection.
func (c *Connection) runWriter() {
	for {
		job := c.popQueue()
		if job == nil {
			if c.shutdown.Load() {
				c.maybeDone()
				return
			}
			<-c.writerWake
			continue
		}
		c.writeJob(job)
	}
}

func (c *Connection) popQueue() *SendJob {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	job := c.queue[0]
	c.queue = c.queue[1:]
	c.queuedBytes -= int64(len(job.bytes))
	return job
}

func (c *Connection) writeJob(job *SendJob) {
	if c.shutdown.Load() {
		job.resolve(Failed)
		return
	}
	job.setSending()
	for job.progress < len(job.bytes) {
		n, err := c.conn.Write(job.bytes[job.progress:])
		if n > 0 {
			job.progress += n
			c.sent.Add(uint64(n))
		}
		if err != nil {
			if isTransient(err) {
				continue
			}
			job.resolve(Failed)
			c.Shutdown(fmt.Sprintf("write error: %v", err))
			return
		}
	}
	job.resolve(Sent)
}

func isTransient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runReader blocks reading the socket and feeds bytes through the recv
// baton, dispatching onReceive on the application pool. onReceive must
// return promptly; it does not block the reader from accepting further
// bytes into the alternate buffer (spec §4.4, §9).
func (c *Connection) runReader(p *pool, onReceive func(*Connection, []byte), onDisconnect func(*Connection, error)) {
	buf := make([]byte, 64*1024)
	var disconnectErr error
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.received.Add(uint64(n))
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.dispatchRecv(p, chunk, onReceive)
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				disconnectErr = nil
			} else if err.Error() == "EOF" {
				disconnectErr = ErrPeerClosed
			} else {
				disconnectErr = fmt.Errorf("netio: socket error: %w", err)
			}
			break
		}
		if n == 0 {
			disconnectErr = ErrPeerClosed
			break
		}
	}

	reason := ""
	if disconnectErr != nil {
		reason = disconnectErr.Error()
	}
	c.Shutdown(reason)

	c.liveCallbacks.Add(1)
	p.dispatch(func() {
		defer func() {
			c.liveCallbacks.Add(-1)
			c.maybeDone()
		}()
		onDisconnect(c, disconnectErr)
	})
}

func (c *Connection) dispatchRecv(p *pool, chunk []byte, onReceive func(*Connection, []byte)) {
	toDispatch, ok := c.baton.offer(chunk)
	if !ok {
		return
	}
	c.runRecvLoop(p, toDispatch, onReceive)
}

func (c *Connection) runRecvLoop(p *pool, first []byte, onReceive func(*Connection, []byte)) {
	c.liveCallbacks.Add(1)
	p.dispatch(func() {
		data := first
		for {
			onReceive(c, data)
			next, ok := c.baton.done()
			if !ok {
				break
			}
			data = next
		}
		c.liveCallbacks.Add(-1)
		c.maybeDone()
	})
}

func (c *Connection) maybeDone() {
	if !c.shutdown.Load() {
		return
	}
	if c.liveCallbacks.Load() > 0 {
		return
	}
	if c.Pending() > 0 {
		// Fail anything left in queue so the wait below terminates.
		for {
			job := c.popQueue()
			if job == nil {
				break
			}
			job.resolve(Failed)
		}
	}
	c.doneOnce.Do(func() { close(c.doneCh) })
}

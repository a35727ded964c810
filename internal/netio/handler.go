package netio

import (
	"fmt"
	"net"
	"sync"
)

// Callbacks bundles the application hooks a Handler dispatches on its
// bounded pool (spec §4.4).
type Callbacks struct {
	// AcceptFilter decides whether to admit a newly-accepted socket before
	// a Connection is even constructed for it. A nil filter admits all.
	AcceptFilter func(ip net.IP, port int) bool
	// OnConnect fires once a Connection has been installed and is ready
	// to send/receive.
	OnConnect func(*Connection)
	// OnReceive fires with the bytes delivered since the last call, in
	// socket order, with at most one call in flight per connection.
	OnReceive func(*Connection, []byte)
	// OnDisconnect fires once, after the socket is fully torn down.
	OnDisconnect func(*Connection, error)
}

// Handler composes one or more listening sockets with a bounded
// application worker pool (spec §4.4). Each accepted connection gets its
// own reader and writer goroutine; the pool runs every application
// callback so I/O goroutines never block on user code.
type Handler struct {
	callbacks Callbacks
	appPool   *pool
	maxBytes  int

	mu          sync.Mutex
	listeners   []net.Listener
	connections map[*Connection]struct{}
	closed      bool

	wg sync.WaitGroup
}

// NewHandler builds a Handler. numThreads sizes the application pool
// (config key num_threads, default 10); maxBytes is the per-connection
// soft send-queue cap (config key max_bytes, 0 = unlimited).
func NewHandler(numThreads, maxBytes int, callbacks Callbacks) *Handler {
	return &Handler{
		callbacks:   callbacks,
		appPool:     newPool(numThreads),
		maxBytes:    maxBytes,
		connections: make(map[*Connection]struct{}),
	}
}

// Listen binds a listener on addr and starts accepting connections from
// it. It may be called multiple times to bind several endpoints.
func (h *Handler) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("netio: listen %s: %w", addr, err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = lis.Close()
		return fmt.Errorf("netio: handler already shut down")
	}
	h.listeners = append(h.listeners, lis)
	h.mu.Unlock()

	h.wg.Add(1)
	go h.acceptLoop(lis)
	return nil
}

func (h *Handler) acceptLoop(lis net.Listener) {
	defer h.wg.Done()
	for {
		conn, err := lis.Accept()
		if err != nil {
			if h.isClosed() {
				return
			}
			// Transient accept errors (EAGAIN-equivalent under the
			// runtime's netpoller) are normal; keep accepting.
			continue
		}
		h.handleAccepted(conn)
	}
}

func (h *Handler) handleAccepted(conn net.Conn) {
	h.appPool.dispatch(func() {
		tcpAddr, _ := conn.RemoteAddr().(*net.TCPAddr)
		if h.callbacks.AcceptFilter != nil && tcpAddr != nil {
			if !h.callbacks.AcceptFilter(tcpAddr.IP, tcpAddr.Port) {
				_ = conn.Close()
				return
			}
		}
		h.install(conn)
	})
}

func (h *Handler) install(conn net.Conn) {
	c := NewConnection(conn, h.maxBytes)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.connections[c] = struct{}{}
	h.mu.Unlock()

	go c.runWriter()
	go c.runReader(h.appPool, h.callbacks.OnReceive, h.wrapDisconnect(c))

	if h.callbacks.OnConnect != nil {
		h.callbacks.OnConnect(c)
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		<-c.Done()
		h.mu.Lock()
		delete(h.connections, c)
		h.mu.Unlock()
	}()
}

func (h *Handler) wrapDisconnect(c *Connection) func(*Connection, error) {
	return func(conn *Connection, err error) {
		if h.callbacks.OnDisconnect != nil {
			h.callbacks.OnDisconnect(conn, err)
		}
	}
}

func (h *Handler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Connections returns a snapshot of currently-live connections.
func (h *Handler) Connections() []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Connection, 0, len(h.connections))
	for c := range h.connections {
		out = append(out, c)
	}
	return out
}

// Shutdown closes every listener and signals every live connection to
// shut down. It returns once all accept loops have stopped and every
// connection has reached Done (its disconnect callback has run and its
// SendJobs are resolved); queued sends are failed, not drained.
func (h *Handler) Shutdown(reason string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	listeners := h.listeners
	conns := make([]*Connection, 0, len(h.connections))
	for c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, lis := range listeners {
		_ = lis.Close()
	}
	for _, c := range conns {
		c.Shutdown(reason)
	}
	h.wg.Wait()
}

// Drain blocks until every dispatched application callback has returned.
func (h *Handler) Drain() { h.appPool.wait() }

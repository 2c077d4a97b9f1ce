package reactor

import (
	"go.uber.org/atomic"

	"github.com/nullctx/reactor/internal/bytebuffer"
)

type connStatus int32

const (
	statusOpen connStatus = iota
	statusClosed
)

// Connection is the per-socket state described in spec §3: address, fd,
// read/write buffers, status, and an atomic reference count that lets
// in-flight Messages outlive a closed socket.
//
// Every field here except status and refCount is touched only by the
// connection's owning I/O reactor goroutine (spec §5 "Thread affinity of
// state").
type Connection struct {
	fd         int
	remoteAddr string
	remotePort int

	rbuf *bytebuffer.Buffer
	wbuf *bytebuffer.Buffer

	handles *HandleSet
	srv     *Server
	ioR     *ioReactor // owning reactor after steering; nil until adopted

	writeArmed bool

	status   atomic.Int32
	refCount atomic.Int32
}

func newConnection(srv *Server, fd int, remoteAddr string, remotePort int, handles *HandleSet) *Connection {
	c := &Connection{
		fd:         fd,
		remoteAddr: remoteAddr,
		remotePort: remotePort,
		rbuf:       bytebuffer.Get(),
		wbuf:       bytebuffer.Get(),
		handles:    handles,
		srv:        srv,
	}
	c.refCount.Store(1)
	c.status.Store(int32(statusOpen))
	return c
}

// Fd returns the connection's OS file descriptor.
func (c *Connection) Fd() int { return c.fd }

// RemoteAddr returns the peer's IP address.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// RemotePort returns the peer's port.
func (c *Connection) RemotePort() int { return c.remotePort }

func (c *Connection) isOpen() bool {
	return connStatus(c.status.Load()) == statusOpen
}

// IsOpen reports whether the connection is still open. Safe to call from
// any goroutine (e.g. from a worker processing a Message).
func (c *Connection) IsOpen() bool { return c.isOpen() }

func (c *Connection) retain() { c.refCount.Inc() }

// releaseRef drops one reference and returns the count remaining.
func (c *Connection) releaseRef() int32 { return c.refCount.Dec() }

// finalizeIfClosed completes teardown once the reference count has
// dropped to zero on a closed connection (spec §4.5: "if destroying the
// message drops the connection's ref-count to zero, destroy the
// Connection too").
func (c *Connection) finalizeIfClosed() {
	if connStatus(c.status.Load()) != statusClosed {
		return
	}
	if c.ioR != nil {
		c.ioR.finalizeClose(c)
	}
}

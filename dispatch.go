package reactor

import (
	"io"

	"github.com/nullctx/reactor/internal/bytebuffer"
	"github.com/nullctx/reactor/internal/logging"
	"github.com/nullctx/reactor/internal/socket"
)

// onReadable implements the per-connection read path (spec §4.3). Reads
// repeat while each one fills the whole reserved tail, and stop at a short
// read, EAGAIN, EOF or an error. After every successful read,
// dispatchDecoded decodes packets until Decode asks for more bytes (the
// recommended loop-until-AGAIN variant of spec §9 Open Question (a)).
func (r *ioReactor) onReadable(c *Connection) {
	if !c.isOpen() {
		return
	}
	for {
		tail := c.rbuf.Tail(bytebuffer.DefaultReserve)
		n, err := socket.Read(c.fd, tail)
		switch {
		case n > 0:
			c.rbuf.AdvanceWrite(n)
			r.dispatchDecoded(c)
			if !c.isOpen() {
				return
			}
			if n < len(tail) {
				return
			}
		case n == 0:
			r.closeConnection(c, io.EOF)
			return
		default:
			if socket.IsAgain(err) {
				return
			}
			r.closeConnection(c, err)
			return
		}
	}
}

// dispatchDecoded runs HandleSet.Decode until it returns ResultAgain,
// dispatching each ResultOK packet to the worker pool (if configured) or
// running Process inline (spec §4.3).
func (r *ioReactor) dispatchDecoded(c *Connection) {
	h := c.handles
	if h.Decode == nil || h.Process == nil {
		c.rbuf.Reset()
		return
	}
	for {
		req, result := h.Decode(c.rbuf)
		switch result {
		case ResultOK:
			msg := newMessage(c, req)
			if r.srv.workers != nil {
				if err := r.srv.workers.Submit(func() { r.srv.runWorkerTask(h, msg) }); err != nil {
					logging.Errorf("reactor %d: worker submission dropped for fd=%d: %v", r.idx, c.fd, err)
					msg.destroy()
				}
			} else {
				h.Process(msg)
				r.writeResponse(c, msg)
				msg.destroy()
			}
		case ResultAgain:
			return
		case ResultErr:
			r.closeConnection(c, ErrDecodeFailed)
			return
		default:
			return
		}
		if !c.isOpen() {
			return
		}
	}
}

// writeResponse is the first write-path entry point (spec §4.4): encode
// msg.Response into the connection's write buffer, then attempt to flush.
func (r *ioReactor) writeResponse(c *Connection, msg *Message) {
	if msg.Response != nil && c.handles.Encode != nil {
		if err := c.handles.Encode(c.wbuf, msg.Response); err != nil {
			logging.Errorf("reactor %d: encode failed fd=%d: %v", r.idx, c.fd, err)
			r.closeConnection(c, err)
			return
		}
	}
	r.flush(c)
}

// onWritable is the second write-path entry point: the write-event fired
// because the socket became writable.
func (r *ioReactor) onWritable(c *Connection) {
	r.flush(c)
}

// flush attempts one non-blocking write of every currently readable byte
// in c's write buffer, arming or disarming the write-event as needed (spec
// §4.4). The write-cursor only advances on n > 0, guarding against the
// framework's documented n == -1 defect (spec §7, §9 Open Question (b)).
func (r *ioReactor) flush(c *Connection) {
	if !c.isOpen() {
		return
	}
	buf := c.wbuf.Peek()
	if len(buf) == 0 {
		r.disarmWrite(c)
		return
	}

	n, err := socket.Write(c.fd, buf)
	if n > 0 {
		c.wbuf.Discard(n)
	}
	if n == 0 || (n < 0 && !socket.IsAgain(err)) {
		r.closeConnection(c, err)
		return
	}

	if c.wbuf.Len() > 0 {
		r.armWrite(c)
	} else {
		r.disarmWrite(c)
	}
}

func (r *ioReactor) armWrite(c *Connection) {
	if c.writeArmed {
		return
	}
	if err := r.poller.EnableWrite(c.fd); err != nil {
		logging.Errorf("reactor %d: arm write fd=%d failed: %v", r.idx, c.fd, err)
		return
	}
	c.writeArmed = true
}

func (r *ioReactor) disarmWrite(c *Connection) {
	if !c.writeArmed {
		return
	}
	_ = r.poller.DisableWrite(c.fd)
	c.writeArmed = false
}

// closeConnection implements the connection close protocol (spec §4.6).
// Triggered by read EOF, a fatal read/write error, a decode error, or
// server shutdown; always runs on the connection's owning reactor.
func (r *ioReactor) closeConnection(c *Connection, err error) {
	if connStatus(c.status.Load()) != statusOpen {
		return
	}
	c.status.Store(int32(statusClosed))
	if c.handles.OnDisconnect != nil {
		c.handles.OnDisconnect(c, err)
	}
	_ = r.poller.Delete(c.fd)
	c.writeArmed = false

	if c.releaseRef() > 0 {
		// Messages still in flight (worker pool or return queue); the
		// last Message.destroy finalizes teardown.
		return
	}
	r.finalizeClose(c)
}

// finalizeClose removes c from the fd index, closes its fd, and returns
// its buffers to the pool. Only valid once status is CLOSED and the
// reference count has reached zero.
func (r *ioReactor) finalizeClose(c *Connection) {
	r.srv.fdIndex.clear(c.fd)
	r.srv.connCount.Dec()
	if err := socket.Close(c.fd); err != nil {
		logging.Debugf("reactor %d: close fd=%d: %v", r.idx, c.fd, err)
	}
	bytebuffer.Put(c.rbuf)
	bytebuffer.Put(c.wbuf)
	c.rbuf, c.wbuf = nil, nil
}

package reactor

import (
	"runtime"

	"github.com/nullctx/reactor/internal/affinity"
	"github.com/nullctx/reactor/internal/logging"
	"github.com/nullctx/reactor/internal/netpoll"
	"github.com/nullctx/reactor/internal/queue"
	"github.com/nullctx/reactor/internal/socket"
)

// ioReactor is one event-loop thread: an index, a poller, an
// inbound-connection queue/async, and a return-message queue/async (spec
// §3 "IoReactor"). Index 0 is always the leader.
type ioReactor struct {
	idx int
	srv *Server

	poller *netpoll.Poller

	connQueue   *queue.Queue
	returnQueue *queue.Queue

	connAsync   *netpoll.Async
	returnAsync *netpoll.Async
}

func newIoReactor(idx int, srv *Server) (*ioReactor, error) {
	p, err := netpoll.OpenPoller()
	if err != nil {
		return nil, err
	}
	r := &ioReactor{
		idx:         idx,
		srv:         srv,
		poller:      p,
		connQueue:   queue.New(),
		returnQueue: queue.New(),
	}
	r.connAsync = p.NewAsync(r.drainConnQueue)
	r.returnAsync = p.NewAsync(r.drainReturnQueue)
	return r, nil
}

func (r *ioReactor) isLeader() bool { return r.idx == 0 }

// run is the reactor entry point (spec §4.7): start both async wakeups
// (implicit — they ride the poller's own wakeup primitive, armed at
// OpenPoller time), the leader additionally starts every listener's
// accept-event, then the loop runs until Stop closes the poller.
func (r *ioReactor) run(affinityEnable bool) {
	if affinityEnable {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := affinity.Pin(r.idx % runtime.NumCPU()); err != nil {
			logging.Debugf("reactor %d: cpu pin skipped: %v", r.idx, err)
		}
	}

	if r.isLeader() {
		for l := r.srv.listeners; l != nil; l = l.next {
			if err := r.poller.AddRead(l.fd); err != nil {
				logging.Errorf("reactor %d: arm listener %s:%d failed: %v", r.idx, l.addr, l.port, err)
			}
		}
	}

	if err := r.poller.Polling(r.handleEvent); err != nil {
		logging.Errorf("reactor %d: polling stopped: %v", r.idx, err)
	}

	if r.isLeader() {
		for l := r.srv.listeners; l != nil; l = l.next {
			_ = r.poller.Delete(l.fd)
		}
	}
}

func (r *ioReactor) handleEvent(fd int, filter netpoll.EventFilter) error {
	if r.isLeader() {
		if lsn := r.srv.listenerByFd(fd); lsn != nil {
			r.acceptOn(lsn)
			return nil
		}
	}
	c := r.srv.fdIndex.get(fd)
	if c == nil {
		return nil
	}
	switch filter {
	case netpoll.EVFilterRead:
		r.onReadable(c)
	case netpoll.EVFilterWrite:
		r.onWritable(c)
	case netpoll.EVFilterSock:
		r.closeConnection(c, errConnReset)
	}
	return nil
}

// acceptOn drains every pending connection on lsn, applying the steering
// policy of spec §4.2.
func (r *ioReactor) acceptOn(lsn *listener) {
	for {
		fd, addr, port, err := socket.Accept(lsn.fd)
		if err != nil {
			if !socket.IsAgain(err) {
				logging.Errorf("reactor %d: accept on %s:%d failed: %v", r.idx, lsn.addr, lsn.port, err)
			}
			return
		}
		if err := socket.SetNonblock(fd); err != nil {
			logging.Errorf("reactor %d: set non-block fd=%d failed: %v", r.idx, fd, err)
			_ = socket.Close(fd)
			continue
		}
		if r.srv.Config.TCPNoDelay {
			if err := socket.SetNoDelay(fd, true); err != nil {
				logging.Debugf("reactor %d: set TCP_NODELAY fd=%d failed: %v", r.idx, fd, err)
			}
		}

		handles := lsn.handles
		c := newConnection(r.srv, fd, addr, port, &handles)
		if handles.OnConnect != nil {
			handles.OnConnect(c)
		}
		r.srv.fdIndex.set(fd, c)
		r.srv.connCount.Inc()

		numIO := len(r.srv.reactors)
		if numIO == 1 {
			c.ioR = r
			if err := r.poller.AddRead(fd); err != nil {
				logging.Errorf("reactor %d: arm read fd=%d failed: %v", r.idx, fd, err)
				r.closeConnection(c, err)
			}
			continue
		}

		idx := (fd % (numIO - 1)) + 1
		target := r.srv.reactors[idx]
		target.connQueue.Push(c)
		if err := target.connAsync.Signal(); err != nil {
			logging.Errorf("reactor %d: signal follower %d for fd=%d failed: %v", r.idx, idx, fd, err)
		}
	}
}

// drainConnQueue is the inbound-connection async callback: it adopts every
// queued Connection onto this reactor's poller (spec §4.2).
func (r *ioReactor) drainConnQueue() {
	for _, it := range r.connQueue.PopAll() {
		c, ok := it.(*Connection)
		if !ok {
			continue
		}
		c.ioR = r
		if err := r.poller.AddRead(c.fd); err != nil {
			logging.Errorf("reactor %d: adopt fd=%d failed: %v", r.idx, c.fd, err)
			r.closeConnection(c, err)
			continue
		}
		logging.Infof("reactor %d adopted connection fd=%d from %s:%d", r.idx, c.fd, c.remoteAddr, c.remotePort)
	}
}

// drainReturnQueue is the return-message async callback (spec §4.5): for
// each finished Message, write its response if the connection is still
// open, or just tear the message down (and possibly the connection) if
// not.
func (r *ioReactor) drainReturnQueue() {
	for _, it := range r.returnQueue.PopAll() {
		m, ok := it.(*Message)
		if !ok {
			continue
		}
		c := m.conn
		if c.isOpen() {
			r.writeResponse(c, m)
			m.destroy()
		} else {
			m.destroy()
		}
	}
}

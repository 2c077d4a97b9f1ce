package reactor

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/nullctx/reactor/internal/logging"
	"github.com/nullctx/reactor/internal/socket"
	"github.com/nullctx/reactor/workerpool"
)

// Server owns configuration, the reactor array, the worker pool, the
// listener list, the fd index, and overall lifecycle state (spec §3
// "Server", §4.1 lifecycle).
type Server struct {
	Config Config

	reactors  []*ioReactor
	workers   *workerpool.Pool
	listeners *listener
	fdIndex   *connIndex

	connCount atomic.Int32
	started   atomic.Bool

	wg sync.WaitGroup
}

// NewServer allocates reactors and, if configured, the worker pool. It
// starts nothing (spec §4.1 Init).
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.LogPath != "" {
		logging.SetLogFile(cfg.LogPath, 100, 3, 28)
	}

	srv := &Server{
		Config:  cfg,
		fdIndex: newConnIndex(initialFdCapacity),
	}

	srv.reactors = make([]*ioReactor, cfg.IOThreadCount)
	for i := range srv.reactors {
		r, err := newIoReactor(i, srv)
		if err != nil {
			return nil, err
		}
		srv.reactors[i] = r
	}

	if cfg.WorkerThreadCount > 0 {
		wp, err := workerpool.New(cfg.WorkerThreadCount)
		if err != nil {
			return nil, err
		}
		srv.workers = wp
	}

	return srv, nil
}

// AddListener opens a non-blocking listening socket and adopts it onto the
// leader reactor (spec §4.1 add_listen, §4.2). Must be called before
// Start.
func (s *Server) AddListener(addr string, port int, handles HandleSet) error {
	if s.started.Load() {
		return ErrListenAfterStart
	}
	fd, boundPort, err := socket.ListenTCP(addr, port, listenBacklog)
	if err != nil {
		return err
	}
	s.listeners = &listener{
		addr:    addr,
		port:    boundPort,
		fd:      fd,
		handles: handles,
		next:    s.listeners,
	}
	return nil
}

func (s *Server) listenerByFd(fd int) *listener {
	for l := s.listeners; l != nil; l = l.next {
		if l.fd == fd {
			return l
		}
	}
	return nil
}

// Start spawns one goroutine per reactor (the leader additionally owns
// every listener's accept event). Idempotent guard: returns
// ErrAlreadyStarted if already running.
func (s *Server) Start() error {
	if !s.started.CAS(false, true) {
		return ErrAlreadyStarted
	}
	for _, r := range s.reactors {
		r := r
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			r.run(s.Config.AffinityEnable)
		}()
	}
	return nil
}

// Run blocks until every reactor goroutine has returned (spec §4.1 run).
func (s *Server) Run() error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	s.wg.Wait()
	return nil
}

// Stop clears the started flag, stops every listener, closes every known
// connection on its owning reactor, breaks each reactor loop, and stops
// the worker pool (spec §4.1 stop).
func (s *Server) Stop() error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	s.started.Store(false)

	var errs error

	for l := s.listeners; l != nil; l = l.next {
		if err := socket.Close(l.fd); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	s.fdIndex.forEach(func(c *Connection) {
		ir := c.ioR
		if ir == nil {
			ir = s.reactors[0]
		}
		done := make(chan struct{})
		err := ir.poller.Trigger(func() error {
			ir.closeConnection(c, ErrServerShutdown)
			close(done)
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			return
		}
		<-done
	})

	for _, r := range s.reactors {
		if err := r.poller.Close(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	s.wg.Wait()

	for _, r := range s.reactors {
		r.connQueue.Destroy(func(it interface{}) {
			if c, ok := it.(*Connection); ok {
				logging.Errorf("dropping unsteered connection fd=%d at shutdown", c.fd)
			}
		})
		r.returnQueue.Destroy(func(it interface{}) {
			if m, ok := it.(*Message); ok {
				m.destroy()
			}
		})
	}

	if s.workers != nil {
		s.workers.Release()
	}

	return errs
}

// Destroy stops the server if it is running, then tears down every
// connection still in the fd index and drops the listener list. On a
// server that was never started, Destroy does not close the listening
// sockets or the reactor pollers and does not release the worker pool.
func (s *Server) Destroy() error {
	var errs error
	if s.started.Load() {
		if err := s.Stop(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	s.fdIndex.forEach(func(c *Connection) {
		logging.Errorf("connection fd=%d still present at destroy, tearing down", c.fd)
		if c.ioR != nil {
			c.ioR.finalizeClose(c)
		}
	})
	s.listeners = nil
	return errs
}

// NumConnections returns the number of accepted connections not yet torn
// down. A closed connection still referenced by an in-flight Message is
// counted until its last Message is destroyed.
func (s *Server) NumConnections() int32 {
	return s.connCount.Load()
}

// SendMessage is the server-initiated push API (spec §4.5 send_message):
// it builds a Message carrying resp as the response, enqueues it on conn's
// owning reactor, and wakes that reactor's return-message async.
func (s *Server) SendMessage(conn *Connection, resp interface{}) error {
	if conn == nil {
		return ErrNilConnection
	}
	if !conn.isOpen() {
		return ErrConnectionClosed
	}
	ir := conn.ioR
	if ir == nil {
		return ErrConnectionClosed
	}
	msg := newMessage(conn, nil)
	msg.Response = resp
	ir.returnQueue.Push(msg)
	return ir.returnAsync.Signal()
}

// runWorkerTask executes a decoded request off the I/O reactor, then hands
// the finished Message back to its connection's owning reactor via the
// return-message queue + async wakeup (spec §4.5).
func (s *Server) runWorkerTask(h *HandleSet, msg *Message) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Errorf("worker panic processing fd=%d: %v", msg.conn.fd, rec)
		}
	}()

	h.Process(msg)

	conn := msg.conn
	ir := conn.ioR
	if ir == nil {
		msg.destroy()
		return
	}
	ir.returnQueue.Push(msg)
	if err := ir.returnAsync.Signal(); err != nil {
		logging.Errorf("failed to signal reactor %d for fd=%d return: %v", ir.idx, conn.fd, err)
	}
}

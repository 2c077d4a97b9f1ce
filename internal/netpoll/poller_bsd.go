//go:build freebsd || dragonfly || darwin || netbsd || openbsd

package netpoll

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/nullctx/reactor/internal/queue"
)

// pollTimeoutMs mirrors the linux poller's periodic wakeup (spec §4.7).
const pollTimeoutMs = 10

const wakeIdent = 1

// Poller is a kqueue-backed event loop. Its Trigger wakeup rides an
// EVFILT_USER event rather than a pipe/eventfd, matching how the teacher's
// loop_bsd.go already dispatches on netpoll.EVFilterRead/Write/Sock.
type Poller struct {
	kq     int
	jobs   *queue.Queue
	closed atomic.Bool
}

// OpenPoller creates a new kqueue instance with its EVFILT_USER wakeup
// registered.
func OpenPoller() (*Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	p := &Poller{kq: kq, jobs: queue.New()}
	ev := unix.Kevent_t{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		_ = unix.Close(kq)
		return nil, err
	}
	return p, nil
}

// AddRead registers fd for read readiness.
func (p *Poller) AddRead(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// EnableWrite arms write readiness on fd.
func (p *Poller) EnableWrite(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// DisableWrite disarms write readiness on fd.
func (p *Poller) DisableWrite(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

// Delete unregisters both filters for fd. Safe to call repeatedly.
func (p *Poller) Delete(fd int) error {
	evs := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	_, err := unix.Kevent(p.kq, evs, nil, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

// Trigger enqueues job and fires the EVFILT_USER wakeup event.
func (p *Poller) Trigger(job func() error) error {
	p.jobs.Push(job)
	ev := unix.Kevent_t{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *Poller) drainWake() {
	for _, it := range p.jobs.PopAll() {
		if fn, ok := it.(func() error); ok {
			_ = fn()
		}
	}
}

// Polling blocks, dispatching ready fds to handler, until Close is called.
func (p *Poller) Polling(handler EventHandler) error {
	events := make([]unix.Kevent_t, 128)
	timeout := unix.Timespec{Nsec: int64(pollTimeoutMs) * 1e6}
	for !p.closed.Load() {
		n, err := unix.Kevent(p.kq, nil, events, &timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			if ev.Filter == unix.EVFILT_USER && ev.Ident == wakeIdent {
				p.drainWake()
				continue
			}
			fd := int(ev.Ident)
			filter := EVFilterRead
			switch {
			case ev.Flags&unix.EV_EOF != 0:
				filter = EVFilterSock
			case ev.Filter == unix.EVFILT_WRITE:
				filter = EVFilterWrite
			}
			if err := handler(fd, filter); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close stops Polling and releases the kqueue descriptor.
func (p *Poller) Close() error {
	p.closed.Store(true)
	ev := unix.Kevent_t{Ident: wakeIdent, Filter: unix.EVFILT_USER, Fflags: unix.NOTE_TRIGGER}
	_, _ = unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return unix.Close(p.kq)
}

//go:build linux

package netpoll

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/nullctx/reactor/internal/queue"
)

// pollTimeoutMs is the periodic wakeup interval (spec §4.7: "a periodic
// wakeup (e.g., 100 Hz) so the started flag clears promptly during
// shutdown").
const pollTimeoutMs = 10

// Poller is an epoll-backed event loop plus a job queue drained through a
// dedicated eventfd, giving Trigger its any-thread wakeup semantics.
type Poller struct {
	epfd   int
	wakeFd int
	jobs   *queue.Queue
	closed atomic.Bool
}

// OpenPoller creates a new epoll instance with its wakeup eventfd armed.
func OpenPoller() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}
	p := &Poller{epfd: epfd, wakeFd: wakeFd, jobs: queue.New()}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		_ = unix.Close(wakeFd)
		_ = unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

// AddRead registers fd for read readiness.
func (p *Poller) AddRead(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// EnableWrite arms write readiness on fd in addition to read readiness.
func (p *Poller) EnableWrite(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLOUT, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// DisableWrite disarms write readiness, leaving read readiness armed.
func (p *Poller) DisableWrite(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Delete unregisters fd. Safe to call on an already-closed fd.
func (p *Poller) Delete(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.EBADF || err == unix.ENOENT {
		return nil
	}
	return err
}

// Trigger enqueues job and wakes the poller thread to run it.
func (p *Poller) Trigger(job func() error) error {
	p.jobs.Push(job)
	var x [8]byte
	x[0] = 1
	_, err := unix.Write(p.wakeFd, x[:])
	return err
}

func (p *Poller) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakeFd, buf[:])
	for _, it := range p.jobs.PopAll() {
		if fn, ok := it.(func() error); ok {
			_ = fn()
		}
	}
}

// Polling blocks, dispatching ready fds to handler, until Close is called.
func (p *Poller) Polling(handler EventHandler) error {
	events := make([]unix.EpollEvent, 128)
	for !p.closed.Load() {
		n, err := unix.EpollWait(p.epfd, events, pollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == p.wakeFd {
				p.drainWake()
				continue
			}
			// epoll folds readable and writable readiness for the same fd
			// into a single event, unlike kqueue's separate read/write
			// Kevent_t entries — dispatch read and write independently
			// instead of picking one of them, or a read ready at the same
			// time a pending write drains would be silently dropped for a
			// cycle. An error/hangup bit still takes precedence: it is
			// dispatched as EVFilterSock and read/write are skipped.
			if events[i].Events&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
				if err := handler(fd, EVFilterSock); err != nil {
					return err
				}
				continue
			}
			if events[i].Events&unix.EPOLLIN != 0 {
				if err := handler(fd, EVFilterRead); err != nil {
					return err
				}
			}
			if events[i].Events&unix.EPOLLOUT != 0 {
				if err := handler(fd, EVFilterWrite); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Close stops Polling and releases the epoll/eventfd descriptors.
func (p *Poller) Close() error {
	p.closed.Store(true)
	_, _ = unix.Write(p.wakeFd, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	err1 := unix.Close(p.wakeFd)
	err2 := unix.Close(p.epfd)
	if err1 != nil {
		return err1
	}
	return err2
}

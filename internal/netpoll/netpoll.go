// Package netpoll is the reactor core's event-loop primitive: per-fd
// readable/writable readiness plus an async wakeup signalable from any
// goroutine. Grounded on the teacher's own internal/netpoll usage
// (server_unix.go calls netpoll.OpenPoller, Poller.AddRead, Poller.Trigger)
// and on the filter vocabulary already present in the teacher's
// loop_bsd.go (netpoll.EVFilterSock/Read/Write).
package netpoll

// EventFilter classifies a readiness notification.
type EventFilter int16

const (
	// EVFilterRead indicates the fd is readable.
	EVFilterRead EventFilter = iota + 1
	// EVFilterWrite indicates the fd is writable.
	EVFilterWrite
	// EVFilterSock indicates the fd hung up or errored.
	EVFilterSock
)

// EventHandler is invoked during Polling once per readiness filter reported
// for a fd; a fd that is readable and writable in the same cycle may be
// dispatched once with EVFilterRead and once with EVFilterWrite.
type EventHandler func(fd int, filter EventFilter) error

// Async is a one-shot callback signalable from any goroutine, causing
// callback to run on the owning Poller's thread. Two Async values created
// against the same Poller share its single OS wakeup primitive but carry
// distinct callbacks, matching the reactor's "add-conn async" and
// "return-message async" per I/O reactor.
type Async struct {
	poller   *Poller
	callback func()
}

// Signal schedules a's callback to run on the poller thread and wakes it.
func (a *Async) Signal() error {
	return a.poller.Trigger(func() error {
		a.callback()
		return nil
	})
}

// NewAsync binds callback to a fresh Async on p.
func (p *Poller) NewAsync(callback func()) *Async {
	return &Async{poller: p, callback: callback}
}

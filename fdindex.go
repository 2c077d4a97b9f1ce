package reactor

import (
	"sync"
	"sync/atomic"
)

// connIndex is the dense fd -> *Connection index (spec §3 Server
// "fd → Connection index that grows on demand"). The leader reactor
// inserts on accept; the connection's owning reactor (or Destroy) clears
// the slot during final teardown; any reactor or the Stop/Destroy path may
// read it. Writes are guarded by a mutex to serialize those concurrent
// writers against each other; publishing a
// grown slice through atomic.Value gives readers the memory barrier the
// spec calls for ("readers... see a consistent slot... via a memory
// barrier after the write").
type connIndex struct {
	mu    sync.Mutex
	slots atomic.Value // []*Connection
}

func newConnIndex(initialCap int) *connIndex {
	ci := &connIndex{}
	ci.slots.Store(make([]*Connection, initialCap))
	return ci
}

func (ci *connIndex) get(fd int) *Connection {
	if fd < 0 {
		return nil
	}
	s, _ := ci.slots.Load().([]*Connection)
	if fd >= len(s) {
		return nil
	}
	return s[fd]
}

func (ci *connIndex) set(fd int, c *Connection) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	s, _ := ci.slots.Load().([]*Connection)
	if fd >= len(s) {
		newCap := len(s)
		if newCap == 0 {
			newCap = 64
		}
		for fd >= newCap {
			newCap *= 2
		}
		grown := make([]*Connection, newCap)
		copy(grown, s)
		s = grown
	}
	s[fd] = c
	ci.slots.Store(s)
}

func (ci *connIndex) clear(fd int) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	s, _ := ci.slots.Load().([]*Connection)
	if fd < 0 || fd >= len(s) {
		return
	}
	cp := make([]*Connection, len(s))
	copy(cp, s)
	cp[fd] = nil
	ci.slots.Store(cp)
}

// forEach visits every non-nil connection currently indexed. Used by
// Server.Stop to close out every still-open connection.
func (ci *connIndex) forEach(fn func(c *Connection)) {
	s, _ := ci.slots.Load().([]*Connection)
	for _, c := range s {
		if c != nil {
			fn(c)
		}
	}
}

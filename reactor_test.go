package reactor

import (
	"net"
	"sync"
	"testing"
	"time"
)

// TestFanOutSteering exercises spec §8 end-to-end scenario 2 and testable
// property #4: for N>1 reactors, an accepted fd is steered to reactor
// index (fd mod (N-1)) + 1 — the leader never adopts connections itself
// once there is at least one follower to steer them to.
func TestFanOutSteering(t *testing.T) {
	const numReactors = 3
	const numClients = 100

	var mu sync.Mutex
	byFd := make(map[int]*Connection)

	handles := lengthPrefixedHandles(
		func(c *Connection) {
			mu.Lock()
			byFd[c.Fd()] = c
			mu.Unlock()
		},
		nil,
	)

	_, addr := startTestServer(t, Config{IOThreadCount: numReactors, WorkerThreadCount: 0}, handles)

	conns := make([]net.Conn, 0, numClients)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	for i := 0; i < numClients; i++ {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conns = append(conns, conn)

		// Round-trip a frame so the read path actually runs on the
		// steered reactor before we inspect which one adopted it —
		// OnConnect alone fires before steering completes.
		writeFrame(t, conn, []byte("x"))
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		readFrame(t, conn)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(byFd) != numClients {
		t.Fatalf("OnConnect recorded %d connections, want %d", len(byFd), numClients)
	}

	for fd, c := range byFd {
		if c.ioR == nil {
			t.Fatalf("fd=%d: never steered to an owning reactor", fd)
		}
		want := (fd % (numReactors - 1)) + 1
		if c.ioR.idx != want {
			t.Fatalf("fd=%d steered to reactor %d, want %d (fd mod (N-1)) + 1", fd, c.ioR.idx, want)
		}
		if c.ioR.idx == 0 {
			t.Fatalf("fd=%d steered to the leader reactor; only followers should adopt connections when N>1", fd)
		}
	}
}

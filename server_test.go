package reactor

import (
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nullctx/reactor/internal/bytebuffer"
)

const testFrameHeader = 4

func lengthPrefixedHandles(onConnect func(*Connection), onDisconnect func(*Connection, error)) HandleSet {
	return HandleSet{
		Decode: func(rbuf *bytebuffer.Buffer) (interface{}, Result) {
			buf := rbuf.Peek()
			if len(buf) < testFrameHeader {
				return nil, ResultAgain
			}
			n := binary.BigEndian.Uint32(buf[:testFrameHeader])
			total := testFrameHeader + int(n)
			if len(buf) < total {
				return nil, ResultAgain
			}
			payload := append([]byte(nil), buf[testFrameHeader:total]...)
			rbuf.Discard(total)
			return payload, ResultOK
		},
		Encode: func(wbuf *bytebuffer.Buffer, resp interface{}) error {
			payload := resp.([]byte)
			var hdr [testFrameHeader]byte
			binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
			if _, err := wbuf.Write(hdr[:]); err != nil {
				return err
			}
			_, err := wbuf.Write(payload)
			return err
		},
		Process: func(msg *Message) {
			msg.Response = msg.Request
		},
		OnConnect:    onConnect,
		OnDisconnect: onDisconnect,
	}
}

func startTestServer(t *testing.T, cfg Config, handles HandleSet) (*Server, string) {
	t.Helper()
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.AddListener("127.0.0.1", 0, handles); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	port := srv.listeners.port
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Destroy()
	})
	return srv, net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}

func writeFrame(t *testing.T, conn net.Conn, payload []byte) {
	t.Helper()
	var hdr [testFrameHeader]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := conn.Write(hdr[:]); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}

func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	var hdr [testFrameHeader]byte
	if _, err := ioReadFull(conn, hdr[:]); err != nil {
		t.Fatalf("read header: %v", err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	buf := make([]byte, n)
	if _, err := ioReadFull(conn, buf); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	return buf
}

func ioReadFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// TestEchoSingleReactor exercises spec §8 end-to-end scenario 1: a single
// reactor with no worker pool echoes a length-prefixed frame back to the
// client, then fires OnDisconnect within one cycle of a half-close.
func TestEchoSingleReactor(t *testing.T) {
	connected := make(chan struct{}, 1)
	disconnected := make(chan error, 1)

	handles := lengthPrefixedHandles(
		func(c *Connection) { connected <- struct{}{} },
		func(c *Connection, err error) { disconnected <- err },
	)

	_, addr := startTestServer(t, Config{IOThreadCount: 1, WorkerThreadCount: 0}, handles)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("OnConnect did not fire")
	}

	writeFrame(t, conn, []byte("abc"))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	got := readFrame(t, conn)
	if string(got) != "abc" {
		t.Fatalf("echoed payload = %q, want %q", got, "abc")
	}

	_ = conn.(*net.TCPConn).CloseWrite()

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect did not fire after client close")
	}
}

// TestDecodeErrorClosesConnection exercises spec §8 scenario 6: malformed
// framing closes the connection and fires OnDisconnect.
func TestDecodeErrorClosesConnection(t *testing.T) {
	disconnected := make(chan error, 1)
	handles := HandleSet{
		Decode: func(rbuf *bytebuffer.Buffer) (interface{}, Result) {
			return nil, ResultErr
		},
		Process:      func(msg *Message) {},
		OnDisconnect: func(c *Connection, err error) { disconnected <- err },
	}

	_, addr := startTestServer(t, Config{IOThreadCount: 1}, handles)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("decode error did not close the connection")
	}
}

// TestLifecycleGuards checks the non-fatal lifecycle error cases of spec
// §7 (e): starting twice, running unstarted, stopping unstarted.
func TestLifecycleGuards(t *testing.T) {
	srv, err := NewServer(Config{IOThreadCount: 1})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	if err := srv.Run(); err != ErrNotStarted {
		t.Fatalf("Run before Start = %v, want ErrNotStarted", err)
	}
	if err := srv.Stop(); err != ErrNotStarted {
		t.Fatalf("Stop before Start = %v, want ErrNotStarted", err)
	}

	if err := srv.AddListener("127.0.0.1", 0, HandleSet{}); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
	if err := srv.AddListener("127.0.0.1", 0, HandleSet{}); err != ErrListenAfterStart {
		t.Fatalf("AddListener after Start = %v, want ErrListenAfterStart", err)
	}

	if err := srv.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
}

// TestInvalidConfig checks spec §7 (d): invalid config returns a null
// server (here: an error and a nil *Server).
func TestInvalidConfig(t *testing.T) {
	if _, err := NewServer(Config{IOThreadCount: 0}); err != ErrInvalidConfig {
		t.Fatalf("IOThreadCount=0: err = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewServer(Config{IOThreadCount: 1, WorkerThreadCount: -1}); err != ErrInvalidConfig {
		t.Fatalf("WorkerThreadCount=-1: err = %v, want ErrInvalidConfig", err)
	}
}

// TestSendMessageRejectsClosedOrNil checks spec §4.5 send_message error
// behavior.
func TestSendMessageRejectsClosedOrNil(t *testing.T) {
	srv, err := NewServer(Config{IOThreadCount: 1})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.SendMessage(nil, []byte("x")); err != ErrNilConnection {
		t.Fatalf("SendMessage(nil, ...) = %v, want ErrNilConnection", err)
	}

	c := newTestConnection()
	c.status.Store(int32(statusClosed))
	if err := srv.SendMessage(c, []byte("x")); err != ErrConnectionClosed {
		t.Fatalf("SendMessage(closed conn) = %v, want ErrConnectionClosed", err)
	}
}

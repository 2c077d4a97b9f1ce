// Command echo runs a 4-byte-length-prefixed echo server on top of the
// reactor framework — the exact protocol exercised by the framework's
// single-reactor echo end-to-end scenario.
package main

import (
	"encoding/binary"
	"flag"
	"os"
	"os/signal"
	"syscall"

	reactor "github.com/nullctx/reactor"
	"github.com/nullctx/reactor/internal/bytebuffer"
	"github.com/nullctx/reactor/internal/logging"
)

func main() {
	addr := flag.String("addr", "0.0.0.0", "listen address")
	port := flag.Int("port", 9001, "listen port")
	ioThreads := flag.Int("io-threads", 4, "I/O reactor thread count")
	workers := flag.Int("workers", 0, "worker pool size (0 disables offload)")
	flag.Parse()

	srv, err := reactor.NewServer(reactor.Config{
		IOThreadCount:     *ioThreads,
		WorkerThreadCount: *workers,
		TCPNoDelay:        true,
		AffinityEnable:    true,
	})
	if err != nil {
		logging.Errorf("new server: %v", err)
		os.Exit(1)
	}

	handles := reactor.HandleSet{
		Decode:  decodeFrame,
		Encode:  encodeFrame,
		Process: process,
		OnConnect: func(c *reactor.Connection) {
			logging.Infof("connect %s:%d fd=%d", c.RemoteAddr(), c.RemotePort(), c.Fd())
		},
		OnDisconnect: func(c *reactor.Connection, err error) {
			logging.Infof("disconnect %s:%d fd=%d: %v", c.RemoteAddr(), c.RemotePort(), c.Fd(), err)
		},
	}

	if err := srv.AddListener(*addr, *port, handles); err != nil {
		logging.Errorf("add listener: %v", err)
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		logging.Errorf("start: %v", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		if err := srv.Destroy(); err != nil {
			logging.Errorf("destroy: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		logging.Errorf("run: %v", err)
		os.Exit(1)
	}
}

const frameHeaderSize = 4

// decodeFrame implements a 4-byte big-endian length prefix followed by
// that many payload bytes.
func decodeFrame(rbuf *bytebuffer.Buffer) (interface{}, reactor.Result) {
	buf := rbuf.Peek()
	if len(buf) < frameHeaderSize {
		return nil, reactor.ResultAgain
	}
	n := binary.BigEndian.Uint32(buf[:frameHeaderSize])
	if n > 16<<20 {
		return nil, reactor.ResultErr
	}
	total := frameHeaderSize + int(n)
	if len(buf) < total {
		return nil, reactor.ResultAgain
	}
	payload := append([]byte(nil), buf[frameHeaderSize:total]...)
	rbuf.Discard(total)
	return payload, reactor.ResultOK
}

func encodeFrame(wbuf *bytebuffer.Buffer, resp interface{}) error {
	payload := resp.([]byte)
	var hdr [frameHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := wbuf.Write(hdr[:]); err != nil {
		return err
	}
	_, err := wbuf.Write(payload)
	return err
}

func process(msg *reactor.Message) {
	msg.Response = msg.Request
}

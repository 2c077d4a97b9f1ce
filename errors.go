package reactor

import "errors"

// Sentinel errors for the reactor lifecycle and dispatch paths (spec §7).
var (
	// ErrInvalidConfig is returned by NewServer for a malformed Config
	// (spec §7 Configuration: "invalid config at init returns a null
	// server").
	ErrInvalidConfig = errors.New("reactor: invalid configuration")

	// ErrAlreadyStarted is returned by Start on a server already started
	// (spec §7 Lifecycle: reported but non-fatal).
	ErrAlreadyStarted = errors.New("reactor: server already started")

	// ErrNotStarted is returned by Run or Stop on a server never started.
	ErrNotStarted = errors.New("reactor: server not started")

	// ErrNilConnection is returned by SendMessage when conn is nil.
	ErrNilConnection = errors.New("reactor: connection is nil")

	// ErrConnectionClosed is returned by SendMessage on a closed
	// connection.
	ErrConnectionClosed = errors.New("reactor: connection is closed")

	// ErrListenAfterStart is returned by AddListener once the server has
	// started (spec §4.1: "Must be called before start").
	ErrListenAfterStart = errors.New("reactor: listener must be added before start")

	// ErrDecodeFailed marks a connection closed because decode returned
	// ResultErr (spec §4.3).
	ErrDecodeFailed = errors.New("reactor: decode rejected framing")

	// ErrServerShutdown marks a connection closed as part of Server.Stop
	// (spec §4.6 "server shutdown" close trigger).
	ErrServerShutdown = errors.New("reactor: server shutting down")

	// errConnReset marks a connection closed because the poller reported
	// a hangup/error condition on the socket.
	errConnReset = errors.New("reactor: connection reset")
)

package reactor

import "github.com/nullctx/reactor/internal/bytebuffer"

// Result is the three-way outcome a Decode call carries (spec §6: "Three
// logical outcomes carried uniformly: OK, ERR, AGAIN").
type Result int

const (
	// ResultOK means a complete packet was produced and the read buffer's
	// cursor has already been advanced past it.
	ResultOK Result = iota
	// ResultAgain means more bytes are needed; the buffer is untouched.
	ResultAgain
	// ResultErr means the framing is malformed; the connection will close.
	ResultErr
)

// DecodeFunc consumes from rbuf and either produces a request (ResultOK,
// having advanced rbuf's read cursor past the decoded bytes), asks for more
// data (ResultAgain, rbuf untouched), or rejects the framing (ResultErr).
type DecodeFunc func(rbuf *bytebuffer.Buffer) (request interface{}, result Result)

// EncodeFunc appends the encoded form of response into wbuf.
type EncodeFunc func(wbuf *bytebuffer.Buffer, response interface{}) error

// ProcessFunc consumes msg.Request and should set msg.Response.
type ProcessFunc func(msg *Message)

// PacketCleanupFunc releases a non-nil decoded request or response value.
type PacketCleanupFunc func(packet interface{})

// OnConnectFunc is an advisory notification fired on the accepting/owning
// reactor right after a Connection is constructed, strictly before any
// Decode call for it.
type OnConnectFunc func(conn *Connection)

// OnDisconnectFunc is an advisory notification fired at most once, on the
// connection's owning reactor, strictly after OnConnect and strictly
// before the fd becomes eligible for reuse.
type OnDisconnectFunc func(conn *Connection, err error)

// HandleSet is the six-callback application contract bound per Listener
// (spec §6 "Application handle-set").
type HandleSet struct {
	Decode        DecodeFunc
	Encode        EncodeFunc
	Process       ProcessFunc
	PacketCleanup PacketCleanupFunc
	OnConnect     OnConnectFunc
	OnDisconnect  OnDisconnectFunc
}

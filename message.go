package reactor

// Message pairs a connection with a decoded request and a response slot
// (spec §3 "Message"). Constructing one retains its Connection; destroying
// it releases that reference and, when HandleSet.PacketCleanup is set,
// invokes it on any non-nil Request/Response.
type Message struct {
	conn     *Connection
	Request  interface{}
	Response interface{}
}

// newMessage wraps conn and req in a Message, retaining conn.
func newMessage(conn *Connection, req interface{}) *Message {
	conn.retain()
	return &Message{conn: conn, Request: req}
}

// Conn returns the connection this message belongs to.
func (m *Message) Conn() *Connection {
	return m.conn
}

// destroy runs packet cleanup and releases the connection reference this
// message was holding. Must run on the connection's owning reactor.
func (m *Message) destroy() {
	if m == nil {
		return
	}
	conn := m.conn
	if cleanup := conn.handles.PacketCleanup; cleanup != nil {
		if m.Request != nil {
			cleanup(m.Request)
		}
		if m.Response != nil {
			cleanup(m.Response)
		}
	}
	if conn.releaseRef() == 0 {
		conn.finalizeIfClosed()
	}
}

// Package bytebuffer supplies the read/write-cursor byte buffer the reactor
// core needs for per-connection inbound and outbound staging, pooled via
// github.com/valyala/bytebufferpool.
package bytebuffer

import "github.com/valyala/bytebufferpool"

// DefaultReserve is the minimum writable tail reserved before a raw socket
// read, matching the framework's default 4 KiB read chunk.
const DefaultReserve = 4096

// compactThreshold bounds how far the read cursor is allowed to drift
// before the buffer is compacted back to offset zero.
const compactThreshold = 64 * 1024

// Buffer is a pooled byte slice with an independent read cursor layered on
// top of bytebufferpool.ByteBuffer's append-only write side.
type Buffer struct {
	bb   *bytebufferpool.ByteBuffer
	roff int
}

// Get returns a Buffer backed by a pooled byte slice.
func Get() *Buffer {
	return &Buffer{bb: bytebufferpool.Get()}
}

// Put returns b's backing slice to the pool. b must not be used afterward.
func Put(b *Buffer) {
	if b == nil || b.bb == nil {
		return
	}
	b.bb.Reset()
	bytebufferpool.Put(b.bb)
	b.bb = nil
	b.roff = 0
}

// EnsureWritable grows the backing slice so at least n bytes can be
// appended past the current write cursor without reallocating mid-write.
func (b *Buffer) EnsureWritable(n int) {
	if cap(b.bb.B)-len(b.bb.B) >= n {
		return
	}
	grown := make([]byte, len(b.bb.B), len(b.bb.B)+n)
	copy(grown, b.bb.B)
	b.bb.B = grown
}

// Tail returns a writable slice of length n past the current write cursor,
// growing the buffer first if necessary. Callers read raw bytes into it and
// then call AdvanceWrite with the number actually produced.
func (b *Buffer) Tail(n int) []byte {
	b.EnsureWritable(n)
	l := len(b.bb.B)
	return b.bb.B[l : l+n : l+n]
}

// AdvanceWrite commits n bytes previously written into the slice returned
// by Tail. A no-op for n <= 0, guarding against advancing on a negative
// syscall return (see the framework's read-cursor defect note).
func (b *Buffer) AdvanceWrite(n int) {
	if n <= 0 {
		return
	}
	b.bb.B = b.bb.B[:len(b.bb.B)+n]
}

// Peek returns the unread region of the buffer without consuming it.
func (b *Buffer) Peek() []byte {
	return b.bb.B[b.roff:]
}

// Discard advances the read cursor by n bytes, compacting the backing
// slice once the cursor has drifted far enough to be worth reclaiming.
func (b *Buffer) Discard(n int) {
	if n <= 0 {
		return
	}
	b.roff += n
	if b.roff >= len(b.bb.B) {
		b.bb.Reset()
		b.roff = 0
		return
	}
	if b.roff >= compactThreshold {
		remaining := append([]byte(nil), b.bb.B[b.roff:]...)
		b.bb.B = append(b.bb.B[:0], remaining...)
		b.roff = 0
	}
}

// Len reports the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.bb.B) - b.roff
}

// Write appends p past the current write cursor, growing as needed. Used by
// application Encode callbacks.
func (b *Buffer) Write(p []byte) (int, error) {
	return b.bb.Write(p)
}

// Reset discards all buffered bytes and rewinds both cursors.
func (b *Buffer) Reset() {
	b.bb.Reset()
	b.roff = 0
}

package bytebuffer

import "testing"

func TestWriteDiscardPeek(t *testing.T) {
	b := Get()
	defer Put(b)

	n, err := b.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = (%d, %v), want (5, nil)", n, err)
	}
	if got := string(b.Peek()); got != "hello" {
		t.Fatalf("Peek() = %q, want %q", got, "hello")
	}

	b.Discard(2)
	if got := string(b.Peek()); got != "llo" {
		t.Fatalf("Peek() after Discard(2) = %q, want %q", got, "llo")
	}
	if got := b.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	b.Discard(3)
	if got := b.Len(); got != 0 {
		t.Fatalf("Len() after full discard = %d, want 0", got)
	}
}

func TestTailAdvanceWrite(t *testing.T) {
	b := Get()
	defer Put(b)

	tail := b.Tail(DefaultReserve)
	if len(tail) != DefaultReserve {
		t.Fatalf("len(Tail) = %d, want %d", len(tail), DefaultReserve)
	}
	copy(tail, []byte("abc"))
	b.AdvanceWrite(3)
	if got := string(b.Peek()); got != "abc" {
		t.Fatalf("Peek() = %q, want %q", got, "abc")
	}

	// AdvanceWrite must ignore n <= 0 (guards the documented read-cursor
	// defect: a -1 byte count must never move the cursor).
	b.AdvanceWrite(-1)
	if got := string(b.Peek()); got != "abc" {
		t.Fatalf("Peek() after AdvanceWrite(-1) = %q, want unchanged %q", got, "abc")
	}
}

func TestResetClearsBoth(t *testing.T) {
	b := Get()
	defer Put(b)

	_, _ = b.Write([]byte("payload"))
	b.Discard(3)
	b.Reset()
	if got := b.Len(); got != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", got)
	}
	if got := string(b.Peek()); got != "" {
		t.Fatalf("Peek() after Reset = %q, want empty", got)
	}
}

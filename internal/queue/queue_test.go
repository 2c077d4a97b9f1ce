package queue

import (
	"sync"
	"testing"
)

func TestPushPopAll(t *testing.T) {
	q := New()
	if got := q.PopAll(); got != nil {
		t.Fatalf("PopAll on empty queue = %v, want nil", got)
	}
	q.Push(1)
	q.Push(2)
	q.Push(3)
	if got := q.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	items := q.PopAll()
	if len(items) != 3 {
		t.Fatalf("PopAll() len = %d, want 3", len(items))
	}
	for i, v := range items {
		if v.(int) != i+1 {
			t.Fatalf("items[%d] = %v, want %d", i, v, i+1)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestConcurrentPush(t *testing.T) {
	q := New()
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	if got := q.Len(); got != producers*perProducer {
		t.Fatalf("Len() = %d, want %d", got, producers*perProducer)
	}
}

func TestDestroyRunsCleanup(t *testing.T) {
	q := New()
	q.Push("a")
	q.Push("b")

	var cleaned []string
	q.Destroy(func(v interface{}) {
		cleaned = append(cleaned, v.(string))
	})

	if len(cleaned) != 2 {
		t.Fatalf("cleaned = %v, want 2 items", cleaned)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after Destroy = %d, want 0", q.Len())
	}
}

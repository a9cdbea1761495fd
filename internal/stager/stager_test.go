package stager

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPutTakeRoundtrip(t *testing.T) {
	s := New()
	payload := []byte(`{"a":1}`)

	if err := s.Put("v1", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if s.Size() != 1 {
		t.Fatalf("Size = %d, want 1", s.Size())
	}

	got, err := s.Take("v1")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Take = %q, want %q", got, payload)
	}
	if s.Size() != 0 {
		t.Fatalf("Size after Take = %d, want 0", s.Size())
	}
}

func TestPutDuplicate(t *testing.T) {
	s := New()
	if err := s.Put("v1", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("v1", []byte("y")); !errors.Is(err, ErrDuplicateVersion) {
		t.Fatalf("Put dup = %v, want ErrDuplicateVersion", err)
	}
}

func TestTakeMissing(t *testing.T) {
	s := New()
	if _, err := s.Take("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Take = %v, want ErrNotFound", err)
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	s := New()
	_ = s.Put("v1", []byte("x"))

	if _, ok := s.Peek("v1"); !ok {
		t.Fatal("Peek: not found")
	}
	if _, ok := s.Peek("v1"); !ok {
		t.Fatal("Peek segunda vez: not found")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := New()
	_ = s.Put("v1", []byte("x"))
	s.Remove("v1")
	s.Remove("v1")
	if s.Size() != 0 {
		t.Fatalf("Size = %d, want 0", s.Size())
	}
}

// Confirmaciones duplicadas del store pueden correr en paralelo: exactamente
// un Take debe ganar.
func TestTakeConcurrentExactlyOnce(t *testing.T) {
	s := New()
	_ = s.Put("v1", []byte("x"))

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Take("v1"); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("Take ganó %d veces, want 1", wins)
	}
}
